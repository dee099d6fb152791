package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	midsec "chathub/middleware/security"
)

type fakeLookup struct {
	online map[string]bool
	err    error
}

func (f *fakeLookup) Lookup(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.online[userID], nil
}

func newStatusRouter(l Lookup, authUser string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := &StatusHandler{Presence: l}
	engine.GET("/users/:userId/status", func(c *gin.Context) {
		if authUser != "" {
			c.Set(midsec.CtxUserIDKey, authUser)
		}
		h.Status(c)
	})
	return engine
}

func TestStatusOnlineAndOffline(t *testing.T) {
	engine := newStatusRouter(&fakeLookup{online: map[string]bool{"alice": true}}, "bob")

	for _, tc := range []struct {
		user   string
		online bool
	}{
		{"alice", true},
		{"ghost", false},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/"+tc.user+"/status", nil)
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.user, w.Code)
		}
		var resp struct {
			UserID string `json:"userId"`
			Online bool   `json:"online"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", tc.user, err)
		}
		if resp.UserID != tc.user || resp.Online != tc.online {
			t.Fatalf("%s: resp = %+v", tc.user, resp)
		}
	}
}

func TestStatusRequiresIdentity(t *testing.T) {
	engine := newStatusRouter(&fakeLookup{}, "")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/alice/status", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestStatusBackendFailure(t *testing.T) {
	engine := newStatusRouter(&fakeLookup{err: fmt.Errorf("redis down")}, "bob")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/alice/status", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
