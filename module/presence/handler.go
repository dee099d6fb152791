package presence

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chathub/logger"
	midsec "chathub/middleware/security"
	"chathub/tools/errs"
)

// Lookup answers whether a user currently holds a live presence record.
type Lookup interface {
	Lookup(ctx context.Context, userID string) (bool, error)
}

// StatusHandler serves the online status of a user over REST, guarded by
// the same token check as the WebSocket handshake.
type StatusHandler struct {
	Presence Lookup
}

type statusResponse struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// Status handles GET /users/:userId/status.
func (h *StatusHandler) Status(c *gin.Context) {
	if c.GetString(midsec.CtxUserIDKey) == "" {
		c.JSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
		return
	}
	userID := c.Param("userId")
	online, err := h.Presence.Lookup(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("[presence] lookup user=%s err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, errs.ErrMessageHandling)
		return
	}
	c.JSON(http.StatusOK, statusResponse{UserID: userID, Online: online})
}
