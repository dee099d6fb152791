package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeOracle is an in-memory room membership oracle.
type fakeOracle struct {
	mu         sync.Mutex
	members    map[string]map[string]struct{}
	failAdd    bool
	failRemove bool
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{members: make(map[string]map[string]struct{})}
}

func (o *fakeOracle) seed(roomID string, users ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.members[roomID] == nil {
		o.members[roomID] = make(map[string]struct{})
	}
	for _, u := range users {
		o.members[roomID][u] = struct{}{}
	}
}

func (o *fakeOracle) IsMember(_ context.Context, userID, roomID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.members[roomID][userID]
	return ok
}

func (o *fakeOracle) AddMember(_ context.Context, userID, roomID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failAdd {
		return false
	}
	if o.members[roomID] == nil {
		o.members[roomID] = make(map[string]struct{})
	}
	if _, exists := o.members[roomID][userID]; exists {
		return false
	}
	o.members[roomID][userID] = struct{}{}
	return true
}

func (o *fakeOracle) RemoveMember(_ context.Context, userID, roomID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failRemove {
		return false
	}
	if _, exists := o.members[roomID][userID]; !exists {
		return false
	}
	delete(o.members[roomID], userID)
	return true
}

func (o *fakeOracle) MembersOf(_ context.Context, roomID string) map[string]struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]struct{}, len(o.members[roomID]))
	for u := range o.members[roomID] {
		out[u] = struct{}{}
	}
	return out
}

// fakeStore records created messages.
type fakeStore struct {
	mu      sync.Mutex
	fail    bool
	created []*StoredMessage
}

func (s *fakeStore) Create(_ context.Context, userID, roomID, content string) (*StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	m := &StoredMessage{
		ID:         fmt.Sprintf("m-%d", len(s.created)+1),
		Content:    content,
		UserID:     userID,
		SenderName: userID + "-name",
		RoomID:     roomID,
		CreatedAt:  time.Now().UTC(),
	}
	s.created = append(s.created, m)
	return m, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// fakeFeed records published status events.
type fakeFeed struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (f *fakeFeed) PublishStatus(ev StatusEvent) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeFeed) byStatus(status string) []StatusEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []StatusEvent
	for _, ev := range f.events {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	return out
}

const testDebounce = 40 * time.Millisecond

// newTestHub builds a hub with the liveness monitor effectively parked and
// a short typing debounce.
func newTestHub(t *testing.T, oracle RoomOracle, store MessageStore, feed EventFeed) *Server {
	t.Helper()
	s := newServer(Deps{Oracle: oracle, Store: store, Feed: feed}, time.Hour, testDebounce)
	t.Cleanup(s.Close)
	return s
}

// addClient registers a connection-less client, good enough for everything
// short of actual socket IO.
func addClient(s *Server, userID string) *Client {
	c := NewClient("conn-"+userID, userID, nil)
	s.reg.Register(c)
	return c
}

func dispatch(s *Server, c *Client, tag Tag, payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	env := &Envelope{Type: tag}
	if payload != "" {
		env.Payload = json.RawMessage(payload)
	}
	s.router.Dispatch(ctx, c, env)
}

// recvEnvelope waits for the next frame queued for c.
func recvEnvelope(t *testing.T, c *Client, timeout time.Duration) *Envelope {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if !ok {
			t.Fatalf("send channel for %s closed", c.UserID)
		}
		env, err := ParseEnvelope(data)
		if err != nil {
			t.Fatalf("bad outbound frame for %s: %v", c.UserID, err)
		}
		return env
	case <-time.After(timeout):
		t.Fatalf("no frame for %s within %v", c.UserID, timeout)
	}
	return nil
}

// expectNoEnvelope asserts c receives nothing for the duration.
func expectNoEnvelope(t *testing.T, c *Client, d time.Duration) {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if ok {
			t.Fatalf("unexpected frame for %s: %s", c.UserID, data)
		}
	case <-time.After(d):
	}
}

func decodeInto(t *testing.T, env *Envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Payload, v); err != nil {
		t.Fatalf("decode %s payload: %v", env.Type, err)
	}
}
