package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const sendQueueSize = 256

// Client is one live transport session for an authenticated identity.
// A single mutex guards all mutable session state: the liveness flag, the
// joined-room cache, and the per-room typing debounce timers. The Send
// channel is consumed by exactly one writer goroutine so frames queued for
// the same client keep their submission order.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex
	closed bool
	alive  bool
	rooms  map[string]struct{}
	typing map[string]*time.Timer
}

func NewClient(connID, userID string, ws *websocket.Conn) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		alive:  true,
		rooms:  make(map[string]struct{}),
		typing: make(map[string]*time.Timer),
	}
}

// enqueue queues an outbound frame without blocking. It reports false if
// the client is torn down or its queue is full; callers treat both as a
// per-recipient delivery failure, never as an error to propagate.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// markAlive records a liveness acknowledgment (pong).
func (c *Client) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

// consumeAlive returns the current liveness flag and clears it, arming the
// next probe round.
func (c *Client) consumeAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.alive
	c.alive = false
	return was
}

func (c *Client) addRoom(roomID string) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) removeRoom(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

// armTyping installs a debounce timer for roomID, replacing (and stopping)
// any previous one. It reports false if the client is already torn down,
// in which case the caller must stop the timer itself.
func (c *Client) armTyping(roomID string, t *time.Timer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if old, ok := c.typing[roomID]; ok {
		old.Stop()
	}
	c.typing[roomID] = t
	return true
}

// disarmTyping cancels a pending debounce timer, reporting whether one
// was pending.
func (c *Client) disarmTyping(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.typing[roomID]
	if !ok {
		return false
	}
	t.Stop()
	delete(c.typing, roomID)
	return true
}

// claimTypingExpiry is called from a fired timer. It reports whether the
// timer is still the one armed for roomID on a live client; a stale timer
// (replaced or raced with teardown) must not emit anything.
func (c *Client) claimTypingExpiry(roomID string, t *time.Timer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	cur, ok := c.typing[roomID]
	if !ok || cur != t {
		return false
	}
	delete(c.typing, roomID)
	return true
}

// teardown transitions the client to closed exactly once. It stops every
// pending typing timer, closes the Send channel (ending the write pump),
// and returns the rooms the session had joined so the caller can emit
// offline presence. first is false on every call after the first.
func (c *Client) teardown() (rooms []string, first bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	c.closed = true
	for roomID, t := range c.typing {
		t.Stop()
		delete(c.typing, roomID)
	}
	rooms = make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	close(c.Send)
	return rooms, true
}
