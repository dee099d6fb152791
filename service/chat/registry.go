package chat

import "sync"

// Registry is the session registry: identity -> live client, at most one
// entry per identity. Mutations and snapshot iteration share one RWMutex
// so fan-out never observes a half-registered entry.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Client)}
}

// Register inserts c and returns the displaced previous client for the
// same identity, if any. The caller decides what to do with it.
func (r *Registry) Register(c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.byUser[c.UserID]
	r.byUser[c.UserID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Unregister removes c only if it is still the registered entry for its
// identity, and reports whether it was. A client displaced by a reconnect
// therefore cannot evict its successor during cleanup.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[c.UserID]; ok && cur == c {
		delete(r.byUser, c.UserID)
		return true
	}
	return false
}

func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Snapshot returns a copy of the current entries. Registrations and
// removals after the call are invisible to iteration over the result.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byUser))
	for _, c := range r.byUser {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
