package chat

import "time"

// typingDebounce is how long after the last TYPING_START a stopped-typing
// event is emitted on the sender's behalf. Fixed by protocol.
const typingDebounce = 3 * time.Second

// typingState manages the per-(client, room) stopped-typing debounce.
// Timer handles live in the client's own state so disconnect can cancel
// them synchronously; the expiry callback re-checks ownership under the
// client lock, so a cancelled or replaced timer never emits.
type typingState struct {
	ttl    time.Duration
	notify func(c *Client, roomID string, typing bool)
}

func newTypingState(ttl time.Duration, notify func(c *Client, roomID string, typing bool)) *typingState {
	return &typingState{ttl: ttl, notify: notify}
}

// start arms (or re-arms) the debounce for (c, roomID). At most one timer
// is pending per pair; a previous one is stopped before the new one is
// installed.
func (t *typingState) start(c *Client, roomID string) {
	var timer *time.Timer
	timer = time.AfterFunc(t.ttl, func() {
		if c.claimTypingExpiry(roomID, timer) {
			t.notify(c, roomID, false)
		}
	})
	if !c.armTyping(roomID, timer) {
		// Client torn down between dispatch and arming.
		timer.Stop()
	}
}

// stop cancels a pending debounce, reporting whether one existed. The
// caller emits the immediate stopped-typing event either way.
func (t *typingState) stop(c *Client, roomID string) bool {
	return c.disarmTyping(roomID)
}
