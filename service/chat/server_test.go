package chat

import (
	"testing"
	"time"
)

// TestRoomSessionLifecycle walks two users through a full room session:
// join, typing with debounce, a persisted message, and a clean sweep of
// who saw what at each step.
func TestRoomSessionLifecycle(t *testing.T) {
	oracle := newFakeOracle()
	store := &fakeStore{}
	feed := &fakeFeed{}
	s := newTestHub(t, oracle, store, feed)

	a := addClient(s, "alice")
	dispatch(s, a, TagJoinRoom, `{"roomId":"r1"}`)
	if env := recvEnvelope(t, a, recvWait); env.Type != TagUserStatus {
		t.Fatalf("alice got %s after her own join", env.Type)
	}

	b := addClient(s, "bob")
	dispatch(s, b, TagJoinRoom, `{"roomId":"r1"}`)
	for _, c := range []*Client{a, b} {
		env := recvEnvelope(t, c, recvWait)
		var p UserStatusPayload
		decodeInto(t, env, &p)
		if p.UserID != "bob" || p.Status != StatusJoined {
			t.Fatalf("%s saw %+v for bob's join", c.UserID, p)
		}
	}

	// Typing: bob sees start then the debounced stop; alice sees neither.
	dispatch(s, a, TagTypingStart, `{"roomId":"r1"}`)
	if env := recvEnvelope(t, b, recvWait); env.Type != TagTypingStart {
		t.Fatalf("bob got %s", env.Type)
	}
	if env := recvEnvelope(t, b, recvWait); env.Type != TagTypingStop {
		t.Fatalf("bob got %s, want debounced stop", env.Type)
	}
	expectNoEnvelope(t, a, 20*time.Millisecond)

	// Message: both receive the persisted record with alice's display name.
	dispatch(s, a, TagSendMessage, `{"roomId":"r1","content":"hello room"}`)
	for _, c := range []*Client{a, b} {
		env := recvEnvelope(t, c, recvWait)
		if env.Type != TagSendMessage {
			t.Fatalf("%s got %s", c.UserID, env.Type)
		}
		var m StoredMessage
		decodeInto(t, env, &m)
		if m.ID == "" || m.SenderName != "alice-name" || m.Content != "hello room" {
			t.Fatalf("%s got %+v", c.UserID, m)
		}
	}
	if store.count() != 1 {
		t.Fatalf("store holds %d messages, want 1", store.count())
	}
	if got := len(feed.byStatus(StatusJoined)); got != 2 {
		t.Fatalf("feed saw %d join events, want 2", got)
	}
}

func TestDisconnectBroadcastsOfflinePerRoom(t *testing.T) {
	oracle := newFakeOracle()
	oracle.seed("r1", "alice", "bob")
	oracle.seed("r2", "alice", "carol")
	feed := &fakeFeed{}
	s := newTestHub(t, oracle, &fakeStore{}, feed)
	a := addClient(s, "alice")
	b := addClient(s, "bob")
	c := addClient(s, "carol")
	a.addRoom("r1")
	a.addRoom("r2")

	s.disconnect(a, "transport closed")

	for _, peer := range []*Client{b, c} {
		env := recvEnvelope(t, peer, recvWait)
		var p UserStatusPayload
		decodeInto(t, env, &p)
		if env.Type != TagUserStatus || p.UserID != "alice" || p.Status != StatusOffline {
			t.Fatalf("%s got %s %+v", peer.UserID, env.Type, p)
		}
	}
	if _, ok := s.reg.Lookup("alice"); ok {
		t.Fatal("alice still registered after disconnect")
	}
	if got := len(feed.byStatus(StatusOffline)); got != 1 {
		t.Fatalf("feed saw %d offline events, want 1", got)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	oracle := newFakeOracle()
	oracle.seed("r1", "alice", "bob")
	feed := &fakeFeed{}
	s := newTestHub(t, oracle, &fakeStore{}, feed)
	a := addClient(s, "alice")
	b := addClient(s, "bob")
	a.addRoom("r1")

	s.disconnect(a, "transport closed")
	s.disconnect(a, "liveness probe missed")

	recvEnvelope(t, b, recvWait)
	expectNoEnvelope(t, b, 50*time.Millisecond)
	if got := len(feed.byStatus(StatusOffline)); got != 1 {
		t.Fatalf("feed saw %d offline events, want 1", got)
	}
}

// A reconnect displaces the prior session. Tearing the displaced
// connection down must not look like the user going offline: the
// registry already points at the successor.
func TestDisplacedConnectionSkipsOfflineSignals(t *testing.T) {
	oracle := newFakeOracle()
	oracle.seed("r1", "alice", "bob")
	feed := &fakeFeed{}
	s := newTestHub(t, oracle, &fakeStore{}, feed)
	b := addClient(s, "bob")

	old := NewClient("conn-old", "alice", nil)
	old.addRoom("r1")
	s.reg.Register(old)
	next := NewClient("conn-next", "alice", nil)
	if prev := s.reg.Register(next); prev != old {
		t.Fatal("registering the successor did not displace the old session")
	}

	s.disconnect(old, "session replaced")

	expectNoEnvelope(t, b, 50*time.Millisecond)
	if got := len(feed.byStatus(StatusOffline)); got != 0 {
		t.Fatalf("feed saw %d offline events for a displaced session, want 0", got)
	}
	if cur, ok := s.reg.Lookup("alice"); !ok || cur != next {
		t.Fatal("successor session lost from the registry")
	}
}

func TestCloseTearsDownEverySession(t *testing.T) {
	s := newTestHub(t, newFakeOracle(), &fakeStore{}, nil)
	a := addClient(s, "alice")
	b := addClient(s, "bob")

	s.Close()

	for _, c := range []*Client{a, b} {
		select {
		case _, ok := <-c.Send:
			if ok {
				t.Fatalf("unexpected frame for %s during shutdown", c.UserID)
			}
		case <-time.After(recvWait):
			t.Fatalf("send channel for %s not closed", c.UserID)
		}
	}
	if s.reg.Len() != 0 {
		t.Fatalf("registry holds %d sessions after close", s.reg.Len())
	}
}
