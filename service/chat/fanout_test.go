package chat

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func recvRaw(t *testing.T, c *Client, timeout time.Duration) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(timeout):
		t.Fatalf("no frame for %s within %v", c.UserID, timeout)
	}
	return nil
}

func TestFanoutDeliversToAll(t *testing.T) {
	f := NewFanout(1, 16)
	defer f.Close()
	a := NewClient("c1", "alice", nil)
	b := NewClient("c2", "bob", nil)

	f.Broadcast([]*Client{a, b}, []byte("hello"))

	for _, c := range []*Client{a, b} {
		if got := recvRaw(t, c, time.Second); !bytes.Equal(got, []byte("hello")) {
			t.Fatalf("%s got %q", c.UserID, got)
		}
	}
}

func TestFanoutSkipsTornDownClient(t *testing.T) {
	f := NewFanout(1, 16)
	defer f.Close()
	a := NewClient("c1", "alice", nil)
	b := NewClient("c2", "bob", nil)
	a.teardown()

	f.Broadcast([]*Client{a, b}, []byte("x"))

	if got := recvRaw(t, b, time.Second); !bytes.Equal(got, []byte("x")) {
		t.Fatalf("bob got %q", got)
	}
	// alice's channel was closed by teardown; nothing must have been sent.
	if _, ok := <-a.Send; ok {
		t.Fatal("frame delivered to torn-down client")
	}
}

func TestFanoutPreservesPerRecipientOrder(t *testing.T) {
	f := NewFanout(1, 64)
	defer f.Close()
	c := NewClient("c1", "alice", nil)

	const n = 50
	for i := 0; i < n; i++ {
		f.Broadcast([]*Client{c}, []byte(fmt.Sprintf("frame-%03d", i)))
	}
	for i := 0; i < n; i++ {
		want := fmt.Sprintf("frame-%03d", i)
		if got := string(recvRaw(t, c, time.Second)); got != want {
			t.Fatalf("frame %d = %q, want %q", i, got, want)
		}
	}
}

func TestFanoutDropsWhenQueueFull(t *testing.T) {
	f := NewFanout(1, 16)
	defer f.Close()
	slow := NewClient("c1", "alice", nil)
	probe := NewClient("c2", "bob", nil)

	for i := 0; i < sendQueueSize; i++ {
		slow.Send <- []byte("fill")
	}
	f.Broadcast([]*Client{slow, probe}, []byte("overflow"))

	// Once the probe client saw the frame the job is fully processed.
	recvRaw(t, probe, time.Second)
	if len(slow.Send) != sendQueueSize {
		t.Fatalf("slow client queue len = %d, want %d (frame dropped)", len(slow.Send), sendQueueSize)
	}
}

func TestFanoutBroadcastAfterCloseIsNoop(t *testing.T) {
	f := NewFanout(1, 16)
	c := NewClient("c1", "alice", nil)

	f.Close()
	f.Close()

	// A straggling producer (late timer callback, in-flight handler) must
	// not panic or deliver anything once the fanout is closed.
	f.Broadcast([]*Client{c}, []byte("late"))

	select {
	case data := <-c.Send:
		t.Fatalf("frame %q delivered after close", data)
	case <-time.After(50 * time.Millisecond):
	}
}
