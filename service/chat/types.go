package chat

import (
	"context"
	"time"
)

// RoomOracle answers room membership questions. It is the authority for
// membership; the per-connection room set is only a cleanup cache. Every
// method treats a backend failure as deny / empty, never as a crash.
type RoomOracle interface {
	IsMember(ctx context.Context, userID, roomID string) bool
	AddMember(ctx context.Context, userID, roomID string) bool
	RemoveMember(ctx context.Context, userID, roomID string) bool
	MembersOf(ctx context.Context, roomID string) map[string]struct{}
}

// StoredMessage is what the message store hands back after persisting a
// room message. The json tags match the SEND_MESSAGE broadcast payload.
type StoredMessage struct {
	ID         string    `json:"messageId"`
	Content    string    `json:"content"`
	UserID     string    `json:"userId"`
	SenderName string    `json:"username"`
	RoomID     string    `json:"roomId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessageStore persists room messages.
type MessageStore interface {
	Create(ctx context.Context, userID, roomID, content string) (*StoredMessage, error)
}

// PresenceSink records online/offline state for external consumers.
// Best effort: implementations log failures and never block message flow.
type PresenceSink interface {
	SetOnline(ctx context.Context, userID string, online bool)
}

// StatusEvent is the outward-facing presence event published to the feed.
type StatusEvent struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId,omitempty"`
	Status string `json:"status"`
	Ts     int64  `json:"ts"`
}

// EventFeed publishes presence transitions to an external bus. Best effort.
type EventFeed interface {
	PublishStatus(ev StatusEvent)
}
