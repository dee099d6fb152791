package chat

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"chathub/tools/errs"
)

// Tag discriminates envelope payload shapes.
type Tag string

const (
	TagJoinRoom       Tag = "JOIN_ROOM"
	TagLeaveRoom      Tag = "LEAVE_ROOM"
	TagSendMessage    Tag = "SEND_MESSAGE"
	TagPrivateMessage Tag = "PRIVATE_MESSAGE"
	TagUserStatus     Tag = "USER_STATUS"
	TagTypingStart    Tag = "TYPING_START"
	TagTypingStop     Tag = "TYPING_STOP"
	TagError          Tag = "ERROR"
)

// USER_STATUS status values.
const (
	StatusJoined  = "joined"
	StatusLeft    = "left"
	StatusOffline = "offline"
)

// Envelope is the wire unit: a type tag plus a tag-specific payload.
// Envelopes are immutable once constructed; the router never mutates an
// inbound one, only builds new outbound ones.
type Envelope struct {
	Type    Tag             `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseEnvelope decodes the outer envelope. Payload stays raw; per-tag
// decoding happens at the handler boundary.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal envelope")
	}
	if env.Type == "" {
		return nil, errors.New("envelope missing type")
	}
	return &env, nil
}

func Marshal(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errs.WrapMsg(err, "marshal envelope")
	}
	return data, nil
}

// ===== inbound payloads =====

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

func (p *JoinRoomPayload) validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	return nil
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

func (p *LeaveRoomPayload) validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	return nil
}

type SendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

func (p *SendMessagePayload) validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	if p.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

type PrivateMessagePayload struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

func (p *PrivateMessagePayload) validate() error {
	if p.RecipientID == "" {
		return errors.New("recipientId is required")
	}
	if p.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

type TypingPayload struct {
	RoomID string `json:"roomId"`
}

func (p *TypingPayload) validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	return nil
}

// ===== outbound payloads / builders =====

type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
	RoomID string `json:"roomId"`
}

type TypingStatusPayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

type PrivateDeliveryPayload struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}

func mustPayload(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Builders only marshal plain structs defined in this package.
		panic(err)
	}
	return data
}

func BuildUserStatus(userID, status, roomID string) *Envelope {
	return &Envelope{
		Type:    TagUserStatus,
		Payload: mustPayload(UserStatusPayload{UserID: userID, Status: status, RoomID: roomID}),
	}
}

func BuildTyping(typing bool, userID, roomID string) *Envelope {
	tag := TagTypingStop
	if typing {
		tag = TagTypingStart
	}
	return &Envelope{
		Type:    tag,
		Payload: mustPayload(TypingStatusPayload{UserID: userID, RoomID: roomID}),
	}
}

func BuildRoomMessage(m *StoredMessage) *Envelope {
	return &Envelope{Type: TagSendMessage, Payload: mustPayload(m)}
}

func BuildPrivateMessage(senderID, content string, ts time.Time) *Envelope {
	return &Envelope{
		Type:    TagPrivateMessage,
		Payload: mustPayload(PrivateDeliveryPayload{Content: content, SenderID: senderID, Timestamp: ts}),
	}
}

func BuildError(e errs.CodeError) *Envelope {
	return &Envelope{Type: TagError, Payload: mustPayload(e)}
}
