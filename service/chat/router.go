package chat

import (
	"context"
	"encoding/json"
	"time"

	"chathub/logger"
	"chathub/tools/decode"
	"chathub/tools/errs"
)

// Handler processes one inbound envelope tag. Handlers convert every
// failure into an error reply to the sender or a log entry; nothing
// propagates.
type Handler interface {
	Tag() Tag
	Handle(ctx context.Context, c *Client, payload json.RawMessage)
}

// Router dispatches inbound envelopes to the handler registered for their
// tag. It is stateless across calls; all side effects live in the handlers.
type Router struct {
	handlers map[Tag]Handler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[Tag]Handler)}
}

func (r *Router) Register(h Handler) { r.handlers[h.Tag()] = h }

// Dispatch routes env to its handler. Unknown tags are dropped on purpose:
// newer clients may emit tags this hub does not implement yet.
func (r *Router) Dispatch(ctx context.Context, c *Client, env *Envelope) {
	h, ok := r.handlers[env.Type]
	if !ok {
		logger.Debugf("[router] no handler for type=%s user=%s", env.Type, c.UserID)
		return
	}
	h.Handle(ctx, c, env.Payload)
}

// ===== handlers =====

type joinRoomHandler struct{ s *Server }

func (h *joinRoomHandler) Tag() Tag { return TagJoinRoom }

func (h *joinRoomHandler) Handle(ctx context.Context, c *Client, raw json.RawMessage) {
	p, err := decode.Payload[JoinRoomPayload](raw)
	if err == nil {
		err = p.validate()
	}
	if err != nil {
		h.s.sendError(c, errs.ErrRoomJoin.WithDetail(err.Error()))
		return
	}
	if !h.s.deps.Oracle.AddMember(ctx, c.UserID, p.RoomID) {
		h.s.sendError(c, errs.ErrRoomJoin)
		return
	}
	c.addRoom(p.RoomID)
	h.s.broadcastToRoom(ctx, p.RoomID, BuildUserStatus(c.UserID, StatusJoined, p.RoomID), nil)
	h.s.publishStatus(c.UserID, StatusJoined, p.RoomID)
}

type leaveRoomHandler struct{ s *Server }

func (h *leaveRoomHandler) Tag() Tag { return TagLeaveRoom }

func (h *leaveRoomHandler) Handle(ctx context.Context, c *Client, raw json.RawMessage) {
	p, err := decode.Payload[LeaveRoomPayload](raw)
	if err == nil {
		err = p.validate()
	}
	if err != nil {
		h.s.sendError(c, errs.ErrRoomLeave.WithDetail(err.Error()))
		return
	}
	if !h.s.deps.Oracle.RemoveMember(ctx, c.UserID, p.RoomID) {
		h.s.sendError(c, errs.ErrRoomLeave)
		return
	}
	c.removeRoom(p.RoomID)
	// The leaver is no longer a member, so this reaches everyone else.
	h.s.broadcastToRoom(ctx, p.RoomID, BuildUserStatus(c.UserID, StatusLeft, p.RoomID), nil)
	h.s.publishStatus(c.UserID, StatusLeft, p.RoomID)
}

type sendMessageHandler struct{ s *Server }

func (h *sendMessageHandler) Tag() Tag { return TagSendMessage }

func (h *sendMessageHandler) Handle(ctx context.Context, c *Client, raw json.RawMessage) {
	p, err := decode.Payload[SendMessagePayload](raw)
	if err == nil {
		err = p.validate()
	}
	if err != nil {
		h.s.sendError(c, errs.ErrMessageSend.WithDetail(err.Error()))
		return
	}
	if !h.s.deps.Oracle.IsMember(ctx, c.UserID, p.RoomID) {
		h.s.sendError(c, errs.ErrUnauthorized)
		return
	}
	msg, err := h.s.deps.Store.Create(ctx, c.UserID, p.RoomID, p.Content)
	if err != nil {
		logger.Errorf("[router] persist failed user=%s room=%s err=%v", c.UserID, p.RoomID, err)
		h.s.sendError(c, errs.ErrMessageSend)
		return
	}
	h.s.broadcastToRoom(ctx, p.RoomID, BuildRoomMessage(msg), nil)
}

type privateMessageHandler struct{ s *Server }

func (h *privateMessageHandler) Tag() Tag { return TagPrivateMessage }

func (h *privateMessageHandler) Handle(ctx context.Context, c *Client, raw json.RawMessage) {
	p, err := decode.Payload[PrivateMessagePayload](raw)
	if err == nil {
		err = p.validate()
	}
	if err != nil {
		h.s.sendError(c, errs.ErrPrivateMessage.WithDetail(err.Error()))
		return
	}
	rc, ok := h.s.reg.Lookup(p.RecipientID)
	if !ok {
		h.s.sendError(c, errs.ErrRecipientNotFound)
		return
	}
	payload, err := Marshal(BuildPrivateMessage(c.UserID, p.Content, time.Now().UTC()))
	if err != nil {
		h.s.sendError(c, errs.ErrPrivateMessage)
		return
	}
	// Direct delivery only, never persisted. Rides the dispatcher so it
	// cannot overtake a broadcast queued for the recipient earlier.
	h.s.fanout.Broadcast([]*Client{rc}, payload)
}

// typingHandler serves both TYPING_START and TYPING_STOP.
type typingHandler struct {
	s     *Server
	start bool
}

func (h *typingHandler) Tag() Tag {
	if h.start {
		return TagTypingStart
	}
	return TagTypingStop
}

func (h *typingHandler) Handle(ctx context.Context, c *Client, raw json.RawMessage) {
	p, err := decode.Payload[TypingPayload](raw)
	if err == nil {
		err = p.validate()
	}
	if err != nil {
		h.s.sendError(c, errs.ErrTypingStatus.WithDetail(err.Error()))
		return
	}
	if !h.s.deps.Oracle.IsMember(ctx, c.UserID, p.RoomID) {
		h.s.sendError(c, errs.ErrUnauthorized)
		return
	}
	if h.start {
		h.s.typing.start(c, p.RoomID)
		h.s.broadcastTyping(ctx, c, p.RoomID, true)
	} else {
		h.s.typing.stop(c, p.RoomID)
		h.s.broadcastTyping(ctx, c, p.RoomID, false)
	}
}
