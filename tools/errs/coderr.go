package errs

import (
	"strings"

	"github.com/pkg/errors"
)

// CodeError is the structured error shape carried by ERROR envelopes.
// Code is a stable machine-readable identifier; Msg is for humans; Detail
// is optional per-occurrence context.
type CodeError struct {
	Code   string `json:"code"`
	Msg    string `json:"message"`
	Detail string `json:"details,omitempty"`
}

func NewCodeError(code, msg string) CodeError {
	return CodeError{Code: code, Msg: msg}
}

// WithDetail returns a copy carrying extra context. The receiver is not
// mutated so the predefined errors below stay constant.
func (e CodeError) WithDetail(detail string) CodeError {
	if e.Detail != "" {
		detail = e.Detail + ", " + detail
	}
	return CodeError{Code: e.Code, Msg: e.Msg, Detail: detail}
}

func (e CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, e.Code, e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// Is matches on Code only, so wrapped occurrences with differing detail
// still compare equal under errors.Is.
func (e CodeError) Is(err error) bool {
	var ce CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Wrap attaches a stack trace via pkg/errors.
func Wrap(err error) error {
	return errors.WithStack(err)
}

// WrapMsg annotates err with msg and a stack trace.
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wire error codes. The code strings are part of the client protocol;
// renaming one is a breaking change.
var (
	ErrConnection        = NewCodeError("CONNECTION_ERROR", "failed to establish connection")
	ErrMalformedMessage  = NewCodeError("MESSAGE_PROCESSING_ERROR", "invalid message format")
	ErrMessageHandling   = NewCodeError("MESSAGE_HANDLING_ERROR", "failed to process message")
	ErrRoomJoin          = NewCodeError("ROOM_JOIN_ERROR", "failed to join room")
	ErrRoomLeave         = NewCodeError("ROOM_LEAVE_ERROR", "failed to leave room")
	ErrUnauthorized      = NewCodeError("UNAUTHORIZED", "not a member of this room")
	ErrMessageSend       = NewCodeError("MESSAGE_SEND_ERROR", "failed to send message")
	ErrRecipientNotFound = NewCodeError("RECIPIENT_NOT_FOUND", "recipient not found or offline")
	ErrPrivateMessage    = NewCodeError("PRIVATE_MESSAGE_ERROR", "failed to send private message")
	ErrTypingStatus      = NewCodeError("TYPING_STATUS_ERROR", "failed to update typing status")
	ErrTokenInvalid      = NewCodeError("TOKEN_INVALID", "invalid or expired token")
)
