package errcode

import (
	"errors"
	"fmt"
)

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// Is matches errors carrying the same code, so wrapped copies still compare equal
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// Retryable reports whether a client may retry the call unchanged
func (e *Error) Retryable() bool {
	return e.Code == ErrInternalServer.Code || e.Code == ErrTooManyRequests.Code || e.Code == ErrPublishFailed.Code
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam    = New(1001, "invalid parameter")
	ErrInternalServer  = New(1002, "internal server error")
	ErrUnauthorized    = New(1003, "unauthorized")
	ErrForbidden       = New(1004, "forbidden")
	ErrNotFound        = New(1005, "not found")
	ErrTooManyRequests = New(1006, "too many requests")
	ErrNoPermission    = New(1007, "no permission to access this resource")

	// Auth errors (2xxx)
	ErrTokenInvalid  = New(2001, "token invalid")
	ErrTokenExpired  = New(2002, "token expired")
	ErrTokenMissing  = New(2003, "token missing")
	ErrTokenMismatch = New(2004, "token user mismatch")

	// Conversation errors (3xxx)
	ErrConvNotFound        = New(3001, "conversation not found")
	ErrConvArchived        = New(3002, "conversation archived")
	ErrNotParticipant      = New(3003, "not a conversation participant")
	ErrInvalidParticipants = New(3004, "invalid participants")
	ErrTooManyParticipants = New(3005, "too many participants")

	// Message errors (4xxx)
	ErrMessageNotFound = New(4001, "message not found")
	ErrEmptyContent    = New(4002, "empty message content")
	ErrContentTooLong  = New(4003, "message content too long")
	ErrSendFailed      = New(4004, "message send failed")
	ErrPullFailed      = New(4005, "message pull failed")

	// WebSocket errors (5xxx)
	ErrConnOverLimit   = New(5001, "connection over max limit")
	ErrConnClosed      = New(5002, "connection closed")
	ErrInvalidProtocol = New(5003, "invalid protocol")
	ErrPushFailed      = New(5004, "push change failed")

	// Notification errors (6xxx)
	ErrNotificationNotFound = New(6001, "notification not found")
	ErrInvalidNotifyType    = New(6002, "invalid notification type")

	// Feed errors (7xxx)
	ErrPublishFailed = New(7001, "change publish failed")
)
