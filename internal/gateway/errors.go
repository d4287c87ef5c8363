package gateway

import "errors"

var (
	ErrConnClosed       = errors.New("connection closed")
	ErrWriteChannelFull = errors.New("write channel full")
	ErrInvalidProtocol  = errors.New("unknown request identifier")
	ErrUserIdMismatch   = errors.New("request user does not match connection user")
	ErrPanic            = errors.New("connection handler panicked")
	// ErrFeedClosed is reported when the Redis change feed subscription ends
	ErrFeedClosed = errors.New("change feed closed")
	// ErrMalformedChange marks a feed payload that is not a JSON change row
	ErrMalformedChange = errors.New("malformed change payload")
)
