package chatsync

import (
	"errors"
	"fmt"
)

var (
	// ErrRejectedWrite marks a write the store refused. Optimistic state is rolled back.
	ErrRejectedWrite = errors.New("write rejected")
	// ErrMalformedEvent marks a change notification that could not be decoded
	ErrMalformedEvent = errors.New("malformed event")
	// ErrTransient marks a network failure that is worth retrying
	ErrTransient = errors.New("transient network error")

	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidParticipants  = errors.New("conversation needs at least two participants")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrEngineClosed         = errors.New("engine closed")
)

// Rejected wraps a store error as a rejected write
func Rejected(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRejectedWrite, err)
}

// Transient wraps a store error as retryable
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsRejected reports whether err is a rejected write
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejectedWrite)
}

// IsTransient reports whether err is worth retrying. Errors that are
// neither rejected nor explicitly transient are treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	return !errors.Is(err, ErrRejectedWrite) && !errors.Is(err, ErrConversationNotFound)
}
