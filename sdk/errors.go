package sdk

import (
	"fmt"

	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/errcode"
)

// classify maps an API error onto the sync engine's error taxonomy
func classify(e *errcode.Error) error {
	if e.Retryable() {
		return chatsync.Transient(e)
	}

	switch e.Code {
	case errcode.ErrConvNotFound.Code:
		return chatsync.Rejected(fmt.Errorf("%w: %w", chatsync.ErrConversationNotFound, e))
	case errcode.ErrNotificationNotFound.Code:
		return chatsync.Rejected(fmt.Errorf("%w: %w", chatsync.ErrNotificationNotFound, e))
	case errcode.ErrEmptyContent.Code:
		return chatsync.Rejected(fmt.Errorf("%w: %w", chatsync.ErrEmptyContent, e))
	case errcode.ErrInvalidParticipants.Code:
		return chatsync.Rejected(fmt.Errorf("%w: %w", chatsync.ErrInvalidParticipants, e))
	}
	return chatsync.Rejected(e)
}
