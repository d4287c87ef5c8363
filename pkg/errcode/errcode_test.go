package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Wrap(t *testing.T) {
	wrapped := ErrSendFailed.Wrap(errors.New("db down"))
	assert.Equal(t, ErrSendFailed.Code, wrapped.Code)
	assert.Equal(t, "message send failed: db down", wrapped.Msg)
	assert.Same(t, ErrSendFailed, ErrSendFailed.Wrap(nil))
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("send: %w", ErrConvArchived.Wrap(errors.New("id=1")))
	assert.ErrorIs(t, err, ErrConvArchived)
	assert.NotErrorIs(t, err, ErrConvNotFound)
}

func TestError_Retryable(t *testing.T) {
	assert.True(t, ErrInternalServer.Retryable())
	assert.True(t, ErrPublishFailed.Wrap(errors.New("x")).Retryable())
	assert.False(t, ErrNotParticipant.Retryable())
	assert.False(t, ErrInvalidParam.Retryable())
}
