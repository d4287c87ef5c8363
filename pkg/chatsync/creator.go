package chatsync

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// conversationIndex is the session state the Creator consults and feeds
type conversationIndex interface {
	lookup(ctx context.Context, participantKey, contextTag string) (string, bool, error)
	adopt(ctx context.Context, conv *Conversation) error
}

// Creator finds or creates the single conversation for a participant set and context tag.
// Concurrent calls for the same key share one store request.
type Creator struct {
	userId string
	store  Store
	index  conversationIndex
	group  singleflight.Group
}

// NewCreator creates a Creator acting for userId
func NewCreator(userId string, store Store, index conversationIndex) *Creator {
	return &Creator{userId: userId, store: store, index: index}
}

// Participants normalizes a participant list and adds the acting user
func (c *Creator) Participants(participants []string) ([]string, error) {
	parts := NormalizeParticipants(append(append([]string(nil), participants...), c.userId))
	if len(parts) < 2 {
		return nil, ErrInvalidParticipants
	}
	return parts, nil
}

// FindOrCreate returns the id of the conversation for participants and contextTag.
// A known conversation costs no store write.
func (c *Creator) FindOrCreate(ctx context.Context, participants []string, contextTag string) (string, error) {
	parts, err := c.Participants(participants)
	if err != nil {
		return "", err
	}
	key := ParticipantKey(parts)
	contextTag = NormalizeContextTag(contextTag)

	if id, ok, err := c.index.lookup(ctx, key, contextTag); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	v, err, _ := c.group.Do(key+"#"+contextTag, func() (any, error) {
		// a call that finished while we waited may have filled the directory
		if id, ok, err := c.index.lookup(ctx, key, contextTag); err != nil {
			return "", err
		} else if ok {
			return id, nil
		}

		conv, err := c.store.CreateConversation(ctx, parts, contextTag)
		if err != nil {
			return "", err
		}
		if err := c.index.adopt(context.WithoutCancel(ctx), conv); err != nil {
			return "", err
		}
		return conv.Id, nil
	})
	if err != nil {
		if IsRejected(err) {
			return "", err
		}
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return v.(string), nil
}
