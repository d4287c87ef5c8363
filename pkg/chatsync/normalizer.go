package chatsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mbeoliero/kit/log"
)

// Event is the closed set of normalized change events
type Event interface {
	isEvent()
}

// MessageInserted carries a newly stored message
type MessageInserted struct {
	Message *Message
}

// ConversationChanged carries an inserted or updated conversation row
type ConversationChanged struct {
	Conversation *Conversation
}

// NotificationInserted carries a new notification
type NotificationInserted struct {
	Notification *Notification
}

// NotificationUpdated carries a notification whose read state or content changed
type NotificationUpdated struct {
	Notification *Notification
}

// Ignored is emitted for invisible or malformed rows
type Ignored struct {
	Reason string
}

func (MessageInserted) isEvent()      {}
func (ConversationChanged) isEvent()  {}
func (NotificationInserted) isEvent() {}
func (NotificationUpdated) isEvent()  {}
func (Ignored) isEvent()              {}

// ConversationLookup resolves a conversation known to the session
type ConversationLookup interface {
	Get(conversationId string) (*Conversation, bool)
}

// Normalizer turns raw change notifications into events visible to one user
type Normalizer struct {
	userId string
	convs  ConversationLookup
}

// NewNormalizer creates a Normalizer for userId
func NewNormalizer(userId string, convs ConversationLookup) *Normalizer {
	return &Normalizer{userId: userId, convs: convs}
}

// Normalize decodes raw. Malformed rows are logged and turned into Ignored.
func (n *Normalizer) Normalize(ctx context.Context, raw RawChange) Event {
	ev, err := n.decode(raw)
	if err != nil {
		log.CtxWarn(ctx, "drop change: kind=%s, op=%s, error=%v", raw.EntityKind, raw.Operation, err)
		return Ignored{Reason: err.Error()}
	}
	return ev
}

func (n *Normalizer) decode(raw RawChange) (Event, error) {
	if raw.Operation != OpInsert && raw.Operation != OpUpdate {
		return nil, fmt.Errorf("%w: unknown operation %q", ErrMalformedEvent, raw.Operation)
	}
	if len(raw.Row) == 0 {
		return nil, fmt.Errorf("%w: empty row", ErrMalformedEvent)
	}

	switch raw.EntityKind {
	case KindMessage:
		var msg Message
		if err := json.Unmarshal(raw.Row, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if msg.Id == "" || msg.ConversationId == "" {
			return nil, fmt.Errorf("%w: message without id", ErrMalformedEvent)
		}
		// messages are immutable, an update carries nothing new
		if raw.Operation == OpUpdate {
			return Ignored{Reason: "message update"}, nil
		}
		msg.Pending = false
		// unknown conversations pass through and are settled by hydration
		if conv, ok := n.convs.Get(msg.ConversationId); ok && !conv.HasParticipant(n.userId) {
			return Ignored{Reason: "not a participant"}, nil
		}
		return MessageInserted{Message: &msg}, nil

	case KindConversation:
		var conv Conversation
		if err := json.Unmarshal(raw.Row, &conv); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if conv.Id == "" {
			return nil, fmt.Errorf("%w: conversation without id", ErrMalformedEvent)
		}
		conv.Participants = NormalizeParticipants(conv.Participants)
		if !conv.HasParticipant(n.userId) {
			return Ignored{Reason: "not a participant"}, nil
		}
		return ConversationChanged{Conversation: &conv}, nil

	case KindNotification:
		var nt Notification
		if err := json.Unmarshal(raw.Row, &nt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if nt.Id == "" {
			return nil, fmt.Errorf("%w: notification without id", ErrMalformedEvent)
		}
		if nt.OwnerId != n.userId {
			return Ignored{Reason: "not the owner"}, nil
		}
		if raw.Operation == OpInsert {
			return NotificationInserted{Notification: &nt}, nil
		}
		return NotificationUpdated{Notification: &nt}, nil
	}

	return nil, fmt.Errorf("%w: unknown entity kind %q", ErrMalformedEvent, raw.EntityKind)
}
