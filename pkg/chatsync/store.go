package chatsync

import "context"

// Store is the request/response side of the backend
type Store interface {
	ListConversations(ctx context.Context, userId string) ([]*Conversation, error)
	// ListMessages returns up to limit messages older than before, oldest first.
	// before == 0 returns the latest page.
	ListMessages(ctx context.Context, conversationId string, before int64, limit int) ([]*Message, error)
	ListNotifications(ctx context.Context, userId string, limit int) ([]*Notification, error)

	CreateConversation(ctx context.Context, participants []string, contextTag string) (*Conversation, error)
	SendMessage(ctx context.Context, conversationId, senderId, content, clientMsgId string) (*Message, error)
	SetReadCursor(ctx context.Context, userId, conversationId string, readAt int64) error
	MarkNotificationRead(ctx context.Context, notificationId string) error
	ClearNotifications(ctx context.Context, userId string) error
}

// TransportSink receives push transport callbacks
type TransportSink interface {
	OnChange(change RawChange)
	// OnConnected fires after every successful (re)connect
	OnConnected()
	OnDisconnected(err error)
}

// Transport delivers change notifications for one user until ctx is done.
// Delivery is at-least-once while connected, unordered, and lossy across reconnects.
type Transport interface {
	Run(ctx context.Context, sink TransportSink) error
}
