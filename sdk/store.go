package sdk

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mbeoliero/inbox/pkg/chatsync"
)

var _ chatsync.Store = (*Client)(nil)

// ListConversations lists the conversations of the token user
func (c *Client) ListConversations(ctx context.Context, _ string) ([]*chatsync.Conversation, error) {
	var result []*chatsync.Conversation
	if err := c.get(ctx, "/conversation/list", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListMessages returns up to limit messages older than before, oldest first
func (c *Client) ListMessages(ctx context.Context, conversationId string, before int64, limit int) ([]*chatsync.Message, error) {
	params := url.Values{}
	params.Set("conversation_id", conversationId)
	if before > 0 {
		params.Set("before", strconv.FormatInt(before, 10))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result []*chatsync.Message
	if err := c.get(ctx, "/message/list", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListNotifications lists the newest notifications of the token user
func (c *Client) ListNotifications(ctx context.Context, _ string, limit int) ([]*chatsync.Notification, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result []*chatsync.Notification
	if err := c.get(ctx, "/notification/list", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateConversation finds or creates the conversation of participants and contextTag
func (c *Client) CreateConversation(ctx context.Context, participants []string, contextTag string) (*chatsync.Conversation, error) {
	body := map[string]any{
		"participants": participants,
		"context_tag":  contextTag,
	}

	var result chatsync.Conversation
	if err := c.post(ctx, "/conversation/find_or_create", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendMessage sends a message. The sender is the token user.
func (c *Client) SendMessage(ctx context.Context, conversationId, _, content, clientMsgId string) (*chatsync.Message, error) {
	body := map[string]any{
		"conversation_id": conversationId,
		"content":         content,
		"client_msg_id":   clientMsgId,
	}

	var result chatsync.Message
	if err := c.post(ctx, "/message/send", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetReadCursor advances the read cursor of the token user
func (c *Client) SetReadCursor(ctx context.Context, _, conversationId string, readAt int64) error {
	body := map[string]any{
		"conversation_id": conversationId,
		"read_at":         readAt,
	}
	return c.put(ctx, "/conversation/read_cursor", body, nil)
}

// SetArchived archives or restores a conversation
func (c *Client) SetArchived(ctx context.Context, conversationId string, archived bool) error {
	body := map[string]any{
		"conversation_id": conversationId,
		"archived":        archived,
	}
	return c.put(ctx, "/conversation/archive", body, nil)
}

// MarkNotificationRead marks one notification read
func (c *Client) MarkNotificationRead(ctx context.Context, notificationId string) error {
	return c.put(ctx, "/notification/read", map[string]any{"id": notificationId}, nil)
}

// ClearNotifications deletes all notifications of the token user
func (c *Client) ClearNotifications(ctx context.Context, _ string) error {
	return c.delete(ctx, "/notification/clear", nil)
}

// CreateNotificationRequest is the producer payload. Requires a service token.
type CreateNotificationRequest struct {
	OwnerId   string            `json:"owner_id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body,omitempty"`
	Link      map[string]string `json:"link,omitempty"`
	DeliverAt int64             `json:"deliver_at,omitempty"`
}

// CreateNotificationResponse holds the stored row, or the task id of a scheduled delivery
type CreateNotificationResponse struct {
	Notification *chatsync.Notification `json:"notification,omitempty"`
	TaskId       string                 `json:"task_id,omitempty"`
}

// CreateNotification produces a notification for another user
func (c *Client) CreateNotification(ctx context.Context, req *CreateNotificationRequest) (*CreateNotificationResponse, error) {
	var result CreateNotificationResponse
	if err := c.post(ctx, "/notification/create", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
