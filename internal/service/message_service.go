package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/internal/config"
	"github.com/mbeoliero/inbox/internal/entity"
	"github.com/mbeoliero/inbox/internal/repository"
	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/mbeoliero/inbox/pkg/idgen"
	"gorm.io/gorm"
)

// MessageService handles message-related business logic
type MessageService struct {
	msgRepo  *repository.MessageRepo
	convRepo *repository.ConversationRepo
	repos    *repository.Repositories
	cfg      *config.Config
	feed     *feed
}

// NewMessageService creates a new MessageService
func NewMessageService(repos *repository.Repositories, cfg *config.Config) *MessageService {
	return &MessageService{
		msgRepo:  repos.Message,
		convRepo: repos.Conversation,
		repos:    repos,
		cfg:      cfg,
	}
}

// SetPublisher sets the change publisher
func (s *MessageService) SetPublisher(pub ChangePublisher) {
	s.feed = &feed{pub: pub, timeout: s.cfg.Feed.PublishTimeout}
}

// SendMessageRequest represents send message request
type SendMessageRequest struct {
	ConversationId string `json:"conversation_id"`
	Content        string `json:"content"`
	ClientMsgId    string `json:"client_msg_id"`
}

// SendMessage appends a message to a conversation. Retries carrying the same
// client_msg_id return the stored message.
func (s *MessageService) SendMessage(ctx context.Context, senderId string, req *SendMessageRequest) (*chatsync.Message, error) {
	if req.ConversationId == "" {
		return nil, errcode.ErrInvalidParam
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errcode.ErrEmptyContent
	}
	if utf8.RuneCountInString(req.Content) > s.cfg.Inbox.MaxContentLength {
		return nil, errcode.ErrContentTooLong
	}
	if req.ClientMsgId == "" {
		req.ClientMsgId = uuid.NewString()
	}

	// Check for idempotency
	existing, err := s.msgRepo.GetByClientMsgId(ctx, senderId, req.ClientMsgId)
	if err != nil {
		log.CtxError(ctx, "check idempotency failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if existing != nil {
		if existing.ConversationId != req.ConversationId {
			return nil, errcode.ErrInvalidParam
		}
		log.CtxDebug(ctx, "duplicate message: client_msg_id=%s", req.ClientMsgId)
		return existing.ToMessageInfo(), nil
	}

	conv, err := s.convRepo.GetById(ctx, req.ConversationId)
	if err != nil {
		log.CtxError(ctx, "get conversation failed: conversation_id=%s, error=%v", req.ConversationId, err)
		return nil, errcode.ErrInternalServer
	}
	if conv == nil {
		return nil, errcode.ErrConvNotFound
	}
	if conv.Archived {
		return nil, errcode.ErrConvArchived
	}
	member, err := s.convRepo.GetMember(ctx, conv.Id, senderId)
	if err != nil {
		log.CtxError(ctx, "get member failed: conversation_id=%s, user_id=%s, error=%v", conv.Id, senderId, err)
		return nil, errcode.ErrInternalServer
	}
	if member == nil {
		return nil, errcode.ErrNotParticipant
	}

	msgId, err := idgen.NextID()
	if err != nil {
		log.CtxError(ctx, "generate message id failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	msg := &entity.Message{
		Id:             msgId,
		ConversationId: conv.Id,
		SenderId:       senderId,
		ClientMsgId:    req.ClientMsgId,
		Content:        req.Content,
		CreatedAt:      entity.NowUnixMilli(),
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.msgRepo.Create(ctx, tx, msg); err != nil {
			return err
		}
		if err := s.convRepo.TouchOnMessage(ctx, tx, msg); err != nil {
			return err
		}
		// the sender has read everything up to its own message
		return s.convRepo.AdvanceReadCursor(ctx, tx, conv.Id, senderId, msg.CreatedAt)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		dup, gerr := s.msgRepo.GetByClientMsgId(ctx, senderId, req.ClientMsgId)
		if gerr == nil && dup != nil {
			return dup.ToMessageInfo(), nil
		}
		log.CtxError(ctx, "reload duplicate message failed: client_msg_id=%s, error=%v", req.ClientMsgId, gerr)
		return nil, errcode.ErrSendFailed
	}
	if err != nil {
		log.CtxError(ctx, "send message failed: conversation_id=%s, error=%v", conv.Id, err)
		return nil, errcode.ErrSendFailed
	}

	info := msg.ToMessageInfo()
	s.publish(ctx, conv.Id, info)

	log.CtxInfo(ctx, "message sent: sender_id=%s, conversation_id=%s, message_id=%s", senderId, conv.Id, msg.Id)
	return info, nil
}

// publish sends the message insert and the refreshed conversation row to every participant
func (s *MessageService) publish(ctx context.Context, conversationId string, info *chatsync.Message) {
	conv, err := s.convRepo.GetById(ctx, conversationId)
	if err != nil || conv == nil {
		log.CtxWarn(ctx, "reload conversation failed: conversation_id=%s, error=%v", conversationId, err)
		return
	}
	members, err := s.convRepo.GetMembers(ctx, []string{conversationId})
	if err != nil {
		log.CtxWarn(ctx, "get conversation members failed: conversation_id=%s, error=%v", conversationId, err)
		return
	}
	convInfo := conv.ToConversationInfo(members[conversationId])

	s.feed.publish(ctx, convInfo.Participants, chatsync.KindMessage, chatsync.OpInsert, info)
	s.feed.publish(ctx, convInfo.Participants, chatsync.KindConversation, chatsync.OpUpdate, convInfo)
}

// ListMessagesRequest represents list messages request
type ListMessagesRequest struct {
	ConversationId string
	Before         int64
	Limit          int
}

// ListMessages returns a page of messages older than Before, oldest first
func (s *MessageService) ListMessages(ctx context.Context, userId string, req *ListMessagesRequest) ([]*chatsync.Message, error) {
	if req.ConversationId == "" {
		return nil, errcode.ErrInvalidParam
	}
	member, err := s.convRepo.GetMember(ctx, req.ConversationId, userId)
	if err != nil {
		log.CtxError(ctx, "get member failed: conversation_id=%s, user_id=%s, error=%v", req.ConversationId, userId, err)
		return nil, errcode.ErrInternalServer
	}
	if member == nil {
		return nil, errcode.ErrNotParticipant
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.Inbox.DefaultPageSize
	}
	if limit > s.cfg.Inbox.MaxPageSize {
		limit = s.cfg.Inbox.MaxPageSize
	}

	messages, err := s.msgRepo.ListBefore(ctx, req.ConversationId, req.Before, limit)
	if err != nil {
		log.CtxError(ctx, "list messages failed: conversation_id=%s, error=%v", req.ConversationId, err)
		return nil, errcode.ErrPullFailed
	}

	result := make([]*chatsync.Message, 0, len(messages))
	for _, m := range messages {
		result = append(result, m.ToMessageInfo())
	}
	return result, nil
}
