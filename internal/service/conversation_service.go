package service

import (
	"context"
	"errors"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/internal/config"
	"github.com/mbeoliero/inbox/internal/entity"
	"github.com/mbeoliero/inbox/internal/repository"
	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/mbeoliero/inbox/pkg/idgen"
	"gorm.io/gorm"
)

// ConversationService handles conversation-related business logic
type ConversationService struct {
	convRepo *repository.ConversationRepo
	repos    *repository.Repositories
	cfg      *config.Config
	feed     *feed
}

// NewConversationService creates a new ConversationService
func NewConversationService(repos *repository.Repositories, cfg *config.Config) *ConversationService {
	return &ConversationService{
		convRepo: repos.Conversation,
		repos:    repos,
		cfg:      cfg,
	}
}

// SetPublisher sets the change publisher
func (s *ConversationService) SetPublisher(pub ChangePublisher) {
	s.feed = &feed{pub: pub, timeout: s.cfg.Feed.PublishTimeout}
}

// FindOrCreateRequest represents find or create conversation request
type FindOrCreateRequest struct {
	Participants []string `json:"participants"`
	ContextTag   string   `json:"context_tag"`
	Title        string   `json:"title,omitempty"`
}

// FindOrCreate returns the conversation of the participant set and context tag,
// creating it on first use. The caller is always a participant.
func (s *ConversationService) FindOrCreate(ctx context.Context, userId string, req *FindOrCreateRequest) (*chatsync.Conversation, error) {
	parts := chatsync.NormalizeParticipants(append(append([]string(nil), req.Participants...), userId))
	if len(parts) < 2 {
		return nil, errcode.ErrInvalidParticipants
	}
	if len(parts) > s.cfg.Inbox.MaxParticipants {
		return nil, errcode.ErrTooManyParticipants
	}

	key := entity.GenParticipantKey(parts)
	tag := chatsync.NormalizeContextTag(req.ContextTag)

	existing, err := s.convRepo.GetByKey(ctx, key, tag)
	if err != nil {
		log.CtxError(ctx, "get conversation by key failed: key=%s, tag=%s, error=%v", key, tag, err)
		return nil, errcode.ErrInternalServer
	}
	if existing != nil {
		return s.info(ctx, existing)
	}

	convId, err := idgen.NextID()
	if err != nil {
		log.CtxError(ctx, "generate conversation id failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	conv := &entity.Conversation{
		Id:             convId,
		ParticipantKey: key,
		ContextTag:     tag,
		CreatorId:      userId,
		Title:          req.Title,
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		return s.convRepo.CreateWithMembers(ctx, tx, conv, parts)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost the race to a concurrent creator, return the winner
		winner, gerr := s.convRepo.GetByKey(ctx, key, tag)
		if gerr != nil || winner == nil {
			log.CtxError(ctx, "reload conversation after duplicate failed: key=%s, tag=%s, error=%v", key, tag, gerr)
			return nil, errcode.ErrInternalServer
		}
		log.CtxDebug(ctx, "conversation created concurrently: conversation_id=%s", winner.Id)
		return s.info(ctx, winner)
	}
	if err != nil {
		log.CtxError(ctx, "create conversation failed: key=%s, tag=%s, error=%v", key, tag, err)
		return nil, errcode.ErrInternalServer
	}

	info, err := s.info(ctx, conv)
	if err != nil {
		return nil, err
	}
	s.feed.publish(ctx, info.Participants, chatsync.KindConversation, chatsync.OpInsert, info)

	log.CtxInfo(ctx, "conversation created: conversation_id=%s, creator_id=%s, participants=%d", conv.Id, userId, len(parts))
	return info, nil
}

// GetUserConversations gets all conversations for a user
func (s *ConversationService) GetUserConversations(ctx context.Context, userId string) ([]*chatsync.Conversation, error) {
	convs, err := s.convRepo.GetUserConversations(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "get user conversations failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.Id)
	}
	members, err := s.convRepo.GetMembers(ctx, ids)
	if err != nil {
		log.CtxError(ctx, "get conversation members failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	result := make([]*chatsync.Conversation, 0, len(convs))
	for _, c := range convs {
		result = append(result, c.ToConversationInfo(members[c.Id]))
	}
	return result, nil
}

// UpdateReadCursorRequest represents read cursor update request
type UpdateReadCursorRequest struct {
	ConversationId string `json:"conversation_id"`
	ReadAt         int64  `json:"read_at"`
}

// UpdateReadCursor advances the caller's read cursor. Lower values are ignored.
func (s *ConversationService) UpdateReadCursor(ctx context.Context, userId string, req *UpdateReadCursorRequest) error {
	if req.ConversationId == "" || req.ReadAt <= 0 {
		return errcode.ErrInvalidParam
	}
	if _, err := s.checkMember(ctx, userId, req.ConversationId); err != nil {
		return err
	}

	if err := s.convRepo.AdvanceReadCursor(ctx, nil, req.ConversationId, userId, req.ReadAt); err != nil {
		log.CtxError(ctx, "advance read cursor failed: user_id=%s, conversation_id=%s, error=%v", userId, req.ConversationId, err)
		return errcode.ErrInternalServer
	}
	if err := s.convRepo.Bump(ctx, req.ConversationId); err != nil {
		log.CtxWarn(ctx, "bump conversation failed: conversation_id=%s, error=%v", req.ConversationId, err)
	}

	s.publishUpdate(ctx, req.ConversationId)
	return nil
}

// SetArchivedRequest represents archive request
type SetArchivedRequest struct {
	ConversationId string `json:"conversation_id"`
	Archived       bool   `json:"archived"`
}

// SetArchived archives or restores a conversation. Archived conversations reject new messages.
func (s *ConversationService) SetArchived(ctx context.Context, userId string, req *SetArchivedRequest) error {
	if req.ConversationId == "" {
		return errcode.ErrInvalidParam
	}
	if _, err := s.checkMember(ctx, userId, req.ConversationId); err != nil {
		return err
	}

	if err := s.convRepo.SetArchived(ctx, req.ConversationId, req.Archived); err != nil {
		log.CtxError(ctx, "set archived failed: conversation_id=%s, error=%v", req.ConversationId, err)
		return errcode.ErrInternalServer
	}

	s.publishUpdate(ctx, req.ConversationId)
	log.CtxInfo(ctx, "conversation archived: conversation_id=%s, archived=%v, user_id=%s", req.ConversationId, req.Archived, userId)
	return nil
}

// checkMember loads the conversation and verifies userId takes part in it
func (s *ConversationService) checkMember(ctx context.Context, userId, conversationId string) (*entity.Conversation, error) {
	conv, err := s.convRepo.GetById(ctx, conversationId)
	if err != nil {
		log.CtxError(ctx, "get conversation failed: conversation_id=%s, error=%v", conversationId, err)
		return nil, errcode.ErrInternalServer
	}
	if conv == nil {
		return nil, errcode.ErrConvNotFound
	}

	member, err := s.convRepo.GetMember(ctx, conversationId, userId)
	if err != nil {
		log.CtxError(ctx, "get member failed: conversation_id=%s, user_id=%s, error=%v", conversationId, userId, err)
		return nil, errcode.ErrInternalServer
	}
	if member == nil {
		return nil, errcode.ErrNotParticipant
	}
	return conv, nil
}

// publishUpdate reloads the row and sends it to every participant
func (s *ConversationService) publishUpdate(ctx context.Context, conversationId string) {
	conv, err := s.convRepo.GetById(ctx, conversationId)
	if err != nil || conv == nil {
		log.CtxWarn(ctx, "reload conversation failed: conversation_id=%s, error=%v", conversationId, err)
		return
	}
	info, err := s.info(ctx, conv)
	if err != nil {
		return
	}
	s.feed.publish(ctx, info.Participants, chatsync.KindConversation, chatsync.OpUpdate, info)
}

func (s *ConversationService) info(ctx context.Context, conv *entity.Conversation) (*chatsync.Conversation, error) {
	members, err := s.convRepo.GetMembers(ctx, []string{conv.Id})
	if err != nil {
		log.CtxError(ctx, "get conversation members failed: conversation_id=%s, error=%v", conv.Id, err)
		return nil, errcode.ErrInternalServer
	}
	return conv.ToConversationInfo(members[conv.Id]), nil
}
