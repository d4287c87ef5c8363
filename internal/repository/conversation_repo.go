package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/inbox/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepo is the repository for conversation and member operations
type ConversationRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB, rdb *redis.Client) *ConversationRepo {
	return &ConversationRepo{db: db, rdb: rdb}
}

// CreateWithMembers creates a conversation and its members in tx.
// Returns gorm.ErrDuplicatedKey when the participant key and context tag are taken.
func (r *ConversationRepo) CreateWithMembers(ctx context.Context, tx *gorm.DB, conv *entity.Conversation, userIds []string) error {
	now := entity.NowUnixMilli()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.LastActivity == 0 {
		conv.LastActivity = now
	}
	if err := tx.WithContext(ctx).Create(conv).Error; err != nil {
		return err
	}

	members := make([]*entity.ConversationMember, 0, len(userIds))
	for _, userId := range userIds {
		members = append(members, &entity.ConversationMember{
			ConversationId: conv.Id,
			UserId:         userId,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return tx.WithContext(ctx).Create(&members).Error
}

// GetById gets a conversation by Id
func (r *ConversationRepo) GetById(ctx context.Context, conversationId string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", conversationId).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetByKey gets a conversation by participant key and context tag
func (r *ConversationRepo) GetByKey(ctx context.Context, participantKey, contextTag string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_key = ? AND context_tag = ?", participantKey, contextTag).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetUserConversations gets all conversations a user takes part in, most recent activity first
func (r *ConversationRepo) GetUserConversations(ctx context.Context, userId string) ([]*entity.Conversation, error) {
	var convs []*entity.Conversation
	err := r.db.WithContext(ctx).
		Table("conversations c").
		Select("c.*").
		Joins("JOIN conversation_members m ON m.conversation_id = c.id").
		Where("m.user_id = ?", userId).
		Order("c.last_activity DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// GetMembers gets the members of the given conversations keyed by conversation Id
func (r *ConversationRepo) GetMembers(ctx context.Context, conversationIds []string) (map[string][]*entity.ConversationMember, error) {
	result := make(map[string][]*entity.ConversationMember, len(conversationIds))
	if len(conversationIds) == 0 {
		return result, nil
	}

	var members []*entity.ConversationMember
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIds).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		result[m.ConversationId] = append(result[m.ConversationId], m)
	}
	return result, nil
}

// GetMember gets one membership row, nil when the user is not a participant
func (r *ConversationRepo) GetMember(ctx context.Context, conversationId, userId string) (*entity.ConversationMember, error) {
	var m entity.ConversationMember
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// AdvanceReadCursor sets read_at only if the new value is greater (monotonic)
func (r *ConversationRepo) AdvanceReadCursor(ctx context.Context, tx *gorm.DB, conversationId, userId string, readAt int64) error {
	if tx == nil {
		tx = r.db
	}
	now := entity.NowUnixMilli()
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"read_at":    gorm.Expr("GREATEST(read_at, ?)", readAt),
			"updated_at": now,
		}),
	}).Create(&entity.ConversationMember{
		ConversationId: conversationId,
		UserId:         userId,
		ReadAt:         readAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error
}

// TouchOnMessage moves preview and last_activity forward; older messages leave the row untouched
func (r *ConversationRepo) TouchOnMessage(ctx context.Context, tx *gorm.DB, msg *entity.Message) error {
	return tx.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ? AND last_activity <= ?", msg.ConversationId, msg.CreatedAt).
		Updates(map[string]interface{}{
			"preview":       truncate(msg.Content, 512),
			"last_activity": msg.CreatedAt,
			"updated_at":    nextVersion(),
		}).Error
}

// Bump refreshes updated_at so clients see a newer row version
func (r *ConversationRepo) Bump(ctx context.Context, conversationId string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ?", conversationId).
		Update("updated_at", nextVersion()).Error
}

// SetArchived archives or restores a conversation
func (r *ConversationRepo) SetArchived(ctx context.Context, conversationId string, archived bool) error {
	return r.db.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ?", conversationId).
		Updates(map[string]interface{}{
			"archived":   archived,
			"updated_at": nextVersion(),
		}).Error
}

// nextVersion keeps updated_at strictly increasing so clients never drop a
// change as a duplicate when two updates land in the same millisecond
func nextVersion() clause.Expr {
	return gorm.Expr("GREATEST(updated_at + 1, ?)", entity.NowUnixMilli())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
