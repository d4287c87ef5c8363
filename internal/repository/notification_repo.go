package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/inbox/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NotificationRepo is the repository for notification operations
type NotificationRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewNotificationRepo creates a new NotificationRepo
func NewNotificationRepo(db *gorm.DB, rdb *redis.Client) *NotificationRepo {
	return &NotificationRepo{db: db, rdb: rdb}
}

// Create creates a new notification
func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	now := entity.NowUnixMilli()
	n.CreatedAt = now
	n.UpdatedAt = now
	return r.db.WithContext(ctx).Create(n).Error
}

// GetById gets a notification by Id
func (r *NotificationRepo) GetById(ctx context.Context, id string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// ListByOwner lists the newest notifications of a user
func (r *NotificationRepo) ListByOwner(ctx context.Context, ownerId string, limit int) ([]*entity.Notification, error) {
	var list []*entity.Notification
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerId).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// MarkRead flips is_read and bumps updated_at. Returns false if it was already read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{
			"is_read":    true,
			"updated_at": nextVersion(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteByOwner removes all notifications of a user
func (r *NotificationRepo) DeleteByOwner(ctx context.Context, ownerId string) (int64, error) {
	res := r.db.WithContext(ctx).Where("owner_id = ?", ownerId).Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}
