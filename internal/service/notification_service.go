package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/internal/config"
	"github.com/mbeoliero/inbox/internal/entity"
	"github.com/mbeoliero/inbox/internal/repository"
	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/mbeoliero/inbox/pkg/idgen"
)

// TaskNotificationDeliver is the queue task carrying a scheduled notification
const TaskNotificationDeliver = "notification:deliver"

// Scheduler enqueues a task for delivery at processAt
type Scheduler interface {
	Enqueue(ctx context.Context, taskType string, payload []byte, processAt time.Time) (string, error)
}

// NotificationService handles notification-related business logic
type NotificationService struct {
	notifRepo *repository.NotificationRepo
	cfg       *config.Config
	feed      *feed
	scheduler Scheduler
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repos *repository.Repositories, cfg *config.Config) *NotificationService {
	return &NotificationService{
		notifRepo: repos.Notification,
		cfg:       cfg,
	}
}

// SetPublisher sets the change publisher
func (s *NotificationService) SetPublisher(pub ChangePublisher) {
	s.feed = &feed{pub: pub, timeout: s.cfg.Feed.PublishTimeout}
}

// SetScheduler sets the queue used for deferred delivery
func (s *NotificationService) SetScheduler(scheduler Scheduler) {
	s.scheduler = scheduler
}

// CreateNotificationRequest represents a notification produced by a backend system
type CreateNotificationRequest struct {
	OwnerId   string            `json:"owner_id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body,omitempty"`
	Link      map[string]string `json:"link,omitempty"`
	DeliverAt int64             `json:"deliver_at,omitempty"` // unix ms, zero delivers now
}

// CreateNotificationResponse carries either the stored notification or the queued task
type CreateNotificationResponse struct {
	Notification *chatsync.Notification `json:"notification,omitempty"`
	TaskId       string                 `json:"task_id,omitempty"`
}

func (r *CreateNotificationRequest) validate() error {
	r.OwnerId = strings.TrimSpace(r.OwnerId)
	r.Title = strings.TrimSpace(r.Title)
	if r.OwnerId == "" || r.Title == "" {
		return errcode.ErrInvalidParam
	}
	switch r.Type {
	case entity.NotificationTypeOrderStatus, entity.NotificationTypeInquiry, entity.NotificationTypeSystem:
		return nil
	default:
		return errcode.ErrInvalidNotifyType
	}
}

// Produce stores and publishes a notification, or queues it when DeliverAt lies in the future
func (s *NotificationService) Produce(ctx context.Context, req *CreateNotificationRequest) (*CreateNotificationResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if req.DeliverAt > entity.NowUnixMilli() && s.scheduler != nil {
		payload, err := json.Marshal(req)
		if err != nil {
			return nil, errcode.ErrInvalidParam
		}
		taskId, err := s.scheduler.Enqueue(ctx, TaskNotificationDeliver, payload, time.UnixMilli(req.DeliverAt))
		if err != nil {
			log.CtxError(ctx, "enqueue notification failed: owner_id=%s, error=%v", req.OwnerId, err)
			return nil, errcode.ErrInternalServer
		}
		log.CtxInfo(ctx, "notification scheduled: owner_id=%s, task_id=%s, deliver_at=%d", req.OwnerId, taskId, req.DeliverAt)
		return &CreateNotificationResponse{TaskId: taskId}, nil
	}

	info, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	return &CreateNotificationResponse{Notification: info}, nil
}

// HandleDeliverTask stores a notification queued by Produce
func (s *NotificationService) HandleDeliverTask(ctx context.Context, payload []byte) error {
	var req CreateNotificationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode notification task: %v: %w", err, asynq.SkipRetry)
	}
	if err := req.validate(); err != nil {
		return fmt.Errorf("invalid notification task: %v: %w", err, asynq.SkipRetry)
	}
	if _, err := s.create(ctx, &req); err != nil {
		if IsPermanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

func (s *NotificationService) create(ctx context.Context, req *CreateNotificationRequest) (*chatsync.Notification, error) {
	id, err := idgen.NextID()
	if err != nil {
		log.CtxError(ctx, "generate notification id failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	n := &entity.Notification{
		Id:      id,
		OwnerId: req.OwnerId,
		Type:    req.Type,
		Title:   req.Title,
		Body:    req.Body,
	}
	if err := n.SetLink(req.Link); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	if err := s.notifRepo.Create(ctx, n); err != nil {
		log.CtxError(ctx, "create notification failed: owner_id=%s, error=%v", req.OwnerId, err)
		return nil, errcode.ErrInternalServer
	}

	info := n.ToNotificationInfo()
	s.feed.publish(ctx, []string{n.OwnerId}, chatsync.KindNotification, chatsync.OpInsert, info)

	log.CtxInfo(ctx, "notification created: owner_id=%s, type=%s, notification_id=%s", n.OwnerId, n.Type, n.Id)
	return info, nil
}

// ListNotifications returns the newest notifications of a user
func (s *NotificationService) ListNotifications(ctx context.Context, userId string, limit int) ([]*chatsync.Notification, error) {
	if limit <= 0 || limit > s.cfg.Inbox.MaxNotificationCount {
		limit = s.cfg.Inbox.MaxNotificationCount
	}

	list, err := s.notifRepo.ListByOwner(ctx, userId, limit)
	if err != nil {
		log.CtxError(ctx, "list notifications failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	result := make([]*chatsync.Notification, 0, len(list))
	for _, n := range list {
		result = append(result, n.ToNotificationInfo())
	}
	return result, nil
}

// MarkRead marks one notification of the user as read
func (s *NotificationService) MarkRead(ctx context.Context, userId, notificationId string) error {
	if notificationId == "" {
		return errcode.ErrInvalidParam
	}

	n, err := s.notifRepo.GetById(ctx, notificationId)
	if err != nil {
		log.CtxError(ctx, "get notification failed: notification_id=%s, error=%v", notificationId, err)
		return errcode.ErrInternalServer
	}
	if n == nil || n.OwnerId != userId {
		return errcode.ErrNotificationNotFound
	}

	changed, err := s.notifRepo.MarkRead(ctx, notificationId)
	if err != nil {
		log.CtxError(ctx, "mark notification read failed: notification_id=%s, error=%v", notificationId, err)
		return errcode.ErrInternalServer
	}
	if !changed {
		return nil
	}

	if n, err = s.notifRepo.GetById(ctx, notificationId); err == nil && n != nil {
		s.feed.publish(ctx, []string{userId}, chatsync.KindNotification, chatsync.OpUpdate, n.ToNotificationInfo())
	}
	return nil
}

// Clear removes every notification of the user
func (s *NotificationService) Clear(ctx context.Context, userId string) error {
	removed, err := s.notifRepo.DeleteByOwner(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "clear notifications failed: user_id=%s, error=%v", userId, err)
		return errcode.ErrInternalServer
	}
	log.CtxInfo(ctx, "notifications cleared: user_id=%s, count=%d", userId, removed)
	return nil
}

// IsPermanent reports whether a task error should not be retried
func IsPermanent(err error) bool {
	var e *errcode.Error
	return errors.As(err, &e) && !e.Retryable()
}
