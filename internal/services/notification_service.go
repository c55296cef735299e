package services

import (
	"context"
	"errors"
	"log"
	"time"

	"taskhub/internal/authz"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

const (
	inboxLimit    = 50
	adminFeedSize = 100
)

type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// NotificationService is the read side of notifications: inbox, read flags
// and retention.
type NotificationService interface {
	ListOwn(ctx context.Context, actor authz.Actor) (*Inbox, error)
	ListAll(ctx context.Context, actor authz.Actor) ([]models.Notification, error)
	UnreadCount(ctx context.Context, actor authz.Actor) (int, error)
	MarkRead(ctx context.Context, actor authz.Actor, id int64) (*models.Notification, error)
	MarkAllRead(ctx context.Context, actor authz.Actor) error
	Delete(ctx context.Context, actor authz.Actor, id int64) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type notificationService struct {
	repo repositories.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repositories.NotificationRepository) NotificationService {
	return &notificationService{repo: repo, now: time.Now}
}

func (s *notificationService) ListOwn(ctx context.Context, actor authz.Actor) (*Inbox, error) {
	now := s.now()
	items, err := s.repo.ListByUser(ctx, actor.ID, inboxLimit, now)
	if err != nil {
		return nil, persistence("list notifications", err)
	}
	uid := actor.ID
	unread, err := s.repo.CountUnread(ctx, &uid, now)
	if err != nil {
		return nil, persistence("count unread", err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &Inbox{Notifications: items, UnreadCount: unread}, nil
}

func (s *notificationService) ListAll(ctx context.Context, actor authz.Actor) ([]models.Notification, error) {
	if !authz.Can(actor, authz.ActionNotificationReadAll, authz.Resource{}) {
		return nil, forbiddenf("only admin can view all notifications")
	}
	items, err := s.repo.ListAll(ctx, adminFeedSize, s.now())
	if err != nil {
		return nil, persistence("list notifications", err)
	}
	return items, nil
}

// UnreadCount is global for an admin and per user otherwise.
func (s *notificationService) UnreadCount(ctx context.Context, actor authz.Actor) (int, error) {
	var userID *int64
	if !actor.IsAdmin() {
		uid := actor.ID
		userID = &uid
	}
	n, err := s.repo.CountUnread(ctx, userID, s.now())
	if err != nil {
		return 0, persistence("count unread", err)
	}
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor authz.Actor, id int64) (*models.Notification, error) {
	n, err := s.authorized(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkRead(ctx, id, s.now()); err != nil {
		return nil, persistence("mark read", err)
	}
	n.IsRead = true
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor authz.Actor) error {
	if err := s.repo.MarkAllRead(ctx, actor.ID); err != nil {
		return persistence("mark all read", err)
	}
	return nil
}

func (s *notificationService) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if _, err := s.authorized(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return persistence("delete notification", err)
	}
	return nil
}

func (s *notificationService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, persistence("purge notifications", err)
	}
	if n > 0 {
		log.Printf("[notify][purge] removed=%d", n)
	}
	return n, nil
}

func (s *notificationService) authorized(ctx context.Context, actor authz.Actor, id int64) (*models.Notification, error) {
	n, err := s.repo.FindByID(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundf("notification not found")
		}
		return nil, persistence("get notification", err)
	}
	if !authz.Can(actor, authz.ActionNotificationModify, authz.NotificationResource(n)) {
		return nil, forbiddenf("not authorized")
	}
	return n, nil
}
