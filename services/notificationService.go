package services

import (
	"MediCare/models"
	"MediCare/repositories"
	"context"
	"time"
)

const DefaultNotificationLimit = 20

type NotificationService struct {
	notifications repositories.NotificationRepository
	now           func() time.Time
}

func NewNotificationService(notifications repositories.NotificationRepository, now func() time.Time) *NotificationService {
	if now == nil {
		now = time.Now
	}
	return &NotificationService{notifications: notifications, now: now}
}

// List returns the user's newest notifications.
func (s *NotificationService) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultNotificationLimit
	}
	list, err := s.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, storageErr("list notifications", err)
	}
	return list, nil
}

// MarkRead marks a notification owned by userID as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	ok, err := s.notifications.MarkRead(ctx, id, userID, s.now())
	if err != nil {
		return storageErr("mark notification read", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
