package calendar

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// NOTIFICATION SERVICE - User-facing notification records
// =============================================================================

// NotificationService persists notification records and fans them out.
// Record is fire-and-forget from the mutation path's perspective: failures
// are logged here, at a single boundary, and never propagate.
type NotificationService struct {
	Store  NotificationStore
	Events EventPublisher
	Log    *logrus.Logger
}

func NewNotificationService(store NotificationStore, events EventPublisher, log *logrus.Logger) *NotificationService {
	return &NotificationService{Store: store, Events: events, Log: log}
}

// Record persists a notification and publishes it to subscribers.
func (s *NotificationService) Record(ctx context.Context, n Notification) {
	if err := s.Store.SaveNotification(ctx, &n); err != nil {
		s.Log.WithError(err).WithField("user", n.UserID).Warn("notification not recorded")
		return
	}
	s.Events.NotificationCreated(n)
}

func (s *NotificationService) ListAll(ctx context.Context, userID UserID) ([]Notification, error) {
	return s.Store.FindNotifications(ctx, userID, false)
}

func (s *NotificationService) ListUnread(ctx context.Context, userID UserID) ([]Notification, error) {
	return s.Store.FindNotifications(ctx, userID, true)
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID UserID, id NotificationID) (*Notification, error) {
	n, err := s.Store.GetNotification(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	n.Read = true
	if err := s.Store.SaveNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
