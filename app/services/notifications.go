package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/logger"
)

type NewNotification struct {
	UserID  string
	Title   string
	Message string
	Type    string
	Channel string
}

// NotificationService stores notifications and hands them to Delivery.
type NotificationService struct {
	store    *store.Store
	delivery *Delivery
}

func NewNotificationService(s *store.Store, d *Delivery) *NotificationService {
	return &NotificationService{store: s, delivery: d}
}

// Send stores n and waits for delivery. A delivery failure is recorded on
// the notification, not returned.
func (s *NotificationService) Send(ctx context.Context, in NewNotification) (models.Notification, error) {
	n := models.Notification{
		UserID:    in.UserID,
		Title:     in.Title,
		Message:   in.Message,
		Type:      cmp.Or(in.Type, "info"),
		Channel:   cmp.Or(in.Channel, models.ChannelInApp),
		CreatedAt: s.store.Now(),
	}
	created, err := s.store.Notifications.Create(ctx, n)
	if err != nil {
		return models.Notification{}, err
	}

	patch := map[string]any{}
	rcpt, err := s.delivery.Deliver(ctx, created)
	switch {
	case errors.Is(err, ErrDeliveryFailed):
		logger.WithCtx(ctx).Warn("notification delivery failed", "notification_id", created.ID, "error", err)
		patch["deliveryStatus"] = models.DeliveryFailed
	case err != nil:
		return models.Notification{}, err
	default:
		patch["deliveryId"] = rcpt.ID
		patch["deliveryStatus"] = models.DeliveryDelivered
		patch["deliveredAt"] = rcpt.DeliveredAt
	}
	return s.store.Notifications.Update(ctx, created.ID, patch)
}

// List returns a user's notifications, newest first, plus the unread count
// of what was returned.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, int, error) {
	q := store.Query[models.Notification]{
		Where: map[string]any{"userId": userID},
		Sort:  store.Newest(func(n models.Notification) int64 { return n.CreatedAt.UnixNano() }),
	}
	if unreadOnly {
		q.Where["read"] = false
	}
	res, err := s.store.Notifications.FindMany(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	items := repositories.Items(ctx, s.store.Notifications.Name(), res)

	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	return items, unread, nil
}

// MarkRead flips the given notifications, or all of them, to read. Only
// notifications owned by userID are touched; ErrNotFound means none of the
// requested ids were.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []string, all bool) ([]string, error) {
	var targets []models.Notification
	if all {
		res, err := s.store.Notifications.FindMany(ctx, store.Query[models.Notification]{
			Where: map[string]any{"userId": userID, "read": false},
		})
		if err != nil {
			return nil, err
		}
		targets = repositories.Items(ctx, s.store.Notifications.Name(), res)
	} else {
		for _, id := range ids {
			n, err := s.store.Notifications.FindUnique(ctx, id)
			if err != nil {
				return nil, err
			}
			if n != nil && n.UserID == userID {
				targets = append(targets, *n)
			}
		}
		if len(targets) == 0 {
			return nil, fmt.Errorf("%w: no matching notifications for user %s", ErrNotFound, userID)
		}
	}

	now := s.store.Now()
	updated := make([]string, 0, len(targets))
	for _, n := range targets {
		if n.Read {
			continue
		}
		_, err := s.store.Notifications.Update(ctx, n.ID, map[string]any{"read": true, "readAt": now})
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		updated = append(updated, n.ID)
	}
	return updated, nil
}

// Delete removes a notification owned by userID.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	n, err := s.store.Notifications.FindUnique(ctx, id)
	if err != nil {
		return err
	}
	if n == nil || n.UserID != userID {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}
	if _, err := s.store.Notifications.Delete(ctx, id); err != nil {
		return err
	}
	return nil
}
