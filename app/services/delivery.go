package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/pkg/fault"
	"github.com/shashiranjanraj/faultline/pkg/logger"
)

var ErrDeliveryFailed = errors.New("notification delivery failed")

// Publisher pushes a message to every subscriber of topic.
type Publisher interface {
	Publish(topic string, v any) error
}

// NotificationTopic is the live-feed topic for one user.
func NotificationTopic(userID string) string { return "notifications:" + userID }

type Receipt struct {
	ID          string    `json:"deliveryId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// Delivery sends notifications over their channel. Failures are not
// retried.
type Delivery struct {
	faults *fault.Policy
	live   Publisher
	now    func() time.Time
}

// NewDelivery pushes in-app notifications to live; live may be nil.
func NewDelivery(faults *fault.Policy, live Publisher) *Delivery {
	return &Delivery{faults: faults, live: live, now: time.Now}
}

func (d *Delivery) Deliver(ctx context.Context, n models.Notification) (Receipt, error) {
	if err := d.faults.Wait(ctx); err != nil {
		return Receipt{}, fmt.Errorf("delivery: %w", err)
	}
	if d.faults.Trip() {
		return Receipt{}, fmt.Errorf("%w: %s to user %s", ErrDeliveryFailed, n.Channel, n.UserID)
	}

	rcpt := Receipt{ID: "dlv_" + uuid.NewString(), DeliveredAt: d.now().UTC()}
	if n.Channel == models.ChannelInApp && d.live != nil {
		n.DeliveryID = rcpt.ID
		n.DeliveryStatus = models.DeliveryDelivered
		n.DeliveredAt = &rcpt.DeliveredAt
		if err := d.live.Publish(NotificationTopic(n.UserID), n); err != nil {
			logger.WithCtx(ctx).Warn("live notification not published", "user_id", n.UserID, "error", err)
		}
	}
	return rcpt, nil
}
