package models

import "time"

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

func ValidChannel(c string) bool {
	return c == ChannelInApp || c == ChannelEmail || c == ChannelPush
}

type Notification struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Type           string     `json:"type"`
	Channel        string     `json:"channel"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"readAt"`
	DeliveryID     string     `json:"deliveryId,omitempty"`
	DeliveryStatus string     `json:"deliveryStatus,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (n Notification) Clone() Notification {
	n.ReadAt = cloneTime(n.ReadAt)
	n.DeliveredAt = cloneTime(n.DeliveredAt)
	return n
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
