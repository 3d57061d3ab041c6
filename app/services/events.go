package services

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/pkg/event"
)

// OrderPlaced fires after an order is stored as confirmed. Its payload is
// a models.Order.
const OrderPlaced = "order.placed"

// RegisterListeners wires the domain listeners onto d.
func RegisterListeners(d *event.Dispatcher, notifications *NotificationService) {
	d.Listen(OrderPlaced, func(ctx context.Context, payload any) error {
		order, ok := payload.(models.Order)
		if !ok {
			return fmt.Errorf("unexpected payload %T", payload)
		}
		if order.Customer.UserID == "" {
			return nil
		}
		_, err := notifications.Send(ctx, NewNotification{
			UserID:  order.Customer.UserID,
			Title:   "Order confirmed",
			Message: fmt.Sprintf("Order %s for %.2f %s is confirmed.", order.ID, order.Total, order.Currency),
			Type:    "success",
			Channel: models.ChannelInApp,
		})
		return err
	})
}
