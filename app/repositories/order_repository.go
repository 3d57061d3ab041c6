package repositories

import (
	"context"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/store"
)

// OrderRepository handles store operations for Order.
type OrderRepository struct {
	orders *store.Collection[models.Order]
}

func NewOrderRepository(s *store.Store) *OrderRepository {
	return &OrderRepository{orders: s.Orders}
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.orders.FindUnique(ctx, id)
}

// List returns orders newest first, optionally narrowed by status and by
// the ordering user.
func (r *OrderRepository) List(ctx context.Context, status, userID string) ([]models.Order, error) {
	q := store.Query[models.Order]{
		Sort: store.Newest(func(o models.Order) int64 { return o.CreatedAt.UnixNano() }),
	}
	if status != "" {
		q.Where = map[string]any{"status": status}
	}
	if userID != "" {
		q.Filter = func(o models.Order) bool { return o.Customer.UserID == userID }
	}

	res, err := r.orders.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	return Items(ctx, r.orders.Name(), res), nil
}
