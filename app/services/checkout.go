package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/event"
	"github.com/shashiranjanraj/faultline/pkg/logger"
)

type CheckoutItem struct {
	ProductID int `json:"productId" validate:"required,gt=0"`
	Quantity  int `json:"quantity" validate:"required,between=1,100"`
}

type CheckoutCustomer struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

type CheckoutInput struct {
	UserID   string           `json:"userId" validate:"nullable,max=64"`
	Customer CheckoutCustomer `json:"customer" validate:"dive"`
	Items    []CheckoutItem   `json:"items" validate:"required,min=1,max=50,dive"`
	Currency string           `json:"currency" validate:"nullable,in=USD,EUR,GBP"`
}

// StockError reports every line the store cannot fill.
type StockError struct {
	Lines []models.Availability
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Lines))
}

func (e *StockError) Unwrap() error { return ErrConflict }

// DeclineError carries what the caller needs after a declined payment.
// Reservations made before the charge are not released.
type DeclineError struct {
	Reason         string
	ReservationIDs []string
}

func (e *DeclineError) Error() string { return "payment declined: " + e.Reason }

func (e *DeclineError) Unwrap() error { return ErrPaymentDeclined }

type CheckoutService struct {
	store     *store.Store
	inventory *Inventory
	payments  PaymentGateway
	events    *event.Dispatcher
}

func NewCheckoutService(s *store.Store, inv *Inventory, pay PaymentGateway, events *event.Dispatcher) *CheckoutService {
	return &CheckoutService{store: s, inventory: inv, payments: pay, events: events}
}

// Place prices the cart from the store, reserves stock, charges the
// customer and stores the order. Every step is awaited; the order exists
// only if the charge succeeded.
func (s *CheckoutService) Place(ctx context.Context, in CheckoutInput) (models.Order, error) {
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	products := make(map[int]models.Product, len(in.Items))
	requested := make(map[int]int, len(in.Items))
	var productIDs []int
	for _, line := range in.Items {
		if _, seen := products[line.ProductID]; !seen {
			p, err := s.store.Products.FindUnique(ctx, store.Key(line.ProductID))
			if err != nil {
				return models.Order{}, err
			}
			if p == nil {
				return models.Order{}, fmt.Errorf("%w: product %d", ErrNotFound, line.ProductID)
			}
			products[line.ProductID] = *p
			productIDs = append(productIDs, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}

	// Lines naming the same product draw on one stock level.
	var short []models.Availability
	for _, id := range productIDs {
		if a := s.inventory.Check(products[id], requested[id]); !a.Sufficient {
			short = append(short, a)
		}
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var total float64
	for _, line := range in.Items {
		p := products[line.ProductID]
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
		total += p.Price * float64(line.Quantity)
	}
	if len(short) > 0 {
		return models.Order{}, &StockError{Lines: short}
	}
	total = math.Round(total*100) / 100

	reservations := make([]string, 0, len(items))
	for _, it := range items {
		id, err := s.inventory.Reserve(ctx, it.ProductID, it.Quantity)
		if err != nil {
			return models.Order{}, err
		}
		reservations = append(reservations, id)
	}

	customer := models.Customer{UserID: in.UserID, Name: in.Customer.Name, Email: in.Customer.Email}
	payment, err := s.payments.Charge(ctx, ChargeRequest{Amount: total, Currency: currency, Customer: customer})
	if err != nil {
		return models.Order{}, err
	}
	if !payment.Success {
		return models.Order{}, &DeclineError{Reason: payment.Reason, ReservationIDs: reservations}
	}

	order, err := s.store.Orders.Create(ctx, models.Order{
		Customer:       customer,
		Items:          items,
		Total:          total,
		Currency:       currency,
		Status:         models.OrderConfirmed,
		TransactionID:  payment.TransactionID,
		ReservationIDs: reservations,
		CreatedAt:      s.store.Now(),
	})
	if err != nil {
		return models.Order{}, err
	}

	if err := s.events.Fire(ctx, OrderPlaced, order); err != nil {
		logger.WithCtx(ctx).Warn("order listeners failed", "order_id", order.ID, "error", err)
	}
	return order, nil
}

// IsDeclined reports whether err is a payment decline and returns it.
func IsDeclined(err error) (*DeclineError, bool) {
	var de *DeclineError
	ok := errors.As(err, &de)
	return de, ok
}
