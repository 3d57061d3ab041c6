package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Customer is a snapshot taken at checkout; it does not follow later
// changes to the user.
type Customer struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type OrderItem struct {
	ProductID int     `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID             string      `json:"id"`
	Customer       Customer    `json:"customer"`
	Items          []OrderItem `json:"items"`
	Total          float64     `json:"total"`
	Currency       string      `json:"currency"`
	Status         OrderStatus `json:"status"`
	TransactionID  string      `json:"transactionId,omitempty"`
	ReservationIDs []string    `json:"reservationIds"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func (o Order) Clone() Order {
	o.Items = append([]OrderItem{}, o.Items...)
	o.ReservationIDs = append([]string{}, o.ReservationIDs...)
	return o
}
