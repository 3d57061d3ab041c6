package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/pkg/fault"
	"github.com/shashiranjanraj/faultline/pkg/metrics"
)

var (
	ErrPaymentDeclined = errors.New("payment declined")
	ErrInvalidAmount   = errors.New("payment: amount must be positive")
)

// DeclineReasonCard is the only reason the mock gateway gives.
const DeclineReasonCard = "card_declined"

type ChargeRequest struct {
	Amount   float64
	Currency string
	Customer models.Customer
}

type PaymentResult struct {
	Success       bool      `json:"success"`
	TransactionID string    `json:"transactionId,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ProcessedAt   time.Time `json:"processedAt"`
}

// PaymentGateway charges a customer. A decline is a result with
// Success == false, not an error.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (PaymentResult, error)
}

// MockPayments declines with its policy's probability.
type MockPayments struct {
	faults *fault.Policy
	now    func() time.Time
}

func NewMockPayments(faults *fault.Policy) *MockPayments {
	return &MockPayments{faults: faults, now: time.Now}
}

func (m *MockPayments) Charge(ctx context.Context, req ChargeRequest) (PaymentResult, error) {
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		metrics.Payments.WithLabelValues("error").Inc()
		return PaymentResult{}, fmt.Errorf("%w: %v", ErrInvalidAmount, req.Amount)
	}
	if err := m.faults.Wait(ctx); err != nil {
		metrics.Payments.WithLabelValues("error").Inc()
		return PaymentResult{}, fmt.Errorf("payment: %w", err)
	}

	res := PaymentResult{
		Amount:      req.Amount,
		Currency:    req.Currency,
		ProcessedAt: m.now().UTC(),
	}
	if m.faults.Trip() {
		res.Reason = DeclineReasonCard
		metrics.Payments.WithLabelValues("declined").Inc()
		return res, nil
	}

	res.Success = true
	res.TransactionID = "txn_" + uuid.NewString()
	metrics.Payments.WithLabelValues("succeeded").Inc()
	return res, nil
}
