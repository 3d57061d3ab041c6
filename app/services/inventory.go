package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/pkg/fault"
)

// Inventory checks stock and hands out reservations. Reserve does not
// decrement stock.
type Inventory struct {
	faults *fault.Policy
}

func NewInventory(faults *fault.Policy) *Inventory {
	return &Inventory{faults: faults}
}

// Check compares qty against the product's current stock.
func (i *Inventory) Check(p models.Product, qty int) models.Availability {
	return models.Availability{
		ProductID:  p.ID,
		Requested:  qty,
		Available:  p.Inventory,
		InStock:    p.Inventory > 0,
		LowStock:   p.Inventory > 0 && p.Inventory <= models.LowStockThreshold,
		Sufficient: qty <= p.Inventory,
	}
}

// Reserve returns a reservation id after the policy's delay.
func (i *Inventory) Reserve(ctx context.Context, productID, qty int) (string, error) {
	if qty <= 0 {
		return "", fmt.Errorf("inventory: reserve %d of product %d", qty, productID)
	}
	if err := i.faults.Wait(ctx); err != nil {
		return "", fmt.Errorf("inventory: %w", err)
	}
	return "res_" + uuid.NewString(), nil
}
