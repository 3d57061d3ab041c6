package models

import "time"

// LowStockThreshold is the inventory level at or below which a product
// counts as low stock.
const LowStockThreshold = 5

type Product struct {
	ID          int       `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Inventory   int       `json:"inventory"`
	Category    *string   `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CategoryName returns the category or "" when uncategorized.
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

func (p Product) Clone() Product {
	if p.Category != nil {
		c := *p.Category
		p.Category = &c
	}
	return p
}

// Availability is the result of an inventory check.
type Availability struct {
	ProductID  int  `json:"productId"`
	Requested  int  `json:"requested"`
	Available  int  `json:"available"`
	InStock    bool `json:"inStock"`
	LowStock   bool `json:"lowStock"`
	Sufficient bool `json:"sufficient"`
}
