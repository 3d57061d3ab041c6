package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ProductPatch names the fields PATCH /api/products/{id} may change.
type ProductPatch struct {
	Name        *string  `json:"name" validate:"nullable,between=1,200"`
	Description *string  `json:"description" validate:"nullable,max=2000"`
	Price       *float64 `json:"price" validate:"nullable,gte=0"`
	Inventory   *int     `json:"inventory" validate:"nullable,gte=0"`
	Category    *string  `json:"category" validate:"nullable,max=100"`
}

// fields turns the patch into the store's shallow update, leaving out what
// was not sent.
func (p ProductPatch) fields() map[string]any {
	out := make(map[string]any)
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Price != nil {
		out["price"] = *p.Price
	}
	if p.Inventory != nil {
		out["inventory"] = *p.Inventory
	}
	if p.Category != nil {
		out["category"] = *p.Category
	}
	return out
}

type productPageMeta struct {
	Limit      int  `json:"limit"`
	NextCursor *int `json:"nextCursor"`
	HasMore    bool `json:"hasMore"`
}

type productWithAvailability struct {
	models.Product
	Availability *models.Availability `json:"availability,omitempty"`
}

type ProductController struct {
	products  *repositories.ProductRepository
	inventory *services.Inventory
}

func NewProductController(products *repositories.ProductRepository, inventory *services.Inventory) *ProductController {
	return &ProductController{products: products, inventory: inventory}
}

// Index pages through products by ascending id.
func (pc *ProductController) Index(c *ctx.Context) {
	limit, ok := intQuery(c, "limit", defaultPageSize, 1, maxPageSize)
	if !ok {
		c.Error(http.StatusBadRequest, "Invalid limit")
		return
	}
	cursor := 0
	if raw := c.Query("cursor"); raw != "" {
		if cursor, ok = ctx.ParseID(raw); !ok {
			c.Error(http.StatusBadRequest, "Invalid cursor")
			return
		}
	}

	page, err := pc.products.Page(c.Context(), cursor, limit, c.Query("category"))
	if err != nil {
		fail(c, err, "Product not found")
		return
	}
	c.SuccessWithMeta(page.Items, productPageMeta{Limit: limit, NextCursor: page.NextCursor, HasMore: page.HasMore})
}

// Show returns one product. Anything that is not a positive integer id is a
// 400, never a lookup.
func (pc *ProductController) Show(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		c.Error(http.StatusBadRequest, "Invalid product id")
		return
	}

	p, err := pc.products.FindByID(c.Context(), id)
	if err != nil {
		fail(c, err, "Product not found")
		return
	}
	if p == nil {
		c.NotFound("Product not found")
		return
	}

	out := productWithAvailability{Product: *p}
	if c.QueryBool("inventory") {
		a := pc.inventory.Check(*p, 1)
		out.Availability = &a
	}
	c.Success(out)
}

func (pc *ProductController) Update(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		c.Error(http.StatusBadRequest, "Invalid product id")
		return
	}

	var in ProductPatch
	if !c.BindJSON(&in) {
		return
	}
	fields := in.fields()
	if len(fields) == 0 {
		c.Error(http.StatusBadRequest, "Nothing to update")
		return
	}

	p, err := pc.products.Update(c.Context(), id, fields)
	if err != nil {
		fail(c, err, "Product not found")
		return
	}
	c.Success(p)
}
