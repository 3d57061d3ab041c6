package repositories

import (
	"cmp"
	"context"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/store"
)

// UncategorizedFilter selects products without a category.
const UncategorizedFilter = "uncategorized"

// ProductPage is one cursor page of products.
type ProductPage struct {
	Items      []models.Product
	NextCursor *int
	HasMore    bool
}

// ProductRepository handles store operations for Product.
type ProductRepository struct {
	products *store.Collection[models.Product]
}

func NewProductRepository(s *store.Store) *ProductRepository {
	return &ProductRepository{products: s.Products}
}

func (r *ProductRepository) FindByID(ctx context.Context, id int) (*models.Product, error) {
	return r.products.FindUnique(ctx, store.Key(id))
}

// Page returns up to limit products with an id above cursor, ascending.
// category "uncategorized" selects products with no category.
func (r *ProductRepository) Page(ctx context.Context, cursor, limit int, category string) (ProductPage, error) {
	q := store.Query[models.Product]{
		Filter: func(p models.Product) bool { return p.ID > cursor },
		Sort:   func(a, b models.Product) int { return cmp.Compare(a.ID, b.ID) },
		Take:   limit + 1,
	}
	switch category {
	case "":
	case UncategorizedFilter:
		q.Where = map[string]any{"category": nil}
	default:
		q.Where = map[string]any{"category": category}
	}

	res, err := r.products.FindMany(ctx, q)
	if err != nil {
		return ProductPage{}, err
	}
	items := Items(ctx, r.products.Name(), res)

	page := ProductPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
		next := page.Items[limit-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

// Update applies a shallow patch.
func (r *ProductRepository) Update(ctx context.Context, id int, patch map[string]any) (models.Product, error) {
	return r.products.Update(ctx, store.Key(id), patch)
}
