package services

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/collection"
)

const (
	SearchAll      = "all"
	SearchUsers    = "users"
	SearchProducts = "products"
	SearchOrders   = "orders"
)

func ValidSearchType(t string) bool {
	switch t {
	case SearchAll, SearchUsers, SearchProducts, SearchOrders:
		return true
	}
	return false
}

type SearchResults struct {
	Users    []models.UserView `json:"users"`
	Products []models.Product  `json:"products"`
	Orders   []models.Order    `json:"orders"`
}

type SearchResponse struct {
	Query   string        `json:"query"`
	Results SearchResults `json:"results"`
	Total   int           `json:"total"`
}

type SearchService struct {
	store *store.Store
}

func NewSearchService(s *store.Store) *SearchService {
	return &SearchService{store: s}
}

// Search does a case-insensitive substring match over the collections
// kind selects, at most limit hits per collection.
func (s *SearchService) Search(ctx context.Context, q, kind string, limit int) (SearchResponse, error) {
	needle := strings.ToLower(q)
	hit := func(fields ...string) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), needle) {
				return true
			}
		}
		return false
	}

	out := SearchResponse{
		Query: q,
		Results: SearchResults{
			Users:    []models.UserView{},
			Products: []models.Product{},
			Orders:   []models.Order{},
		},
	}

	if kind == SearchAll || kind == SearchUsers {
		res, err := s.store.Users.FindMany(ctx, store.Query[models.User]{
			Filter: func(u models.User) bool { return hit(u.Name, u.Email) },
			Take:   limit,
		})
		if err != nil {
			return SearchResponse{}, err
		}
		out.Results.Users = collection.Map(repositories.Items(ctx, s.store.Users.Name(), res), models.User.View)
	}

	if kind == SearchAll || kind == SearchProducts {
		res, err := s.store.Products.FindMany(ctx, store.Query[models.Product]{
			Filter: func(p models.Product) bool { return hit(p.Name, p.Description, p.SKU, p.CategoryName()) },
			Take:   limit,
		})
		if err != nil {
			return SearchResponse{}, err
		}
		out.Results.Products = repositories.Items(ctx, s.store.Products.Name(), res)
	}

	if kind == SearchAll || kind == SearchOrders {
		res, err := s.store.Orders.FindMany(ctx, store.Query[models.Order]{
			Filter: func(o models.Order) bool { return hit(o.ID, o.Customer.Name, o.Customer.Email) },
			Take:   limit,
		})
		if err != nil {
			return SearchResponse{}, err
		}
		out.Results.Orders = repositories.Items(ctx, s.store.Orders.Name(), res)
	}

	out.Total = len(out.Results.Users) + len(out.Results.Products) + len(out.Results.Orders)
	return out, nil
}
