package storefront

import (
	"context"

	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/query"
)

// Products returns the catalog page matching f.
func (s *Service) Products(ctx context.Context, f models.ProductFilters) ([]models.Product, error) {
	key := query.Key(query.Products, f.Values().Encode())
	return query.Fetch(ctx, s.Queries, key, s.Config.Cache.Stale.Products, func(ctx context.Context) ([]models.Product, error) {
		return s.API.ListProducts(ctx, f)
	})
}

// Product returns one product.
func (s *Service) Product(ctx context.Context, id int64) (*models.Product, error) {
	return query.Fetch(ctx, s.Queries, query.Key(query.Product, id), s.Config.Cache.Stale.Product, func(ctx context.Context) (*models.Product, error) {
		return s.API.GetProduct(ctx, id)
	})
}

// Categories returns every category.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return query.Fetch(ctx, s.Queries, query.Key(query.Categories), s.Config.Cache.Stale.Categories, s.API.ListCategories)
}

// productNames maps the given product IDs to names, skipping lookups that fail.
func (s *Service) productNames(ctx context.Context, ids []int64) map[int64]string {
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		if _, ok := names[id]; ok {
			continue
		}
		p, err := s.Product(ctx, id)
		if err != nil {
			s.logger.Debug("product name lookup failed", "product_id", id, "err", err)
			continue
		}
		names[id] = p.Name
	}
	return names
}
