package storefront

import (
	"context"

	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/query"
)

// CreateProduct adds a product to the catalog.
func (s *Service) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	p, err := s.API.CreateProduct(ctx, in)
	if err != nil {
		return nil, s.fail(err, "Error saving product")
	}
	s.invalidate(ctx, query.Products, query.Product)
	s.notifier.Success("Product created")
	return p, nil
}

// UpdateProduct patches a product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in models.ProductUpdate) (*models.Product, error) {
	p, err := s.API.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, s.fail(err, "Error saving product")
	}
	s.invalidate(ctx, query.Products, query.Product)
	s.notifier.Success("Product updated")
	return p, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.API.DeleteProduct(ctx, id); err != nil {
		return s.fail(err, "Error deleting product")
	}
	s.invalidate(ctx, query.Products, query.Product)
	s.notifier.Success("Product deleted")
	return nil
}

// CreateCategory adds a category.
func (s *Service) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	cat, err := s.API.CreateCategory(ctx, in)
	if err != nil {
		return nil, s.fail(err, "Error saving category")
	}
	s.invalidate(ctx, query.Categories)
	s.notifier.Success("Category created")
	return cat, nil
}

// Dashboard summarises the catalog and the caller's orders.
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardSummary, error) {
	products, err := s.Products(ctx, models.ProductFilters{Limit: 100})
	if err != nil {
		return nil, err
	}
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.Orders(ctx, 0, 100)
	if err != nil {
		return nil, err
	}

	sum := &models.DashboardSummary{
		Products:   len(products),
		Categories: len(categories),
		Orders:     len(orders),
	}
	for _, p := range products {
		if p.Stock < LowStockThreshold {
			sum.LowStock = append(sum.LowStock, p)
		}
	}
	return sum, nil
}
