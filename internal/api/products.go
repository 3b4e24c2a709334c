package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-ports/storefront/internal/models"
)

// ListProducts returns the catalog page matching f.
func (c *Client) ListProducts(ctx context.Context, f models.ProductFilters) ([]models.Product, error) {
	var out []models.Product
	err := c.doJSON(ctx, request{method: http.MethodGet, route: "/products", path: "/products", query: f.Values()}, &out)
	return out, err
}

// GetProduct returns one product.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, request{method: http.MethodGet, route: "/products/{id}", path: productPath(id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct adds a product. Admin only.
func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, request{method: http.MethodPost, route: "/products", path: "/products", body: in, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProduct patches a product. Admin only.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in models.ProductUpdate) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, request{method: http.MethodPut, route: "/products/{id}", path: productPath(id), body: in, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes a product. Admin only.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.doJSON(ctx, request{method: http.MethodDelete, route: "/products/{id}", path: productPath(id), auth: true}, nil)
}

// ListCategories returns every category.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := c.doJSON(ctx, request{method: http.MethodGet, route: "/products/categories/list", path: "/products/categories/list"}, &out)
	return out, err
}

// CreateCategory adds a category. Admin only.
func (c *Client) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	var out models.Category
	err := c.doJSON(ctx, request{method: http.MethodPost, route: "/products/categories", path: "/products/categories", body: in, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}
