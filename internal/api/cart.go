package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-ports/storefront/internal/models"
)

// GetCart returns the server-side cart of the current user.
func (c *Client) GetCart(ctx context.Context) (*models.Cart, error) {
	var out models.Cart
	err := c.doJSON(ctx, request{method: http.MethodGet, route: "/cart", path: "/cart", auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddCartItem adds quantity units of a product to the server-side cart.
func (c *Client) AddCartItem(ctx context.Context, productID int64, quantity int) (*models.CartItemResult, error) {
	var out models.CartItemResult
	body := models.AddToCartRequest{ProductID: productID, Quantity: quantity}
	err := c.doJSON(ctx, request{method: http.MethodPost, route: "/cart/items", path: "/cart/items", body: body, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCartItem sets the quantity of a line.
func (c *Client) UpdateCartItem(ctx context.Context, productID int64, quantity int) (*models.CartItemResult, error) {
	var out models.CartItemResult
	body := models.UpdateCartItemRequest{Quantity: quantity}
	err := c.doJSON(ctx, request{method: http.MethodPut, route: "/cart/items/{id}", path: cartItemPath(productID), body: body, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveCartItem drops a line.
func (c *Client) RemoveCartItem(ctx context.Context, productID int64) error {
	return c.doJSON(ctx, request{method: http.MethodDelete, route: "/cart/items/{id}", path: cartItemPath(productID), auth: true}, nil)
}

// ClearCart empties the server-side cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.doJSON(ctx, request{method: http.MethodDelete, route: "/cart", path: "/cart", auth: true}, nil)
}

func cartItemPath(productID int64) string {
	return "/cart/items/" + strconv.FormatInt(productID, 10)
}
