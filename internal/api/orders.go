package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-ports/storefront/internal/models"
)

// CreateOrder turns the server-side cart into an order.
func (c *Client) CreateOrder(ctx context.Context) (*models.Order, error) {
	var out models.Order
	err := c.doJSON(ctx, request{method: http.MethodPost, route: "/orders", path: "/orders", auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns a page of the current user's orders. Zero values are omitted.
func (c *Client) ListOrders(ctx context.Context, skip, limit int) ([]models.Order, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []models.Order
	err := c.doJSON(ctx, request{method: http.MethodGet, route: "/orders", path: "/orders", query: q, auth: true}, &out)
	return out, err
}

// GetOrder returns one order with its items.
func (c *Client) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var out models.Order
	path := "/orders/" + strconv.FormatInt(id, 10)
	err := c.doJSON(ctx, request{method: http.MethodGet, route: "/orders/{id}", path: path, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentIntent requests a payment intent for an order.
func (c *Client) CreatePaymentIntent(ctx context.Context, orderID int64) (*models.PaymentIntent, error) {
	var out models.PaymentIntent
	body := models.PaymentIntentRequest{OrderID: orderID}
	err := c.doJSON(ctx, request{method: http.MethodPost, route: "/payments/create-intent", path: "/payments/create-intent", body: body, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
