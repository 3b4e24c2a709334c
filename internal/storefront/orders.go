package storefront

import (
	"context"
	"fmt"

	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/query"
	"github.com/go-ports/storefront/internal/receipt"
)

// Checkout places an order for the current cart and requests a payment
// intent for it. No payment is made.
func (s *Service) Checkout(ctx context.Context) (*models.CheckoutResult, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	snap := s.Cart.Snapshot()
	if snap.Cart == nil || len(snap.Cart.Items) == 0 {
		return nil, s.fail(ErrEmptyCart, "Cart is empty")
	}

	order, err := s.API.CreateOrder(ctx)
	if err != nil {
		return nil, s.fail(err, "Failed to create order")
	}
	// The server empties the cart when it accepts an order.
	s.Cart.Clear()
	s.invalidate(ctx, query.Orders, query.Order, query.Cart)
	s.notifier.Success("Order created successfully!")

	result := &models.CheckoutResult{Order: order}
	intent, err := s.API.CreatePaymentIntent(ctx, order.ID)
	if err != nil {
		return result, s.fail(err, "Failed to create payment intent")
	}
	result.Intent = intent
	s.invalidate(ctx, query.Order)
	s.notifier.Success("Order created! Payment intent ready.")
	return result, nil
}

// Orders returns a page of the current user's orders.
func (s *Service) Orders(ctx context.Context, skip, limit int) ([]models.Order, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	key := s.userKey(query.Orders, fmt.Sprintf("%d-%d", skip, limit))
	return query.Fetch(ctx, s.Queries, key, s.Config.Cache.Stale.Orders, func(ctx context.Context) ([]models.Order, error) {
		return s.API.ListOrders(ctx, skip, limit)
	})
}

// Order returns one order with its items.
func (s *Service) Order(ctx context.Context, id int64) (*models.Order, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	return query.Fetch(ctx, s.Queries, s.userKey(query.Order, id), s.Config.Cache.Stale.Order, func(ctx context.Context) (*models.Order, error) {
		return s.API.GetOrder(ctx, id)
	})
}

// SaveReceipt writes the order into the monthly receipt ledger and returns
// the file path.
func (s *Service) SaveReceipt(ctx context.Context, id int64) (string, error) {
	order, err := s.Order(ctx, id)
	if err != nil {
		return "", err
	}
	ids := make([]int64, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}
	path, err := receipt.Write(s.ReceiptsDir, order, s.productNames(ctx, ids))
	if err != nil {
		return "", fmt.Errorf("storefront.SaveReceipt: %w", err)
	}
	return path, nil
}
