package storefront

import (
	"context"

	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/query"
)

// RefreshCart fetches the server cart and applies it to the cart store unless
// a local mutation landed while the request was in flight. It returns the
// store's cart afterwards.
func (s *Service) RefreshCart(ctx context.Context) (*models.Cart, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	rev := s.Cart.Revision()
	server, err := query.Fetch(ctx, s.Queries, s.userKey(query.Cart), s.Config.Cache.Stale.Cart, s.API.GetCart)
	if err != nil {
		return nil, err
	}
	if !s.Cart.SetCartIfCurrent(server, rev) {
		s.logger.Debug("discarded stale cart fetch", "revision", rev)
	}
	return s.Cart.Snapshot().Cart, nil
}

// AddToCart adds quantity units of a product. The cart store is updated
// optimistically, then the server is called and the cart refetched.
func (s *Service) AddToCart(ctx context.Context, productID int64, quantity int) (*models.Cart, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, s.fail(ErrInvalidQuantity, "Quantity must be greater than 0")
	}
	p, err := s.Product(ctx, productID)
	if err != nil {
		return nil, s.fail(err, "Failed to add item")
	}

	s.Cart.AddItem(models.CartLine{
		ProductID:   p.ID,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		ProductName: p.Name,
	})
	s.metrics.RecordCartMutation("add")

	if _, err := s.API.AddCartItem(ctx, productID, quantity); err != nil {
		s.resync(ctx)
		return nil, s.fail(err, "Failed to add item")
	}
	s.notifier.Success("Added to cart!")
	return s.reconcile(ctx)
}

// UpdateCartItem sets the quantity of a line.
func (s *Service) UpdateCartItem(ctx context.Context, productID int64, quantity int) (*models.Cart, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, s.fail(ErrInvalidQuantity, "Quantity must be greater than 0")
	}

	s.Cart.UpdateItem(productID, quantity)
	s.metrics.RecordCartMutation("update")

	if _, err := s.API.UpdateCartItem(ctx, productID, quantity); err != nil {
		s.resync(ctx)
		return nil, s.fail(err, "Failed to update item")
	}
	return s.reconcile(ctx)
}

// RemoveCartItem drops a line.
func (s *Service) RemoveCartItem(ctx context.Context, productID int64) (*models.Cart, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}

	s.Cart.RemoveItem(productID)
	s.metrics.RecordCartMutation("remove")

	if err := s.API.RemoveCartItem(ctx, productID); err != nil {
		s.resync(ctx)
		return nil, s.fail(err, "Failed to remove item")
	}
	s.notifier.Success("Removed from cart")
	return s.reconcile(ctx)
}

// ClearCart empties the cart.
func (s *Service) ClearCart(ctx context.Context) error {
	if err := s.requireLogin(); err != nil {
		return err
	}

	s.Cart.Clear()
	s.metrics.RecordCartMutation("clear")

	if err := s.API.ClearCart(ctx); err != nil {
		s.resync(ctx)
		return s.fail(err, "Failed to clear cart")
	}
	s.invalidate(ctx, query.Cart)
	return nil
}

// reconcile invalidates the cached cart and refetches it so the store matches
// the server after a successful mutation.
func (s *Service) reconcile(ctx context.Context) (*models.Cart, error) {
	s.invalidate(ctx, query.Cart)
	return s.RefreshCart(ctx)
}

// resync rolls the optimistic state back to the server's view after a failed
// mutation. Errors are logged only.
func (s *Service) resync(ctx context.Context) {
	s.invalidate(ctx, query.Cart)
	if _, err := s.RefreshCart(ctx); err != nil {
		s.logger.Warn("cart resync failed", "err", err)
	}
}
