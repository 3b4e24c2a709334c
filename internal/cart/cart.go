// Package cart holds the client-side view of the shopping cart and applies
// optimistic local mutations to it.
//
// Every applied local mutation bumps a revision counter. A server fetch that
// started before a mutation can be applied with SetCartIfCurrent, which drops
// the stale result instead of overwriting the newer local state.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/go-ports/storefront/internal/events"
	"github.com/go-ports/storefront/internal/models"
)

// Snapshot is an immutable view of the cart. Cart is nil when no cart exists.
type Snapshot struct {
	Cart     *models.Cart
	Revision uint64
}

// Store is the sole mutation authority for cart state.
type Store struct {
	bus *events.Bus

	mu       sync.Mutex
	cart     *models.Cart
	revision uint64
}

// New returns a store with no cart.
func New() *Store {
	return &Store{bus: events.New()}
}

// Snapshot returns a deep copy of the current cart and its revision.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Cart: s.cart.Clone(), Revision: s.revision}
}

// Revision returns the current revision.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Subscribe registers fn to receive a Snapshot after every applied change.
// fn must not mutate this store.
func (s *Store) Subscribe(fn func(Snapshot)) error {
	return s.bus.Subscribe(events.TopicCartChanged, fn)
}

// SetCart replaces the cart wholesale. ItemCount is kept exactly as given.
func (s *Store) SetCart(c *models.Cart) {
	s.mutate(func(*models.Cart) (*models.Cart, bool) { return c.Clone(), true })
}

// SetCartIfCurrent replaces the cart only if the revision still equals rev,
// i.e. no local mutation was applied since rev was read. It reports whether
// the replacement happened.
func (s *Store) SetCartIfCurrent(c *models.Cart, rev uint64) bool {
	applied := false
	s.mutateIf(rev, func(*models.Cart) (*models.Cart, bool) {
		applied = true
		return c.Clone(), true
	})
	return applied
}

// AddItem merges line into the cart. A line with the same product ID has its
// quantity increased; otherwise line is appended. With no cart, a new one is
// created holding only line.
func (s *Store) AddItem(line models.CartLine) {
	s.mutate(func(cur *models.Cart) (*models.Cart, bool) {
		if cur == nil {
			return recompute(&models.Cart{Items: []models.CartLine{line}}), true
		}
		if i := indexOf(cur.Items, line.ProductID); i >= 0 {
			cur.Items[i].Quantity += line.Quantity
		} else {
			cur.Items = append(cur.Items, line)
		}
		return recompute(cur), true
	})
}

// RemoveItem drops the line for productID. Absent lines are ignored.
func (s *Store) RemoveItem(productID int64) {
	s.mutate(func(cur *models.Cart) (*models.Cart, bool) {
		if cur == nil {
			return nil, false
		}
		i := indexOf(cur.Items, productID)
		if i < 0 {
			return nil, false
		}
		cur.Items = append(cur.Items[:i], cur.Items[i+1:]...)
		return recompute(cur), true
	})
}

// UpdateItem sets the quantity of the line for productID. No lower bound is
// enforced here. Absent lines are ignored.
func (s *Store) UpdateItem(productID int64, quantity int) {
	s.mutate(func(cur *models.Cart) (*models.Cart, bool) {
		if cur == nil {
			return nil, false
		}
		i := indexOf(cur.Items, productID)
		if i < 0 {
			return nil, false
		}
		cur.Items[i].Quantity = quantity
		return recompute(cur), true
	})
}

// Clear removes the cart. Clearing an absent cart changes nothing.
func (s *Store) Clear() {
	s.mutate(func(cur *models.Cart) (*models.Cart, bool) { return nil, cur != nil })
}

// mutate runs fn on a private copy of the cart. When fn reports a change the
// result becomes the current cart, the revision is bumped and subscribers are
// notified after the lock is released.
func (s *Store) mutate(fn func(cur *models.Cart) (*models.Cart, bool)) {
	s.mu.Lock()
	s.commitLocked(fn)
}

func (s *Store) mutateIf(rev uint64, fn func(cur *models.Cart) (*models.Cart, bool)) {
	s.mu.Lock()
	if s.revision != rev {
		s.mu.Unlock()
		return
	}
	s.commitLocked(fn)
}

// commitLocked expects s.mu held and releases it.
func (s *Store) commitLocked(fn func(cur *models.Cart) (*models.Cart, bool)) {
	next, changed := fn(s.cart.Clone())
	if !changed {
		s.mu.Unlock()
		return
	}
	s.cart = next
	s.revision++
	snap := Snapshot{Cart: s.cart.Clone(), Revision: s.revision}
	s.mu.Unlock()

	s.bus.Publish(events.TopicCartChanged, snap)
}

// recompute derives Total and ItemCount from the lines. ItemCount counts
// distinct lines, matching what the API reports for a fetched cart.
func recompute(c *models.Cart) *models.Cart {
	total := decimal.Zero
	for _, l := range c.Items {
		total = total.Add(l.Subtotal())
	}
	c.Total = total
	c.ItemCount = len(c.Items)
	return c
}

func indexOf(items []models.CartLine, productID int64) int {
	for i, l := range items {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
