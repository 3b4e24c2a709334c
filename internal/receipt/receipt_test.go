package receipt_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/shopspring/decimal"

	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/receipt"
)

func order(id int64, status string) *models.Order {
	return &models.Order{
		ID:          id,
		UserID:      5,
		TotalAmount: decimal.RequireFromString("25"),
		Status:      status,
		CreatedAt:   "2026-10-03T10:00:00Z",
		Items: []models.OrderItem{
			{ID: 1, ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("12.5")},
		},
	}
}

// ---------------------------------------------------------------------------
// RenderOrder
// ---------------------------------------------------------------------------

func TestRenderOrder_HappyPath(t *testing.T) {
	c := qt.New(t)

	pi := "pi_123"
	cases := []struct {
		name  string
		order *models.Order
		names map[int64]string
		want  string
	}{
		{
			name:  "no items",
			order: &models.Order{ID: 3, Status: "pending", TotalAmount: decimal.RequireFromString("9.9")},
			want:  "### Order #3\n**Status:** pending\n**Total:** $9.90",
		},
		{
			name:  "with payment intent",
			order: &models.Order{ID: 3, Status: "paid", TotalAmount: decimal.Zero, PaymentIntentID: &pi},
			want:  "### Order #3\n**Status:** paid\n**Total:** $0.00\n**Payment:** pi_123",
		},
		{
			name:  "items with names",
			order: order(12, "paid"),
			names: map[int64]string{1: "Mug | Large"},
			want: "### Order #12\n**Status:** paid\n**Total:** $25.00\n**Placed:** 2026-10-03T10:00:00Z\n\n" +
				"| Product | Qty | Unit | Subtotal |\n|---|---:|---:|---:|\n| Mug \\| Large | 2 | $12.50 | $25.00 |",
		},
		{
			name:  "missing name falls back to id",
			order: &models.Order{ID: 4, Status: "paid", Items: []models.OrderItem{{ProductID: 9, Quantity: 1, UnitPrice: decimal.RequireFromString("1")}}},
			want: "### Order #4\n**Status:** paid\n**Total:** $0.00\n\n" +
				"| Product | Qty | Unit | Subtotal |\n|---|---:|---:|---:|\n| Product #9 | 1 | $1.00 | $1.00 |",
		},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(receipt.RenderOrder(tc.order, tc.names), qt.Equals, tc.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Write
// ---------------------------------------------------------------------------

func read(c *qt.C, path string) string {
	data, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	return string(data)
}

func TestWrite_CreatesLedger(t *testing.T) {
	c := qt.New(t)
	dir := filepath.Join(t.TempDir(), "receipts")

	path, err := receipt.Write(dir, order(12, "paid"), map[int64]string{1: "Mug"})
	c.Assert(err, qt.IsNil)
	c.Assert(filepath.Base(path), qt.Equals, "2026-10-orders.md")

	got := read(c, path)
	c.Assert(strings.HasPrefix(got, "---\nuser_id: 5\ncreated: "), qt.IsTrue)
	c.Assert(got, qt.Contains, "orders: [12]\n---\n\n# 2026-10 Orders\n\n## Paid\n\n### Order #12\n")
	c.Assert(got, qt.Contains, "| Mug | 2 | $12.50 | $25.00 |\n")
}

func TestWrite_InsertsStatusHeadingsInOrder(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	_, err := receipt.Write(dir, order(12, "paid"), nil)
	c.Assert(err, qt.IsNil)
	path, err := receipt.Write(dir, order(13, "pending"), nil)
	c.Assert(err, qt.IsNil)
	_, err = receipt.Write(dir, order(14, "delivered"), nil)
	c.Assert(err, qt.IsNil)

	got := read(c, path)
	c.Assert(got, qt.Contains, "orders: [12, 13, 14]\n")
	pending := strings.Index(got, "## Pending")
	paid := strings.Index(got, "## Paid")
	delivered := strings.Index(got, "## Delivered")
	c.Assert(pending > 0 && pending < paid && paid < delivered, qt.IsTrue, qt.Commentf("%s", got))
	c.Assert(got, qt.Not(qt.Contains), "\n\n\n")
}

func TestWrite_ResaveMovesOrder(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	_, err := receipt.Write(dir, order(12, "paid"), nil)
	c.Assert(err, qt.IsNil)
	_, err = receipt.Write(dir, order(13, "pending"), nil)
	c.Assert(err, qt.IsNil)
	path, err := receipt.Write(dir, order(13, "paid"), nil)
	c.Assert(err, qt.IsNil)

	got := read(c, path)
	c.Assert(strings.Count(got, "### Order #13"), qt.Equals, 1)
	c.Assert(got, qt.Not(qt.Contains), "## Pending")
	c.Assert(strings.Index(got, "### Order #12") < strings.Index(got, "### Order #13"), qt.IsTrue)
	c.Assert(got, qt.Contains, "orders: [12, 13]\n")
}

func TestWrite_UnknownStatusGoesLast(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	_, err := receipt.Write(dir, order(1, "refunded"), nil)
	c.Assert(err, qt.IsNil)
	path, err := receipt.Write(dir, order(2, "shipped"), nil)
	c.Assert(err, qt.IsNil)

	got := read(c, path)
	c.Assert(strings.Index(got, "## Shipped") < strings.Index(got, "## Refunded"), qt.IsTrue)
}

func TestWrite_FailurePath(t *testing.T) {
	c := qt.New(t)

	blocker := filepath.Join(t.TempDir(), "file")
	c.Assert(os.WriteFile(blocker, []byte("x"), 0o600), qt.IsNil)

	_, err := receipt.Write(filepath.Join(blocker, "receipts"), order(1, "paid"), nil)
	c.Assert(err, qt.ErrorMatches, "receipt.Write: .*")
}
