package mcp

// White-box testing required: parsePrice, formatDate and the view helpers
// shape incoming tool arguments and outgoing tool responses. They are not
// reachable through NewServer without a running API, so direct access is
// needed to cover their edge cases.

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/shopspring/decimal"

	"github.com/go-ports/storefront/internal/models"
)

// ---------------------------------------------------------------------------
// parsePrice
// ---------------------------------------------------------------------------

func TestParsePrice_HappyPath(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"two decimals", "12.50", "12.5"},
		{"integer", "7", "7"},
		{"sub-cent precision kept", "0.125", "0.125"},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			got, err := parsePrice(tc.in)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.IsNotNil)
			c.Assert(got.String(), qt.Equals, tc.want)
		})
	}

	c.Run("empty string means no filter", func(c *qt.C) {
		got, err := parsePrice("")
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.IsNil)
	})
}

func TestParsePrice_FailurePath(t *testing.T) {
	c := qt.New(t)
	_, err := parsePrice("cheap")
	c.Assert(err, qt.IsNotNil)
}

// ---------------------------------------------------------------------------
// formatDate
// ---------------------------------------------------------------------------

func TestFormatDate_HappyPath(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"timestamp keeps the date", "2024-03-07T12:00:00Z", "2024-03-07"},
		{"date only", "2024-01-15", "2024-01-15"},
		{"short string returned as-is", "2024", "2024"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(formatDate(tc.in), qt.Equals, tc.want)
		})
	}
}

// ---------------------------------------------------------------------------
// views
// ---------------------------------------------------------------------------

func TestCartView_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("nil cart renders empty", func(c *qt.C) {
		v := cartView(nil)
		c.Assert(v["items"], qt.HasLen, 0)
		c.Assert(v["item_count"], qt.Equals, 0)
		c.Assert(v["total"], qt.Equals, "$0.00")
	})

	c.Run("lines carry subtotals", func(c *qt.C) {
		v := cartView(&models.Cart{
			Items: []models.CartLine{{
				ProductID:   3,
				Quantity:    3,
				UnitPrice:   decimal.RequireFromString("0.10"),
				ProductName: "Spoon",
			}},
			Total:     decimal.RequireFromString("0.30"),
			ItemCount: 1,
		})
		items, ok := v["items"].([]map[string]any)
		c.Assert(ok, qt.IsTrue)
		c.Assert(items, qt.HasLen, 1)
		c.Assert(items[0]["subtotal"], qt.Equals, "$0.30")
		c.Assert(items[0]["name"], qt.Equals, "Spoon")
		c.Assert(v["total"], qt.Equals, "$0.30")
	})
}

func TestOrderView_HappyPath(t *testing.T) {
	c := qt.New(t)

	intent := "pi_123"
	v := orderView(&models.Order{
		ID:              9,
		Status:          "pending",
		TotalAmount:     decimal.RequireFromString("49.99"),
		CreatedAt:       "2024-05-01T10:00:00",
		PaymentIntentID: &intent,
	})
	c.Assert(v["id"], qt.Equals, int64(9))
	c.Assert(v["total"], qt.Equals, "$49.99")
	c.Assert(v["created"], qt.Equals, "2024-05-01")
	c.Assert(v["payment_intent_id"], qt.Equals, "pi_123")

	v = orderView(&models.Order{ID: 1})
	_, ok := v["payment_intent_id"]
	c.Assert(ok, qt.IsFalse)
}
