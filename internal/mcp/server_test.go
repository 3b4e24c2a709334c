package mcp_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"

	"github.com/go-ports/storefront/internal/fakeapi"
	internalmcp "github.com/go-ports/storefront/internal/mcp"
	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/storefront"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fixture struct {
	fake *fakeapi.Server
	svc  *storefront.Service
	cl   *mcpclient.Client
	mug  models.Product
}

// newFixture starts a fake API, a service rooted at a temp home and an
// in-process MCP client. The client is initialized before it is returned.
func newFixture(c *qt.C) *fixture {
	c.TB.Helper()

	fake := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(fake.Handler())
	c.Cleanup(srv.Close)
	fake.AddUser("ada@example.com", "hunter22", false)
	mug := fake.AddProduct(models.ProductInput{SKU: "MUG", Name: "Mug", Price: decimal.RequireFromString("10.00"), Stock: 10})
	fake.AddProduct(models.ProductInput{SKU: "POT", Name: "Teapot", Price: decimal.RequireFromString("19.99"), Stock: 2})

	home := c.TB.TempDir()
	cfg := "api:\n  base_url: " + srv.URL + fakeapi.Prefix + "\n  requests_per_second: 0\n"
	c.Assert(os.WriteFile(filepath.Join(home, "config.yaml"), []byte(cfg), 0o600), qt.IsNil)

	svc, err := storefront.New(context.Background(), home, storefront.Options{Notifier: &storefront.Recorder{}})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = svc.Close() })

	cl, err := mcpclient.NewInProcessClient(internalmcp.NewServer(svc))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = cl.Close() })
	c.Assert(cl.Start(context.Background()), qt.IsNil)

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "mcp-test", Version: "0.0.1"}
	_, err = cl.Initialize(context.Background(), initReq)
	c.Assert(err, qt.IsNil)

	return &fixture{fake: fake, svc: svc, cl: cl, mug: mug}
}

func (f *fixture) login(c *qt.C) {
	_, err := f.svc.Login(context.Background(), "ada@example.com", "hunter22")
	c.Assert(err, qt.IsNil)
}

// call invokes the named tool and returns the text of its single content
// item along with the IsError flag.
func (f *fixture) call(c *qt.C, name string, args map[string]any) (string, bool) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := f.cl.CallTool(context.Background(), req)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Content, qt.HasLen, 1)

	tc, ok := mcp.AsTextContent(result.Content[0])
	c.Assert(ok, qt.IsTrue)
	return tc.Text, result.IsError
}

func decodeInto(c *qt.C, text string, v any) {
	c.Assert(json.Unmarshal([]byte(text), v), qt.IsNil, qt.Commentf("payload: %s", text))
}

// ---------------------------------------------------------------------------
// ListTools
// ---------------------------------------------------------------------------

func TestListTools_HappyPath(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	result, err := f.cl.ListTools(context.Background(), mcp.ListToolsRequest{})
	c.Assert(err, qt.IsNil)

	names := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"shop_whoami", "shop_products", "shop_product", "shop_categories",
		"shop_cart", "shop_cart_add", "shop_cart_update", "shop_cart_remove", "shop_cart_clear",
		"shop_checkout", "shop_orders", "shop_order",
	} {
		c.Assert(names[want], qt.IsTrue, qt.Commentf("missing tool %s", want))
	}
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func TestProducts_HappyPath(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	c.Run("anonymous sessions may browse", func(c *qt.C) {
		text, isErr := f.call(c, "shop_products", nil)
		c.Assert(isErr, qt.IsFalse)
		var got []map[string]any
		decodeInto(c, text, &got)
		c.Assert(got, qt.HasLen, 2)
	})

	c.Run("price filter", func(c *qt.C) {
		text, isErr := f.call(c, "shop_products", map[string]any{"max_price": "15"})
		c.Assert(isErr, qt.IsFalse)
		var got []map[string]any
		decodeInto(c, text, &got)
		c.Assert(got, qt.HasLen, 1)
		c.Assert(got[0]["name"], qt.Equals, "Mug")
		c.Assert(got[0]["price"], qt.Equals, "$10.00")
	})

	c.Run("single product", func(c *qt.C) {
		text, isErr := f.call(c, "shop_product", map[string]any{"id": f.mug.ID})
		c.Assert(isErr, qt.IsFalse)
		var got map[string]any
		decodeInto(c, text, &got)
		c.Assert(got["sku"], qt.Equals, "MUG")
	})
}

func TestProducts_FailurePath(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	c.Run("bad price filter", func(c *qt.C) {
		text, isErr := f.call(c, "shop_products", map[string]any{"min_price": "cheap"})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Matches, "min_price: .*")
	})

	c.Run("unknown product surfaces the server detail", func(c *qt.C) {
		text, isErr := f.call(c, "shop_product", map[string]any{"id": 999})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Equals, "Product not found with id: 999")
	})
}

// ---------------------------------------------------------------------------
// Cart and checkout
// ---------------------------------------------------------------------------

func TestCart_RequiresLogin(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	for _, tool := range []string{"shop_cart", "shop_cart_clear", "shop_checkout", "shop_orders"} {
		c.Run(tool, func(c *qt.C) {
			text, isErr := f.call(c, tool, nil)
			c.Assert(isErr, qt.IsTrue)
			c.Assert(text, qt.Matches, "Not logged in.*")
		})
	}
}

func TestCartAndCheckout_HappyPath(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.login(c)

	text, isErr := f.call(c, "shop_cart_add", map[string]any{"product_id": f.mug.ID, "quantity": 2})
	c.Assert(isErr, qt.IsFalse)
	var cart map[string]any
	decodeInto(c, text, &cart)
	c.Assert(cart["total"], qt.Equals, "$20.00")
	c.Assert(cart["item_count"], qt.Equals, float64(1))

	text, isErr = f.call(c, "shop_cart_update", map[string]any{"product_id": f.mug.ID, "quantity": 3})
	c.Assert(isErr, qt.IsFalse)
	decodeInto(c, text, &cart)
	c.Assert(cart["total"], qt.Equals, "$30.00")

	text, isErr = f.call(c, "shop_checkout", nil)
	c.Assert(isErr, qt.IsFalse)
	var checkout map[string]any
	decodeInto(c, text, &checkout)
	c.Assert(checkout["payment_intent_id"], qt.Matches, "pi_.*")
	order, ok := checkout["order"].(map[string]any)
	c.Assert(ok, qt.IsTrue)
	c.Assert(order["total"], qt.Equals, "$30.00")

	text, isErr = f.call(c, "shop_cart", nil)
	c.Assert(isErr, qt.IsFalse)
	decodeInto(c, text, &cart)
	c.Assert(cart["items"], qt.HasLen, 0)

	text, isErr = f.call(c, "shop_orders", nil)
	c.Assert(isErr, qt.IsFalse)
	var orders []map[string]any
	decodeInto(c, text, &orders)
	c.Assert(orders, qt.HasLen, 1)

	text, isErr = f.call(c, "shop_order", map[string]any{"id": order["id"]})
	c.Assert(isErr, qt.IsFalse)
	var detail map[string]any
	decodeInto(c, text, &detail)
	c.Assert(detail["items"], qt.HasLen, 1)
}

func TestCartAdd_FailurePath(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.login(c)

	c.Run("more than the stock", func(c *qt.C) {
		text, isErr := f.call(c, "shop_cart_add", map[string]any{"product_id": f.mug.ID, "quantity": 11})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Equals, "Insufficient stock")
	})

	c.Run("checkout with an empty cart", func(c *qt.C) {
		text, isErr := f.call(c, "shop_checkout", nil)
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Equals, "storefront: cart is empty")
	})
}

// ---------------------------------------------------------------------------
// Cart resource
// ---------------------------------------------------------------------------

func (f *fixture) readCart(c *qt.C) (string, error) {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "shop://cart"
	result, err := f.cl.ReadResource(context.Background(), req)
	if err != nil {
		return "", err
	}
	c.Assert(result.Contents, qt.HasLen, 1)
	tc, ok := mcp.AsTextResourceContents(result.Contents[0])
	c.Assert(ok, qt.IsTrue)
	c.Assert(tc.MIMEType, qt.Equals, "application/json")
	return tc.Text, nil
}

func TestCartResource_HappyPath(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.login(c)

	text, err := f.readCart(c)
	c.Assert(err, qt.IsNil)
	var cart map[string]any
	decodeInto(c, text, &cart)
	c.Assert(cart["total"], qt.Equals, "$0.00")

	// Changes made outside the tools show up on the next read.
	_, err = f.svc.AddToCart(context.Background(), f.mug.ID, 2)
	c.Assert(err, qt.IsNil)

	text, err = f.readCart(c)
	c.Assert(err, qt.IsNil)
	decodeInto(c, text, &cart)
	c.Assert(cart["total"], qt.Equals, "$20.00")
	c.Assert(cart["items"], qt.HasLen, 1)
}

func TestCartResource_FailurePath(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	_, err := f.readCart(c)
	c.Assert(err, qt.ErrorMatches, ".*not logged in.*")
}

// ---------------------------------------------------------------------------
// Whoami
// ---------------------------------------------------------------------------

func TestWhoami_HappyPath(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	text, _ := f.call(c, "shop_whoami", nil)
	var got map[string]any
	decodeInto(c, text, &got)
	c.Assert(got["authenticated"], qt.Equals, false)

	f.login(c)
	text, _ = f.call(c, "shop_whoami", nil)
	got = nil
	decodeInto(c, text, &got)
	c.Assert(got["authenticated"], qt.Equals, true)
	c.Assert(got["email"], qt.Equals, "ada@example.com")
}
