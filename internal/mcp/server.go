// Package mcp provides the stdio MCP server exposing storefront tools for
// agents acting on behalf of the logged-in shopper.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/go-ports/storefront/internal/api"
	"github.com/go-ports/storefront/internal/buildinfo"
	"github.com/go-ports/storefront/internal/cart"
	"github.com/go-ports/storefront/internal/guard"
	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/storefront"
)

const productsDescription = `List catalog products. Filters are optional and combine with AND. Prices are in dollars.`

const cartAddDescription = `Add a product to the shopping cart. Adding a product that is already in the cart increases its quantity. Requires a logged-in session; call shop_whoami first if unsure.` //nolint:lll

// cartURI names the resource holding the local cart. A resource-updated
// notification is sent to every client after each cart change.
const cartURI = "shop://cart"

const resourceUpdated = "notifications/resources/updated"

const checkoutDescription = `Place an order for everything in the cart and request a payment intent for it. No payment is taken. The cart is emptied once the order is accepted.` //nolint:lll

// NewServer creates and registers all storefront tools on a new MCP server.
// It is separate from Serve so that tests and other callers can obtain a
// fully configured server without committing to the stdio transport.
func NewServer(svc *storefront.Service) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("shop", buildinfo.Version, mcpserver.WithResourceCapabilities(true, false))
	registerTools(s, svc)
	registerResources(s, svc)
	return s
}

// Serve runs the stdio MCP server for svc, blocking until stdin closes.
func Serve(_ context.Context, svc *storefront.Service) error {
	if err := mcpserver.ServeStdio(NewServer(svc)); err != nil {
		return fmt.Errorf("mcp: serve: %w", err)
	}
	return nil
}

// registerResources exposes the cart resource and notifies clients whenever
// the cart store changes.
func registerResources(s *mcpserver.MCPServer, svc *storefront.Service) {
	s.AddResource(mcp.NewResource(cartURI, "Shopping cart",
		mcp.WithResourceDescription("The cart as last seen by this session, refreshed after every cart change."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleCartResource(ctx, svc, req)
	})

	// Subscribe only fails for a non-func handler.
	_ = svc.Cart.Subscribe(func(cart.Snapshot) {
		s.SendNotificationToAllClients(resourceUpdated, map[string]any{"uri": cartURI})
	})
}

// registerTools wires every shop tool into the server.
func registerTools(s *mcpserver.MCPServer, svc *storefront.Service) {
	s.AddTool(mcp.NewTool("shop_whoami",
		mcp.WithDescription("Show the logged-in user, or report that the session is anonymous."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleWhoami(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_products",
		mcp.WithDescription(productsDescription),
		mcp.WithString("search", mcp.Description("Match against name and description.")),
		mcp.WithNumber("category_id", mcp.Description("Only products in this category.")),
		mcp.WithString("min_price", mcp.Description("Lowest price, e.g. \"5.00\".")),
		mcp.WithString("max_price", mcp.Description("Highest price, e.g. \"25.00\".")),
		mcp.WithNumber("skip", mcp.Description("Results to skip (default 0).")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20).")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleProducts(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_product",
		mcp.WithDescription("Get one product by id."),
		mcp.WithNumber("id", mcp.Description("Product id."), mcp.Required()),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleProduct(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_categories",
		mcp.WithDescription("List product categories."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCategories(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_cart",
		mcp.WithDescription("Show the shopping cart as stored on the server."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCart(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_cart_add",
		mcp.WithDescription(cartAddDescription),
		mcp.WithNumber("product_id", mcp.Description("Product id."), mcp.Required()),
		mcp.WithNumber("quantity", mcp.Description("Units to add (default 1).")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCartAdd(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_cart_update",
		mcp.WithDescription("Set the quantity of a product already in the cart."),
		mcp.WithNumber("product_id", mcp.Description("Product id."), mcp.Required()),
		mcp.WithNumber("quantity", mcp.Description("New quantity, at least 1."), mcp.Required()),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCartUpdate(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_cart_remove",
		mcp.WithDescription("Remove a product from the cart."),
		mcp.WithNumber("product_id", mcp.Description("Product id."), mcp.Required()),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCartRemove(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_cart_clear",
		mcp.WithDescription("Remove every item from the cart."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCartClear(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_checkout",
		mcp.WithDescription(checkoutDescription),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCheckout(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_orders",
		mcp.WithDescription("List the user's orders, newest first."),
		mcp.WithNumber("skip", mcp.Description("Orders to skip (default 0).")),
		mcp.WithNumber("limit", mcp.Description("Max orders (default 10).")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleOrders(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("shop_order",
		mcp.WithDescription("Get one order with its line items."),
		mcp.WithNumber("id", mcp.Description("Order id."), mcp.Required()),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleOrder(ctx, svc, req)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleWhoami(_ context.Context, svc *storefront.Service, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := svc.Session.State()
	if !st.IsAuthenticated {
		return jsonResult(map[string]any{
			"authenticated": false,
			"message":       "Not logged in. Run `shop login` in a terminal, then retry.",
		})
	}
	return jsonResult(map[string]any{
		"authenticated": true,
		"id":            st.User.ID,
		"email":         st.User.Email,
		"name":          st.User.DisplayName(),
		"admin":         st.User.IsAdmin,
	})
}

func handleProducts(ctx context.Context, svc *storefront.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	f := models.ProductFilters{
		Skip:       max(req.GetInt("skip", 0), 0),
		Limit:      limit,
		CategoryID: int64(req.GetInt("category_id", 0)),
		Search:     req.GetString("search", ""),
	}
	var err error
	if f.MinPrice, err = parsePrice(req.GetString("min_price", "")); err != nil {
		return mcp.NewToolResultError("min_price: " + err.Error()), nil
	}
	if f.MaxPrice, err = parsePrice(req.GetString("max_price", "")); err != nil {
		return mcp.NewToolResultError("max_price: " + err.Error()), nil
	}

	products, err := svc.Products(ctx, f)
	if err != nil {
		return toolError(err), nil
	}
	out := make([]map[string]any, 0, len(products))
	for i := range products {
		out = append(out, productView(&products[i]))
	}
	return jsonResult(out)
}

func handleProduct(ctx context.Context, svc *storefront.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(req.GetInt("id", 0))
	if id <= 0 {
		return mcp.NewToolResultError("id is required"), nil
	}
	p, err := svc.Product(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	view := productView(p)
	if p.Description != nil {
		view["description"] = *p.Description
	}
	return jsonResult(view)
}

func handleCategories(ctx context.Context, svc *storefront.Service, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats, err := svc.Categories(ctx)
	if err != nil {
		return toolError(err), nil
	}
	out := make([]map[string]any, 0, len(cats))
	for _, cat := range cats {
		out = append(out, map[string]any{"id": cat.ID, "name": cat.Name})
	}
	return jsonResult(out)
}

func handleCart(ctx context.Context, svc *storefront.Service, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := requireRoute(svc, "/cart"); res != nil {
		return res, nil
	}
	cart, err := svc.RefreshCart(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(cartView(cart))
}

func handleCartResource(_ context.Context, svc *storefront.Service, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if err := guard.Require(svc.Session.State(), "/cart"); err != nil {
		return nil, errors.New("not logged in: run `shop login` in a terminal, then retry")
	}
	data, err := json.Marshal(cartView(svc.Cart.Snapshot().Cart))
	if err != nil {
		return nil, fmt.Errorf("mcp: encode cart: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func handleCartAdd(ctx context.Context, svc *storefront.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := requireRoute(svc, "/cart"); res != nil {
		return res, nil
	}
	cart, err := svc.AddToCart(ctx, int64(req.GetInt("product_id", 0)), req.GetInt("quantity", 1))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(cartView(cart))
}

func handleCartUpdate(ctx context.Context, svc *storefront.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := requireRoute(svc, "/cart"); res != nil {
		return res, nil
	}
	cart, err := svc.UpdateCartItem(ctx, int64(req.GetInt("product_id", 0)), req.GetInt("quantity", 0))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(cartView(cart))
}

func handleCartRemove(ctx context.Context, svc *storefront.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := requireRoute(svc, "/cart"); res != nil {
		return res, nil
	}
	cart, err := svc.RemoveCartItem(ctx, int64(req.GetInt("product_id", 0)))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(cartView(cart))
}

func handleCartClear(ctx context.Context, svc *storefront.Service, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := requireRoute(svc, "/cart"); res != nil {
		return res, nil
	}
	if err := svc.ClearCart(ctx); err != nil {
		return toolError(err), nil
	}
	return jsonResult(cartView(nil))
}

func handleCheckout(ctx context.Context, svc *storefront.Service, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := requireRoute(svc, "/checkout"); res != nil {
		return res, nil
	}
	// Checkout works from the local view; sync it with the server first.
	if _, err := svc.RefreshCart(ctx); err != nil {
		return toolError(err), nil
	}
	result, err := svc.Checkout(ctx)
	if err != nil && (result == nil || result.Order == nil) {
		return toolError(err), nil
	}
	out := map[string]any{"order": orderView(result.Order)}
	if result.Intent != nil {
		out["payment_intent_id"] = result.Intent.PaymentIntentID
	} else {
		out["warning"] = api.Message(err, "Failed to create payment intent")
	}
	return jsonResult(out)
}

func handleOrders(ctx context.Context, svc *storefront.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := requireRoute(svc, "/orders"); res != nil {
		return res, nil
	}
	limit := req.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}
	orders, err := svc.Orders(ctx, max(req.GetInt("skip", 0), 0), limit)
	if err != nil {
		return toolError(err), nil
	}
	out := make([]map[string]any, 0, len(orders))
	for i := range orders {
		out = append(out, orderView(&orders[i]))
	}
	return jsonResult(out)
}

func handleOrder(ctx context.Context, svc *storefront.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(req.GetInt("id", 0))
	if res := requireRoute(svc, fmt.Sprintf("/orders/%d", id)); res != nil {
		return res, nil
	}
	if id <= 0 {
		return mcp.NewToolResultError("id is required"), nil
	}
	o, err := svc.Order(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	view := orderView(o)
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"unit_price": models.FormatPrice(it.UnitPrice),
		})
	}
	view["items"] = items
	return jsonResult(view)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// requireRoute returns an error result when the session may not enter route.
func requireRoute(svc *storefront.Service, route string) *mcp.CallToolResult {
	err := guard.Require(svc.Session.State(), route)
	if err == nil {
		return nil
	}
	var re *guard.RedirectError
	if errors.As(err, &re) && re.To == guard.LoginPath {
		return mcp.NewToolResultError("Not logged in. Run `shop login` in a terminal, then retry.")
	}
	return mcp.NewToolResultError(err.Error())
}

// toolError turns err into a tool error carrying the server's detail message
// when there is one.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(api.Message(err, err.Error()))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func parsePrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func productView(p *models.Product) map[string]any {
	view := map[string]any{
		"id":    p.ID,
		"sku":   p.SKU,
		"name":  p.Name,
		"price": models.FormatPrice(p.Price),
		"stock": p.Stock,
	}
	if p.CategoryID != nil {
		view["category_id"] = *p.CategoryID
	}
	return view
}

func cartView(c *models.Cart) map[string]any {
	items := make([]map[string]any, 0)
	total := decimal.Zero
	count := 0
	if c != nil {
		for _, l := range c.Items {
			items = append(items, map[string]any{
				"product_id": l.ProductID,
				"name":       l.ProductName,
				"quantity":   l.Quantity,
				"unit_price": models.FormatPrice(l.UnitPrice),
				"subtotal":   models.FormatPrice(l.Subtotal()),
			})
		}
		total = c.Total
		count = c.ItemCount
	}
	return map[string]any{
		"items":      items,
		"item_count": count,
		"total":      models.FormatPrice(total),
	}
}

func orderView(o *models.Order) map[string]any {
	view := map[string]any{
		"id":      o.ID,
		"status":  o.Status,
		"total":   models.FormatPrice(o.TotalAmount),
		"created": formatDate(o.CreatedAt),
	}
	if o.PaymentIntentID != nil {
		view["payment_intent_id"] = *o.PaymentIntentID
	}
	return view
}

// formatDate keeps the calendar date of an ISO timestamp.
func formatDate(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}
