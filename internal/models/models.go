// Package models defines the wire and domain types shared by the storefront client.
package models

import (
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// Order status values reported by the API.
const (
	OrderPending    = "pending"
	OrderPaid       = "paid"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// ValidOrderStatuses lists the accepted order status values.
var ValidOrderStatuses = []string{
	OrderPending, OrderPaid, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled,
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// User is the authenticated identity returned by /auth/me and /auth/register.
type User struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name,omitempty"`
	IsActive  bool    `json:"is_active"`
	IsAdmin   bool    `json:"is_admin"`
	CreatedAt string  `json:"created_at"`
}

// DisplayName returns the full name when set, otherwise the email.
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Email
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` // #nosec G117 -- request field sent to the storefront API
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"` // #nosec G117 -- request field sent to the storefront API
	FullName *string `json:"full_name,omitempty"`
}

// TokenPair is the response of /auth/login and /auth/refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// Product is a catalog entry.
type Product struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   *string         `json:"updated_at,omitempty"`
}

// ProductInput is the body of POST /products.
type ProductInput struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

// ProductUpdate is the body of PUT /products/{id}. Nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	CategoryID  *int64           `json:"category_id,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
}

// Category groups products.
type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// CategoryInput is the body of POST /products/categories.
type CategoryInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// ProductFilters narrows GET /products. Zero values are omitted.
type ProductFilters struct {
	Skip       int
	Limit      int
	CategoryID int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
}

// Values encodes the filters as query parameters.
func (f ProductFilters) Values() url.Values {
	v := url.Values{}
	if f.Skip > 0 {
		v.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.CategoryID > 0 {
		v.Set("category_id", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.MinPrice != nil {
		v.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("max_price", f.MaxPrice.String())
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

// CartLine is one product entry in the cart. ProductID is unique within a cart.
type CartLine struct {
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ProductName string          `json:"product_name"`
}

// Subtotal returns UnitPrice × Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the client-side view of the shopping cart.
type Cart struct {
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]CartLine, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

// AddToCartRequest is the body of POST /cart/items.
type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/{id}.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartItemResult is the response of POST /cart/items and PUT /cart/items/{id}.
// Quantity is the line's quantity after the call.
type CartItemResult struct {
	Message   string `json:"message"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ---------------------------------------------------------------------------
// Orders and payments
// ---------------------------------------------------------------------------

// OrderItem is a line of a placed order.
type OrderItem struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is a placed order.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	PaymentIntentID *string         `json:"payment_intent_id,omitempty"`
	CreatedAt       string          `json:"created_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// PaymentIntentRequest is the body of POST /payments/create-intent.
type PaymentIntentRequest struct {
	OrderID int64 `json:"order_id"`
}

// PaymentIntent is the response of POST /payments/create-intent.
type PaymentIntent struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// CheckoutResult bundles the order and the payment intent requested for it.
type CheckoutResult struct {
	Order  *Order
	Intent *PaymentIntent
}

// DashboardSummary is the admin dashboard overview.
type DashboardSummary struct {
	Products   int
	Categories int
	Orders     int
	LowStock   []Product
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// FormatPrice renders an amount as dollars with two decimals, e.g. "$12.50".
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Truncate shortens s to maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
