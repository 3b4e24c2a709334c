// Package fakeapi is an in-memory storefront REST API for tests. It follows
// the production contracts: JSON bodies, bearer JWTs and {"detail": ...}
// error payloads.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/go-ports/storefront/internal/models"
)

// Prefix is the path the API is mounted under.
const Prefix = "/api/v1"

// Options configures a Server.
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type account struct {
	user     models.User
	password string
}

type cartLine struct {
	productID int64
	quantity  int
}

// Server holds the fake backend state.
type Server struct {
	mu sync.Mutex

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	// generation is embedded in access tokens; bumping it expires them all.
	generation int

	accounts   map[string]*account // by email
	products   map[int64]*models.Product
	categories []models.Category
	carts      map[int64][]cartLine // by user ID, in insertion order
	orders     []*models.Order
	nextID     int64

	calls map[string]int
}

// New creates an empty Server.
func New(opts Options) *Server {
	secret := opts.Secret
	if secret == "" {
		secret = "fakeapi-secret"
	}
	accessTTL := opts.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	refreshTTL := opts.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Server{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		accounts:   make(map[string]*account),
		products:   make(map[int64]*models.Product),
		carts:      make(map[int64][]cartLine),
		calls:      make(map[string]int),
	}
}

// Handler returns the router serving every endpoint under Prefix.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countCalls)

	r.Route(Prefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Post("/refresh", s.refresh)
			r.With(s.authenticated).Get("/me", s.me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Get("/categories/list", s.listCategories)
			r.Get("/{id}", s.getProduct)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticated, s.adminOnly)
				r.Post("/", s.createProduct)
				r.Post("/categories", s.createCategory)
				r.Put("/{id}", s.updateProduct)
				r.Delete("/{id}", s.deleteProduct)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticated)

			r.Get("/cart", s.getCart)
			r.Delete("/cart", s.clearCart)
			r.Post("/cart/items", s.addCartItem)
			r.Put("/cart/items/{id}", s.updateCartItem)
			r.Delete("/cart/items/{id}", s.removeCartItem)

			r.Post("/orders", s.createOrder)
			r.Get("/orders", s.listOrders)
			r.Get("/orders/{id}", s.getOrder)

			r.Post("/payments/create-intent", s.createPaymentIntent)
		})
	})
	return r
}

// ---------------------------------------------------------------------------
// Seeding and inspection
// ---------------------------------------------------------------------------

// AddUser creates an active account and returns its user record.
func (s *Server) AddUser(email, password string, admin bool) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, nil, admin)
}

// AddCategory creates a category.
func (s *Server) AddCategory(name string) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cat := models.Category{ID: s.nextID, Name: name, CreatedAt: now()}
	s.categories = append(s.categories, cat)
	return cat
}

// AddProduct creates a product from in.
func (s *Server) AddProduct(in models.ProductInput) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addProductLocked(in)
}

// SetOrderStatus changes the status of an order.
func (s *Server) SetOrderStatus(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			o.Status = status
		}
	}
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// Calls returns how many requests matched "<METHOD> <route pattern>", e.g.
// "GET /api/v1/products/{id}".
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		s.mu.Lock()
		s.calls[r.Method+" "+pattern]++
		s.mu.Unlock()
	})
}

func (s *Server) addUserLocked(email, password string, fullName *string, admin bool) models.User {
	s.nextID++
	acc := &account{
		user: models.User{
			ID:        s.nextID,
			Email:     email,
			FullName:  fullName,
			IsActive:  true,
			IsAdmin:   admin,
			CreatedAt: now(),
		},
		password: password,
	}
	s.accounts[email] = acc
	return acc.user
}

func (s *Server) addProductLocked(in models.ProductInput) *models.Product {
	s.nextID++
	p := &models.Product{
		ID:          s.nextID,
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		ImageURL:    in.ImageURL,
		CreatedAt:   now(),
	}
	s.products[p.ID] = p
	return p
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation mimics a 422 with a list of field errors.
func writeValidation(w http.ResponseWriter, msgs ...string) {
	items := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		items[i] = map[string]any{"msg": m, "type": "value_error"}
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": items})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, "invalid JSON body")
		return false
	}
	return true
}

func sum(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
