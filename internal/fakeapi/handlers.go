package fakeapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-ports/storefront/internal/models"
)

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeValidation(w, "value is not a valid integer")
		return 0, false
	}
	return id, true
}

func notFound(w http.ResponseWriter, resource string, id int64) {
	writeDetail(w, http.StatusNotFound, resource+" not found with id: "+strconv.FormatInt(id, 10))
}

// pageParams reads skip and limit, defaulting limit to 100 and capping it there.
func pageParams(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	q := r.URL.Query()
	skip, limit = 0, 100
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeValidation(w, "skip must be greater than or equal to 0")
			return 0, 0, false
		}
		skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeValidation(w, "limit must be between 1 and 100")
			return 0, 0, false
		}
		limit = n
	}
	return skip, limit, true
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// ---------------------------------------------------------------------------
// Products and categories
// ---------------------------------------------------------------------------

// GET /products
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var categoryID int64
	var minPrice, maxPrice *decimal.Decimal
	if v := q.Get("category_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeValidation(w, "category_id is not a valid integer")
			return
		}
		categoryID = n
	}
	for param, dst := range map[string]**decimal.Decimal{"min_price": &minPrice, "max_price": &maxPrice} {
		if v := q.Get(param); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				writeValidation(w, param+" is not a valid number")
				return
			}
			*dst = &d
		}
	}
	search := strings.ToLower(q.Get("search"))

	s.mu.Lock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		switch {
		case categoryID != 0 && (p.CategoryID == nil || *p.CategoryID != categoryID):
			continue
		case minPrice != nil && p.Price.LessThan(*minPrice):
			continue
		case maxPrice != nil && p.Price.GreaterThan(*maxPrice):
			continue
		case search != "" && !matchesSearch(p, search):
			continue
		}
		out = append(out, *p)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, page(out, skip, limit))
}

func matchesSearch(p *models.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) {
		return true
	}
	return p.Description != nil && strings.Contains(strings.ToLower(*p.Description), needle)
}

// GET /products/{id}
func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	p, found := s.products[id]
	var out models.Product
	if found {
		out = *p
	}
	s.mu.Unlock()
	if !found {
		notFound(w, "Product", id)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /products
func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if !decode(w, r, &in) {
		return
	}
	var problems []string
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "name: field required")
	}
	if in.Price.LessThanOrEqual(decimal.Zero) {
		problems = append(problems, "price must be greater than 0")
	}
	if in.Stock < 0 {
		problems = append(problems, "stock must be greater than or equal to 0")
	}
	if len(problems) > 0 {
		writeValidation(w, problems...)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if in.SKU != "" && p.SKU == in.SKU {
			writeDetail(w, http.StatusBadRequest, "SKU already exists")
			return
		}
	}
	writeJSON(w, http.StatusCreated, *s.addProductLocked(in))
}

// PUT /products/{id}
func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.ProductUpdate
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.products[id]
	if !found {
		notFound(w, "Product", id)
		return
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	if in.ImageURL != nil {
		p.ImageURL = in.ImageURL
	}
	updated := now()
	p.UpdatedAt = &updated
	writeJSON(w, http.StatusOK, *p)
}

// DELETE /products/{id}
func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.products[id]; !found {
		notFound(w, "Product", id)
		return
	}
	delete(s.products, id)
	w.WriteHeader(http.StatusNoContent)
}

// GET /products/categories/list
func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]models.Category{}, s.categories...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// POST /products/categories
func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeValidation(w, "name: field required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, in.Name) {
			writeDetail(w, http.StatusBadRequest, "Category already exists")
			return
		}
	}
	s.nextID++
	cat := models.Category{ID: s.nextID, Name: in.Name, Description: in.Description, CreatedAt: now()}
	s.categories = append(s.categories, cat)
	writeJSON(w, http.StatusCreated, cat)
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

// cartLocked renders the cart of userID. Lines whose product vanished are skipped.
func (s *Server) cartLocked(userID int64) models.Cart {
	items := make([]models.CartLine, 0, len(s.carts[userID]))
	for _, l := range s.carts[userID] {
		p, ok := s.products[l.productID]
		if !ok {
			continue
		}
		items = append(items, models.CartLine{
			ProductID:   p.ID,
			Quantity:    l.quantity,
			UnitPrice:   p.Price,
			ProductName: p.Name,
		})
	}
	return models.Cart{Items: items, Total: sum(items), ItemCount: len(items)}
}

func lineIndex(lines []cartLine, productID int64) int {
	for i, l := range lines {
		if l.productID == productID {
			return i
		}
	}
	return -1
}

// GET /cart
func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.cartLocked(currentUser(r).ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// POST /cart/items
func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity < 1 {
		writeValidation(w, "quantity must be greater than 0")
		return
	}
	userID := currentUser(r).ID

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[req.ProductID]
	if !ok {
		notFound(w, "Product", req.ProductID)
		return
	}
	lines := s.carts[userID]
	qty := req.Quantity
	i := lineIndex(lines, req.ProductID)
	if i >= 0 {
		qty += lines[i].quantity
	}
	if p.Stock < qty {
		writeDetail(w, http.StatusBadRequest, "Insufficient stock")
		return
	}
	if i >= 0 {
		lines[i].quantity = qty
	} else {
		lines = append(lines, cartLine{productID: req.ProductID, quantity: qty})
	}
	s.carts[userID] = lines
	writeJSON(w, http.StatusCreated, models.CartItemResult{Message: "Item added to cart", ProductID: req.ProductID, Quantity: qty})
}

// PUT /cart/items/{id}
func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req models.UpdateCartItemRequest
	if !decode(w, r, &req) {
		return
	}
	userID := currentUser(r).ID

	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.products[id]
	if !found {
		notFound(w, "Product", id)
		return
	}
	if req.Quantity <= 0 {
		writeDetail(w, http.StatusBadRequest, "Quantity must be greater than 0")
		return
	}
	if p.Stock < req.Quantity {
		writeDetail(w, http.StatusBadRequest, "Insufficient stock")
		return
	}
	lines := s.carts[userID]
	if i := lineIndex(lines, id); i >= 0 {
		lines[i].quantity = req.Quantity
	} else {
		lines = append(lines, cartLine{productID: id, quantity: req.Quantity})
	}
	s.carts[userID] = lines
	writeJSON(w, http.StatusOK, models.CartItemResult{Message: "Cart item updated", ProductID: id, Quantity: req.Quantity})
}

// DELETE /cart/items/{id}
func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	userID := currentUser(r).ID
	s.mu.Lock()
	lines := s.carts[userID]
	if i := lineIndex(lines, id); i >= 0 {
		s.carts[userID] = append(lines[:i], lines[i+1:]...)
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /cart
func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.carts, currentUser(r).ID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Orders and payments
// ---------------------------------------------------------------------------

// POST /orders
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r).ID

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[userID]
	if len(lines) == 0 {
		writeDetail(w, http.StatusBadRequest, "Cart is empty")
		return
	}
	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := s.products[l.productID]
		if !ok {
			writeDetail(w, http.StatusBadRequest, "Product "+strconv.FormatInt(l.productID, 10)+" not found")
			return
		}
		if p.Stock < l.quantity {
			writeDetail(w, http.StatusBadRequest, "Insufficient stock for product "+p.Name)
			return
		}
		items = append(items, models.OrderItem{ProductID: p.ID, Quantity: l.quantity, UnitPrice: p.Price})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}

	s.nextID++
	order := &models.Order{
		ID:          s.nextID,
		UserID:      userID,
		TotalAmount: total,
		Status:      models.OrderPending,
		CreatedAt:   now(),
	}
	for i := range items {
		s.nextID++
		items[i].ID = s.nextID
		s.products[items[i].ProductID].Stock -= items[i].Quantity
	}
	order.Items = items
	s.orders = append(s.orders, order)
	delete(s.carts, userID)
	writeJSON(w, http.StatusCreated, order)
}

// GET /orders
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	userID := currentUser(r).ID

	s.mu.Lock()
	out := make([]models.Order, 0)
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].UserID == userID {
			out = append(out, *s.orders[i])
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, page(out, skip, limit))
}

// GET /orders/{id}
func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	order := s.orderLocked(currentUser(r).ID, id)
	var out models.Order
	if order != nil {
		out = *order
	}
	s.mu.Unlock()
	if order == nil {
		notFound(w, "Order", id)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) orderLocked(userID, id int64) *models.Order {
	for _, o := range s.orders {
		if o.ID == id && o.UserID == userID {
			return o
		}
	}
	return nil
}

// POST /payments/create-intent
func (s *Server) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentIntentRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order := s.orderLocked(currentUser(r).ID, req.OrderID)
	if order == nil {
		notFound(w, "Order", req.OrderID)
		return
	}
	if order.Status != models.OrderPending {
		writeDetail(w, http.StatusBadRequest, "Order is not in pending status")
		return
	}
	intentID := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	order.PaymentIntentID = &intentID
	writeJSON(w, http.StatusOK, models.PaymentIntent{
		ClientSecret:    intentID + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24],
		PaymentIntentID: intentID,
	})
}
