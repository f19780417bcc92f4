package shop

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/printa-storefront/internal/money"
	"github.com/georgemunganga/printa-storefront/internal/modules/cart"
	"github.com/georgemunganga/printa-storefront/internal/modules/catalog"
	"github.com/georgemunganga/printa-storefront/internal/modules/order"
)

// Handler exposes the cart and order endpoints of the current shopper. Routes
// must be mounted behind the Sessions middleware.
type Handler struct {
	catalog catalog.Service
	money   *money.Formatter
}

func NewHandler(products catalog.Service, formatter *money.Formatter) *Handler {
	return &Handler{catalog: products, money: formatter}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.getCart)                         // GET    /api/v1/cart
		r.Delete("/", h.clearCart)                    // DELETE /api/v1/cart
		r.Post("/items", h.addItem)                   // POST   /api/v1/cart/items
		r.Patch("/items/{product_id}", h.updateItem)  // PATCH  /api/v1/cart/items/{product_id}
		r.Delete("/items/{product_id}", h.removeItem) // DELETE /api/v1/cart/items/{product_id}
	})
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", h.checkout)                       // POST   /api/v1/orders
		r.Get("/", h.searchOrders)                    // GET    /api/v1/orders?q=&status=Pending
		r.Get("/{id}", h.getOrder)                    // GET    /api/v1/orders/{id}
		r.Post("/{id}/toggle-status", h.toggleStatus) // POST   /api/v1/orders/{id}/toggle-status
		r.Delete("/{id}", h.cancelOrder)              // DELETE /api/v1/orders/{id}
	})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, newCartView(s.Cart.Summary(), h.money))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Cart.Clear()
	respond(w, http.StatusOK, newCartView(s.Cart.Summary(), h.money))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty < 1 || qty > cart.MaxQuantity {
		respond(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("quantity must be between 1 and %d", cart.MaxQuantity)})
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrNotFound) {
			code = http.StatusNotFound
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	s.Cart.Add(*p, qty)
	respond(w, http.StatusOK, newCartView(s.Cart.Summary(), h.money))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Quantity == nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}
	if *req.Quantity > cart.MaxQuantity {
		respond(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("quantity must be at most %d", cart.MaxQuantity)})
		return
	}
	s.Cart.UpdateQuantity(chi.URLParam(r, "product_id"), *req.Quantity)
	respond(w, http.StatusOK, newCartView(s.Cart.Summary(), h.money))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Cart.Remove(chi.URLParam(r, "product_id"))
	respond(w, http.StatusOK, newCartView(s.Cart.Summary(), h.money))
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	o, err := s.Checkout()
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, order.ErrEmptyCart) {
			code = http.StatusUnprocessableEntity
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, newOrderView(o, h.money))
}

func (h *Handler) searchOrders(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	filter, err := order.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	views := []orderView{}
	for o := range s.Orders.Search(r.URL.Query().Get("q"), filter) {
		views = append(views, newOrderView(o, h.money))
	}
	respond(w, http.StatusOK, views)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	o, found := s.Orders.Get(chi.URLParam(r, "id"))
	if !found {
		respond(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	respond(w, http.StatusOK, newOrderView(o, h.money))
}

func (h *Handler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	o, found := s.Orders.ToggleStatus(chi.URLParam(r, "id"))
	if !found {
		respond(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	respond(w, http.StatusOK, newOrderView(o, h.money))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !s.Orders.CancelOrder(chi.URLParam(r, "id")) {
		respond(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "order cancelled"})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, ok := FromContext(r.Context())
	if !ok {
		respond(w, http.StatusInternalServerError, map[string]string{"error": "no shopper session"})
	}
	return s, ok
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
