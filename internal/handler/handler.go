// Package handler exposes the stand over a JSON HTTP API. It stands in for
// the chat front end: every request names the acting account in headers,
// and the handlers translate engine outcomes into status codes.
package handler

import (
	"net/http"

	"github.com/xenking/stand-kart/internal/catalog"
	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/delivery"
	"github.com/xenking/stand-kart/internal/domain/fulfillment"
	"github.com/xenking/stand-kart/internal/domain/order"
)

// Handler serves the customer and staff endpoints.
type Handler struct {
	accounts *account.Service
	catalog  *catalog.Catalog
	orders   *order.Service
	router   *fulfillment.Router
	wizard   *delivery.Wizard
}

// NewHandler wires the handler to the domain services.
func NewHandler(
	accounts *account.Service,
	cat *catalog.Catalog,
	orders *order.Service,
	router *fulfillment.Router,
	wizard *delivery.Wizard,
) *Handler {
	return &Handler{
		accounts: accounts,
		catalog:  cat,
		orders:   orders,
		router:   router,
		wizard:   wizard,
	}
}

// Register adds all API routes to mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/me", h.identified(h.me))

	mux.HandleFunc("GET /api/cart", h.identified(h.getCart))
	mux.HandleFunc("POST /api/cart/items", h.identified(h.addItem))
	mux.HandleFunc("PUT /api/cart/items/{productID}", h.identified(h.updateItem))
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.identified(h.removeItem))
	mux.HandleFunc("DELETE /api/cart/items", h.identified(h.clearCart))
	mux.HandleFunc("POST /api/cart/checkout", h.identified(h.checkout))

	mux.HandleFunc("POST /api/cart/delivery", h.identified(h.startDelivery))
	mux.HandleFunc("GET /api/cart/delivery", h.identified(h.currentDelivery))
	mux.HandleFunc("POST /api/cart/delivery/input", h.identified(h.deliveryInput))
	mux.HandleFunc("DELETE /api/cart/delivery", h.identified(h.cancelDelivery))

	mux.HandleFunc("GET /api/orders", h.identified(h.history))
	mux.HandleFunc("GET /api/orders/{id}", h.identified(h.getOrder))
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.identified(h.withdrawOrder))

	mux.HandleFunc("GET /api/staff/orders", h.staff(h.staffOrders))
	mux.HandleFunc("POST /api/staff/orders/{id}/claim", h.staff(h.claim))
	mux.HandleFunc("POST /api/staff/orders/{id}/advance", h.staff(h.advance))
	mux.HandleFunc("POST /api/staff/orders/{id}/cancel", h.staff(h.staffCancel))
}
