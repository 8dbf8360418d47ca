package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/order"
	"github.com/xenking/stand-kart/internal/domain/product"
)

// listProducts serves the menu, optionally narrowed to ?category=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []product.Product
		err      error
	)
	if c := r.URL.Query().Get("category"); c != "" {
		products, err = h.catalog.ByCategory(r.Context(), product.Category(c))
	} else {
		products, err = h.catalog.Available(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProducts(e, products) })
}

func (h *Handler) me(w http.ResponseWriter, _ *http.Request, a *account.Account) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeAccount(e, a) })
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, a *account.Account) {
	cart, err := h.orders.GetOrCreateCart(r.Context(), a.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, cart)
}

// addItem prices the product from the repository at this instant and adds
// it to the caller's cart.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request, a *account.Account) {
	req, err := decodeAddItem(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	price, err := h.catalog.Price(ctx, req.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err := h.orders.GetOrCreateCart(ctx, a.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err = h.orders.AddItem(ctx, cart.ID, req.ProductID, req.Quantity, price)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, cart)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request, a *account.Account) {
	qty, err := decodeQuantity(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutateCart(w, r, a, func(cartID string) (*order.Order, error) {
		return h.orders.UpdateItemQuantity(r.Context(), cartID, r.PathValue("productID"), qty)
	})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request, a *account.Account) {
	h.mutateCart(w, r, a, func(cartID string) (*order.Order, error) {
		return h.orders.RemoveItem(r.Context(), cartID, r.PathValue("productID"))
	})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, a *account.Account) {
	h.mutateCart(w, r, a, func(cartID string) (*order.Order, error) {
		return h.orders.Clear(r.Context(), cartID)
	})
}

func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, a *account.Account, fn func(cartID string) (*order.Order, error)) {
	cart, err := h.orders.GetOrCreateCart(r.Context(), a.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err = fn(cart.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, cart)
}

// checkout places the cart in one request. Delivery coordinates may be
// given inline; the wizard endpoints collect them step by step instead.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, a *account.Account) {
	req, err := decodeCheckout(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sel, err := order.ParseSelector(req.Destination)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var dest order.Destination
	if sel == order.SelectorDelivery {
		dest = order.Delivery{
			Side:   strings.TrimSpace(req.Side),
			Sector: req.Sector,
			Row:    strings.TrimSpace(req.Row),
			Seat:   strings.TrimSpace(req.Seat),
		}
	} else if dest, err = order.PickupAt(sel); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	cart, err := h.orders.GetOrCreateCart(ctx, a.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	placed, err := h.orders.Checkout(ctx, cart.ID, dest)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrder(w, http.StatusCreated, placed)
}

// startDelivery opens the seat wizard for the caller's cart. An empty cart
// is rejected up front so the customer is not asked for a seat in vain.
func (h *Handler) startDelivery(w http.ResponseWriter, r *http.Request, a *account.Account) {
	ctx := r.Context()
	cart, err := h.orders.GetOrCreateCart(ctx, a.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(cart.Items) == 0 {
		h.fail(w, r, order.ErrEmptyCart)
		return
	}
	s, err := h.wizard.Start(ctx, a.ID, cart.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSession(e, s) })
}

func (h *Handler) currentDelivery(w http.ResponseWriter, r *http.Request, a *account.Account) {
	s, err := h.wizard.Current(r.Context(), a.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, s) })
}

// deliveryInput feeds one answer. The response carries the session and,
// once the seat was given, the placed order.
func (h *Handler) deliveryInput(w http.ResponseWriter, r *http.Request, a *account.Account) {
	text, err := decodeStringField(w, r, "text")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.wizard.Input(r.Context(), a.ID, text)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Order != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("session")
		encodeSession(e, &res.Session)
		if res.Order != nil {
			e.FieldStart("order")
			encodeOrder(e, res.Order)
		}
		e.ObjEnd()
	})
}

func (h *Handler) cancelDelivery(w http.ResponseWriter, r *http.Request, a *account.Account) {
	if err := h.wizard.Cancel(r.Context(), a.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeOrder(w http.ResponseWriter, status int, o *order.Order) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeOrder(e, o) })
}
