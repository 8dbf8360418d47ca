package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/fulfillment"
	"github.com/xenking/stand-kart/internal/domain/order"
)

const maxHistory = 50

// history lists the caller's placed orders, newest first.
func (h *Handler) history(w http.ResponseWriter, r *http.Request, a *account.Account) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.fail(w, r, badRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistory)
	}

	orders, err := h.orders.History(r.Context(), a.ID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

// getOrder shows an order to its owner or to staff it is routed to. Other
// callers get not-found so order ids cannot be probed.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, a *account.Account) {
	o, err := h.visibleOrder(r, a)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

// withdrawOrder lets a customer cancel their own order while nobody has
// claimed it.
func (h *Handler) withdrawOrder(w http.ResponseWriter, r *http.Request, a *account.Account) {
	ctx := r.Context()
	id := r.PathValue("id")

	o, err := h.orders.Get(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if o.AccountID != a.ID || o.Status == order.StatusCart {
		h.fail(w, r, errors.Wrapf(order.ErrNotFound, "order %s", id))
		return
	}
	if err := h.orders.Withdraw(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithOrder(w, r, id)
}

func (h *Handler) visibleOrder(r *http.Request, a *account.Account) (*order.Order, error) {
	id := r.PathValue("id")
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if o.AccountID == a.ID || fulfillment.CanAct(a.Role, o) {
		return o, nil
	}
	return nil, errors.Wrapf(order.ErrNotFound, "order %s", id)
}

// respondWithOrder reloads the order after a status change and writes it.
func (h *Handler) respondWithOrder(w http.ResponseWriter, r *http.Request, id string) {
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}
