package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/order"
)

// staffOrders serves the role's queue: ?view=new, ?view=active or the full
// board, labelled with the scope it covers, by default.
func (h *Handler) staffOrders(w http.ResponseWriter, r *http.Request, a *account.Account, scope order.Selector) {
	ctx := r.Context()
	switch view := r.URL.Query().Get("view"); view {
	case "", "board":
		b, err := h.router.Board(ctx, a.Role)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeBoard(e, scope, b) })
	case "new", "active":
		list := h.router.New
		if view == "active" {
			list = h.router.Active
		}
		orders, err := list(ctx, a.Role)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
	default:
		h.fail(w, r, badRequest("view must be new, active or board"))
	}
}

// claim takes a pending order in the caller's scope. Concurrent claims are
// settled by the store; losers get 409.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request, a *account.Account, scope order.Selector) {
	id := r.PathValue("id")
	if err := h.orders.Claim(r.Context(), id, scope, a.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithOrder(w, r, id)
}

// advance moves an order in the caller's scope to the requested status.
func (h *Handler) advance(w http.ResponseWriter, r *http.Request, _ *account.Account, scope order.Selector) {
	next, err := decodeStringField(w, r, "status")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := order.Status(next)
	if !status.Valid() {
		h.fail(w, r, badRequest("unknown status "+next))
		return
	}

	id := r.PathValue("id")
	if err := h.scoped(r, scope, id); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.orders.Advance(r.Context(), id, status); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithOrder(w, r, id)
}

// staffCancel cancels a pending or preparing order in the caller's scope.
func (h *Handler) staffCancel(w http.ResponseWriter, r *http.Request, _ *account.Account, scope order.Selector) {
	id := r.PathValue("id")
	if err := h.scoped(r, scope, id); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.orders.Cancel(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithOrder(w, r, id)
}

// scoped checks that the order is routed to the staff member's destination.
// Destinations are fixed at checkout, so the check cannot go stale before
// the conditional write that follows it.
func (h *Handler) scoped(r *http.Request, scope order.Selector, id string) error {
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		return err
	}
	if order.SelectorOf(o.Destination) != scope {
		return errors.Wrapf(order.ErrNotFound, "order %s is not routed to %s", id, scope)
	}
	return nil
}
