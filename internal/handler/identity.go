package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/fulfillment"
	"github.com/xenking/stand-kart/internal/domain/order"
	"github.com/xenking/stand-kart/pkg/httpmiddleware"
)

// Identity headers set by the chat front end.
const (
	HeaderAccountID   = httpmiddleware.AccountHeader
	HeaderAccountName = "X-Account-Name"
)

type accountHandler func(w http.ResponseWriter, r *http.Request, a *account.Account)

type staffHandler func(w http.ResponseWriter, r *http.Request, a *account.Account, scope order.Selector)

// identified resolves the calling account, registering it as a customer on
// first sight.
func (h *Handler) identified(next accountHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderAccountID))
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			writeError(w, http.StatusUnauthorized, "missing or invalid "+HeaderAccountID)
			return
		}

		a, err := h.accounts.Identify(r.Context(), id, r.Header.Get(HeaderAccountName))
		if err != nil {
			h.fail(w, r, err)
			return
		}

		ctx := zctx.With(r.Context(), zap.Int64("account_id", a.ID), zap.String("role", string(a.Role)))
		next(w, r.WithContext(ctx), a)
	}
}

// staff additionally requires a fulfillment role and passes its selector.
func (h *Handler) staff(next staffHandler) http.HandlerFunc {
	return h.identified(func(w http.ResponseWriter, r *http.Request, a *account.Account) {
		scope, err := fulfillment.RoleSelector(a.Role)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next(w, r, a, scope)
	})
}
