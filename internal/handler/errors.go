package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/stand-kart/internal/catalog"
	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/delivery"
	"github.com/xenking/stand-kart/internal/domain/fulfillment"
	"github.com/xenking/stand-kart/internal/domain/order"
	"github.com/xenking/stand-kart/internal/domain/product"
	"github.com/xenking/stand-kart/pkg/httpmiddleware"
)

var errBadRequest = errors.New("bad request")

func writeError(w http.ResponseWriter, status int, msg string) {
	httpmiddleware.WriteError(w, status, msg)
}

// statusOf maps an outcome to an HTTP status. Anything unclassified is a
// storage failure.
func statusOf(err error) int {
	var te *order.TransitionError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, fulfillment.ErrNotStaff):
		return http.StatusForbidden
	case order.IsNotFound(err),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, delivery.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, order.ErrAlreadyClaimed),
		errors.Is(err, order.ErrNotCart),
		errors.As(err, &te):
		return http.StatusConflict
	case order.IsPrecondition(err),
		errors.Is(err, product.ErrUnavailable),
		errors.Is(err, catalog.ErrUnknownCategory),
		errors.Is(err, delivery.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	}
	return http.StatusServiceUnavailable
}

// fail writes err to the client. Storage failures are logged and hidden
// behind a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusServiceUnavailable {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, status, "service temporarily unavailable")
		return
	}
	writeError(w, status, err.Error())
}

func badRequest(msg string) error {
	return errors.Wrap(errBadRequest, msg)
}
