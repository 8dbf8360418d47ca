package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/xenking/stand-kart/internal/domain/order"

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for checkout timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracerProvider sets the provider for engine spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the provider for engine counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// Service is the order engine: cart bookkeeping and the status state machine.
// It holds no order state of its own; every call is a round-trip to the
// repository, so any number of Service instances may share one store.
type Service struct {
	orders Repository
	now    func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	transitions    metric.Int64Counter
	claims         metric.Int64Counter
}

// NewService creates an order Service over the given repository.
func NewService(orders Repository, opts ...Option) (*Service, error) {
	s := &Service{
		orders:         orders,
		now:            time.Now,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	s.transitions, err = meter.Int64Counter("stand.order.transitions",
		metric.WithDescription("Order status transitions by target status and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create transitions counter")
	}
	s.claims, err = meter.Int64Counter("stand.order.claims",
		metric.WithDescription("Claim attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create claims counter")
	}

	return s, nil
}

// GetOrCreateCart returns the account's open cart, creating an empty one when
// none exists.
func (s *Service) GetOrCreateCart(ctx context.Context, accountID int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "GetOrCreateCart", attribute.Int64("account.id", accountID))
	defer func() { s.end(span, err) }()

	if accountID <= 0 {
		return nil, errors.Errorf("invalid account id %d", accountID)
	}
	o, err := s.orders.GetOrCreateCart(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}
	return o, nil
}

// Get returns an order with its line items.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", orderID)
	}
	return o, nil
}

// History returns the account's placed orders, newest first.
func (s *Service) History(ctx context.Context, accountID int64, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 10
	}
	orders, err := s.orders.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of account %d", accountID)
	}
	return orders, nil
}

// AddItem puts quantity units of a product into the cart at unitPrice. The
// price is frozen into a new line; adding a product already present only
// increases its quantity.
func (s *Service) AddItem(ctx context.Context, orderID, productID string, quantity int, unitPrice decimal.Decimal) (_ *Order, err error) {
	ctx, span := s.start(ctx, "AddItem",
		attribute.String("order.id", orderID),
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() { s.end(span, err) }()

	if quantity < 1 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if strings.TrimSpace(productID) == "" {
		return nil, errors.Wrap(ErrItemNotFound, "empty product id")
	}

	o, err := s.orders.AddItem(ctx, orderID, LineItem{
		ProductID:        productID,
		Quantity:         quantity,
		PriceAtSelection: unitPrice.Round(2),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "add %s to order %s", productID, orderID)
	}
	return o, nil
}

// UpdateItemQuantity sets the quantity of a line already in the cart.
func (s *Service) UpdateItemQuantity(ctx context.Context, orderID, productID string, quantity int) (_ *Order, err error) {
	ctx, span := s.start(ctx, "UpdateItemQuantity",
		attribute.String("order.id", orderID),
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() { s.end(span, err) }()

	if quantity < 1 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	o, err := s.orders.SetItemQuantity(ctx, orderID, productID, quantity)
	if err != nil {
		return nil, errors.Wrapf(err, "update %s on order %s", productID, orderID)
	}
	return o, nil
}

// RemoveItem drops a product from the cart. Removing a product that is not
// in the cart succeeds and leaves the order unchanged.
func (s *Service) RemoveItem(ctx context.Context, orderID, productID string) (_ *Order, err error) {
	ctx, span := s.start(ctx, "RemoveItem",
		attribute.String("order.id", orderID),
		attribute.String("product.id", productID),
	)
	defer func() { s.end(span, err) }()

	o, err := s.orders.RemoveItem(ctx, orderID, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "remove %s from order %s", productID, orderID)
	}
	return o, nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, orderID string) (_ *Order, err error) {
	ctx, span := s.start(ctx, "Clear", attribute.String("order.id", orderID))
	defer func() { s.end(span, err) }()

	o, err := s.orders.ClearItems(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "clear order %s", orderID)
	}
	return o, nil
}

// RecomputeTotal re-derives the total from the stored line items. It is safe
// to call any number of times, e.g. after a mutation failed mid-way.
func (s *Service) RecomputeTotal(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.RecomputeTotal(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "recompute total of order %s", orderID)
	}
	return o, nil
}

// Checkout places the cart: status becomes pending and the destination,
// including delivery coordinates, is attached in the same write. Incomplete
// coordinates fail the whole checkout and the order stays a cart.
func (s *Service) Checkout(ctx context.Context, orderID string, dest Destination) (_ *Order, err error) {
	ctx, span := s.start(ctx, "Checkout",
		attribute.String("order.id", orderID),
		attribute.String("order.destination", string(SelectorOf(dest))),
	)
	defer func() {
		s.countTransition(ctx, StatusPending, err)
		s.end(span, err)
	}()

	if dest == nil {
		return nil, errors.Wrap(ErrInvalidDestination, "destination required")
	}
	if err := dest.Validate(); err != nil {
		return nil, err
	}

	o, err := s.orders.Checkout(ctx, orderID, dest, s.now())
	if err != nil {
		return nil, errors.Wrapf(err, "checkout order %s", orderID)
	}
	return o, nil
}

// Claim lets a staff member take a pending order routed to their scope. It
// is a single conditional write: of any number of concurrent claims exactly
// one succeeds, the rest get ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, orderID string, scope Selector, staffID int64) (err error) {
	ctx, span := s.start(ctx, "Claim",
		attribute.String("order.id", orderID),
		attribute.String("order.scope", string(scope)),
		attribute.Int64("staff.id", staffID),
	)
	defer func() {
		result := "won"
		switch {
		case errors.Is(err, ErrAlreadyClaimed):
			result = "lost"
		case err != nil:
			result = "error"
		}
		s.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
		s.countTransition(ctx, StatusPreparing, err)
		s.end(span, err)
	}()

	if scope == SelectorUnset {
		return errors.Wrap(ErrInvalidDestination, "claim scope required")
	}

	ok, err := s.orders.Transition(ctx, orderID, Transition{
		From:      []Status{StatusPending},
		To:        StatusPreparing,
		Scope:     scope,
		ClaimedBy: staffID,
	})
	if err != nil {
		return errors.Wrapf(err, "claim order %s", orderID)
	}
	if ok {
		return nil
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return errors.Wrapf(err, "claim order %s", orderID)
	}
	if SelectorOf(o.Destination) != scope {
		return errors.Wrapf(ErrNotFound, "order %s is not routed to %s", orderID, scope)
	}
	switch o.Status {
	case StatusPreparing, StatusReadyForPickup, StatusCompleted:
		return ErrAlreadyClaimed
	}
	return &TransitionError{OrderID: orderID, From: o.Status, To: StatusPreparing}
}

// forward maps each status reachable by Advance to its only predecessor.
var forward = map[Status]Status{
	StatusReadyForPickup: StatusPreparing,
	StatusCompleted:      StatusReadyForPickup,
}

// Advance moves a claimed order forward: preparing → ready_for_pickup →
// completed. The write is conditional on the expected predecessor.
func (s *Service) Advance(ctx context.Context, orderID string, next Status) (err error) {
	ctx, span := s.start(ctx, "Advance",
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(next)),
	)
	defer func() {
		s.countTransition(ctx, next, err)
		s.end(span, err)
	}()

	from, ok := forward[next]
	if !ok {
		return s.explain(ctx, orderID, next)
	}
	return s.transition(ctx, orderID, Transition{From: []Status{from}, To: next})
}

// Cancel moves a pending or preparing order to cancelled. Who may cancel
// what is decided by the caller.
func (s *Service) Cancel(ctx context.Context, orderID string) (err error) {
	ctx, span := s.start(ctx, "Cancel", attribute.String("order.id", orderID))
	defer func() {
		s.countTransition(ctx, StatusCancelled, err)
		s.end(span, err)
	}()

	return s.transition(ctx, orderID, Transition{
		From: []Status{StatusPending, StatusPreparing},
		To:   StatusCancelled,
	})
}

// Withdraw cancels an order nobody has claimed yet. Customers use it on
// their own orders; once staff started preparing, only staff can cancel.
func (s *Service) Withdraw(ctx context.Context, orderID string) (err error) {
	ctx, span := s.start(ctx, "Withdraw", attribute.String("order.id", orderID))
	defer func() {
		s.countTransition(ctx, StatusCancelled, err)
		s.end(span, err)
	}()

	return s.transition(ctx, orderID, Transition{
		From: []Status{StatusPending},
		To:   StatusCancelled,
	})
}

func (s *Service) transition(ctx context.Context, orderID string, t Transition) error {
	ok, err := s.orders.Transition(ctx, orderID, t)
	if err != nil {
		return errors.Wrapf(err, "move order %s to %s", orderID, t.To)
	}
	if !ok {
		return s.explain(ctx, orderID, t.To)
	}
	return nil
}

// explain loads the order to turn an unmatched conditional write into a
// not-found or transition error.
func (s *Service) explain(ctx context.Context, orderID string, to Status) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return errors.Wrapf(err, "move order %s to %s", orderID, to)
	}
	return &TransitionError{OrderID: orderID, From: o.Status, To: to}
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "order."+op, trace.WithAttributes(attrs...))
}

// end closes span, marking it failed only for storage errors.
func (s *Service) end(span trace.Span, err error) {
	if err != nil && !IsNotFound(err) && !IsPrecondition(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) countTransition(ctx context.Context, to Status, err error) {
	result := "ok"
	switch {
	case IsNotFound(err):
		result = "not_found"
	case IsPrecondition(err):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to", string(to)),
		attribute.String("result", result),
	))
}
