// Package fulfillment routes placed orders to the staff who serve them.
//
// Each staff role owns exactly one destination selector: counter-A staff see
// counter-A pickups, counter-B staff see counter-B pickups and runners see
// deliveries. Queues are served oldest-first.
package fulfillment

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/order"
)

// ErrNotStaff is returned when a non-staff role asks for a work queue.
var ErrNotStaff = errors.New("role has no fulfillment queue")

// Queue reads routed orders. order.Repository satisfies it.
type Queue interface {
	ListQueue(ctx context.Context, sel order.Selector, statuses []order.Status) ([]order.Order, error)
}

var (
	newStatuses    = []order.Status{order.StatusPending}
	activeStatuses = []order.Status{order.StatusPreparing, order.StatusReadyForPickup}
)

// RoleSelector maps a staff role to the destination it serves.
func RoleSelector(role account.Role) (order.Selector, error) {
	switch role {
	case account.RoleCounterAStaff:
		return order.SelectorCounterA, nil
	case account.RoleCounterBStaff:
		return order.SelectorCounterB, nil
	case account.RoleDeliveryStaff:
		return order.SelectorDelivery, nil
	}
	return order.SelectorUnset, errors.Wrapf(ErrNotStaff, "role %q", role)
}

// CanAct reports whether role may act on o, i.e. o is routed to the role's
// destination.
func CanAct(role account.Role, o *order.Order) bool {
	sel, err := RoleSelector(role)
	if err != nil {
		return false
	}
	return order.SelectorOf(o.Destination) == sel
}

// Router answers the standard staff queries. It never mutates orders.
type Router struct {
	queue Queue
}

// NewRouter creates a Router over the given queue reader.
func NewRouter(queue Queue) *Router {
	return &Router{queue: queue}
}

// New returns pending orders routed to the role, oldest first.
func (r *Router) New(ctx context.Context, role account.Role) ([]order.Order, error) {
	return r.list(ctx, role, newStatuses)
}

// Active returns orders being prepared or waiting for pickup, oldest first.
func (r *Router) Active(ctx context.Context, role account.Role) ([]order.Order, error) {
	return r.list(ctx, role, activeStatuses)
}

func (r *Router) list(ctx context.Context, role account.Role, statuses []order.Status) ([]order.Order, error) {
	sel, err := RoleSelector(role)
	if err != nil {
		return nil, err
	}
	orders, err := r.queue.ListQueue(ctx, sel, statuses)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s queue", sel)
	}
	return orders, nil
}

// Board is everything one staff screen shows.
type Board struct {
	New       []order.Order
	Preparing []order.Order
	Ready     []order.Order
}

// Board fetches the new and active queues concurrently and splits the
// active one by status.
func (r *Router) Board(ctx context.Context, role account.Role) (*Board, error) {
	if _, err := RoleSelector(role); err != nil {
		return nil, err
	}

	var fresh, active []order.Order
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		fresh, err = r.New(gctx, role)
		return err
	})
	g.Go(func() (err error) {
		active, err = r.Active(gctx, role)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	split := SplitByStatus(active)
	return &Board{
		New:       fresh,
		Preparing: split[order.StatusPreparing],
		Ready:     split[order.StatusReadyForPickup],
	}, nil
}

// SplitByStatus groups orders by exact status, keeping their relative order.
func SplitByStatus(orders []order.Order) map[order.Status][]order.Order {
	out := make(map[order.Status][]order.Order)
	for _, o := range orders {
		out[o.Status] = append(out[o.Status], o)
	}
	return out
}
