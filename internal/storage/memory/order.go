package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/stand-kart/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository in process memory. One mutex
// guards all orders, which makes every method a single atomic step: the
// cart index gives the one-cart-per-account guarantee and status writes are
// compare-and-swap under the same lock.
type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]*order.Order
	carts  map[int64]string // account id -> open cart id
	now    func() time.Time

	// products plays the role of the foreign key on line items.
	products *ProductRepository
}

// NewOrderRepository returns an empty OrderRepository. Line items may only
// reference products known to the given catalog.
func NewOrderRepository(products *ProductRepository) *OrderRepository {
	return &OrderRepository{
		orders:   make(map[string]*order.Order),
		carts:    make(map[int64]string),
		now:      time.Now,
		products: products,
	}
}

// GetOrCreateCart returns the open cart of the account or creates one.
func (r *OrderRepository) GetOrCreateCart(_ context.Context, accountID int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.carts[accountID]; ok {
		return clone(r.orders[id]), nil
	}

	now := r.now()
	o := &order.Order{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Status:    order.StatusCart,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.orders[o.ID] = o
	r.carts[accountID] = o.ID
	return clone(o), nil
}

// Get returns a copy of the order.
func (r *OrderRepository) Get(_ context.Context, orderID string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	return clone(o), nil
}

// AddItem merges the item into the cart and recomputes the total. A merge
// past order.MaxQuantity is rejected.
func (r *OrderRepository) AddItem(ctx context.Context, orderID string, item order.LineItem) (*order.Order, error) {
	if item.Quantity < 1 || item.Quantity > order.MaxQuantity {
		return nil, order.ErrInvalidQuantity
	}
	return r.mutateCart(orderID, func(o *order.Order) error {
		if _, err := r.products.GetByID(ctx, item.ProductID); err != nil {
			return errors.Wrapf(order.ErrItemNotFound, "unknown product %s", item.ProductID)
		}
		for i := range o.Items {
			if o.Items[i].ProductID == item.ProductID {
				if item.Quantity > order.MaxQuantity-o.Items[i].Quantity {
					return errors.Wrapf(order.ErrInvalidQuantity, "line %s would exceed %d", item.ProductID, order.MaxQuantity)
				}
				o.Items[i].Quantity += item.Quantity
				return nil
			}
		}
		o.Items = append(o.Items, item)
		return nil
	})
}

// SetItemQuantity overwrites the quantity of an existing line.
func (r *OrderRepository) SetItemQuantity(_ context.Context, orderID, productID string, qty int) (*order.Order, error) {
	if qty < 1 || qty > order.MaxQuantity {
		return nil, order.ErrInvalidQuantity
	}
	return r.mutateCart(orderID, func(o *order.Order) error {
		for i := range o.Items {
			if o.Items[i].ProductID == productID {
				o.Items[i].Quantity = qty
				return nil
			}
		}
		return order.ErrItemNotFound
	})
}

// RemoveItem deletes the line for productID, if any.
func (r *OrderRepository) RemoveItem(_ context.Context, orderID, productID string) (*order.Order, error) {
	return r.mutateCart(orderID, func(o *order.Order) error {
		o.Items = slices.DeleteFunc(o.Items, func(it order.LineItem) bool {
			return it.ProductID == productID
		})
		return nil
	})
}

// ClearItems deletes every line of the cart.
func (r *OrderRepository) ClearItems(_ context.Context, orderID string) (*order.Order, error) {
	return r.mutateCart(orderID, func(o *order.Order) error {
		o.Items = nil
		return nil
	})
}

// RecomputeTotal re-derives the total of any order from its items.
func (r *OrderRepository) RecomputeTotal(_ context.Context, orderID string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Total = order.SumItems(o.Items)
	return clone(o), nil
}

// mutateCart applies fn to a cart order and recomputes its total. A failing
// fn leaves the order untouched.
func (r *OrderRepository) mutateCart(orderID string, fn func(o *order.Order) error) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.Status != order.StatusCart {
		return nil, order.ErrNotCart
	}

	work := clone(o)
	if err := fn(work); err != nil {
		return nil, err
	}
	work.Total = order.SumItems(work.Items)
	work.UpdatedAt = r.now()
	r.orders[orderID] = work
	return clone(work), nil
}

// Checkout moves a non-empty cart to pending with its destination.
func (r *OrderRepository) Checkout(_ context.Context, orderID string, dest order.Destination, placedAt time.Time) (*order.Order, error) {
	if err := dest.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	switch {
	case !ok:
		return nil, order.ErrNotFound
	case o.Status != order.StatusCart:
		return nil, order.ErrNotCart
	case len(o.Items) == 0:
		return nil, order.ErrEmptyCart
	}

	o.Status = order.StatusPending
	o.Destination = dest
	o.PlacedAt = placedAt
	o.UpdatedAt = r.now()
	delete(r.carts, o.AccountID)
	return clone(o), nil
}

// Transition applies a compare-and-swap status change.
func (r *OrderRepository) Transition(_ context.Context, orderID string, t order.Transition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok || !slices.Contains(t.From, o.Status) {
		return false, nil
	}
	if t.Scope != order.SelectorUnset && order.SelectorOf(o.Destination) != t.Scope {
		return false, nil
	}

	o.Status = t.To
	if t.ClaimedBy != 0 {
		o.ClaimedBy = t.ClaimedBy
	}
	o.UpdatedAt = r.now()
	return true, nil
}

// ListQueue returns routed orders in the given statuses, oldest placed first.
func (r *OrderRepository) ListQueue(_ context.Context, sel order.Selector, statuses []order.Status) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []order.Order
	for _, o := range r.orders {
		if order.SelectorOf(o.Destination) == sel && slices.Contains(statuses, o.Status) {
			out = append(out, *clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.Before(out[j].PlacedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListByAccount returns the account's placed orders, newest first.
func (r *OrderRepository) ListByAccount(_ context.Context, accountID int64, limit int) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []order.Order
	for _, o := range r.orders {
		if o.AccountID == accountID && o.Status != order.StatusCart {
			out = append(out, *clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.After(out[j].PlacedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(o *order.Order) *order.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}
