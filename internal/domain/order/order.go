package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a step in the order lifecycle.
type Status string

const (
	StatusCart           Status = "cart"
	StatusPending        Status = "pending"
	StatusPreparing      Status = "preparing"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCart, StatusPending, StatusPreparing, StatusReadyForPickup, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order is the cart-then-order aggregate of one account.
type Order struct {
	ID        string
	AccountID int64
	Status    Status
	// Destination is nil while the order is still a cart.
	Destination Destination
	Items       []LineItem
	Total       decimal.Decimal
	// ClaimedBy is the staff account that took the order, zero until claimed.
	ClaimedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
	// PlacedAt is the checkout instant, zero while in cart.
	PlacedAt time.Time
}

// Item returns the line for productID, if present.
func (o *Order) Item(productID string) (LineItem, bool) {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

// ItemCount returns the number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// MaxQuantity is the most units of one product a single order may hold.
const MaxQuantity = 999

// LineItem is one product on an order with the unit price frozen at the
// moment it was first selected.
type LineItem struct {
	ProductID        string
	Quantity         int
	PriceAtSelection decimal.Decimal
}

// Subtotal returns quantity × price_at_selection.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.PriceAtSelection.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// SumItems derives an order total from its line items.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total.Round(2)
}

// Transition describes a conditional status change: it only applies while
// the order is in one of From and, when Scope is set, routed to that selector.
type Transition struct {
	From      []Status
	To        Status
	Scope     Selector
	ClaimedBy int64
}

// Repository is the storage port of the order engine. Every item mutation
// recomputes and persists the total in the same atomic unit, and status
// changes are compare-and-swap writes.
type Repository interface {
	// GetOrCreateCart returns the account's open cart or creates an empty one.
	// Implementations must serialize this per account.
	GetOrCreateCart(ctx context.Context, accountID int64) (*Order, error)
	Get(ctx context.Context, orderID string) (*Order, error)

	// AddItem merges qty units of the product into the cart, keeping the
	// existing price_at_selection for a product already present.
	AddItem(ctx context.Context, orderID string, item LineItem) (*Order, error)
	SetItemQuantity(ctx context.Context, orderID, productID string, qty int) (*Order, error)
	// RemoveItem succeeds without change if the product is not in the cart.
	RemoveItem(ctx context.Context, orderID, productID string) (*Order, error)
	ClearItems(ctx context.Context, orderID string) (*Order, error)
	RecomputeTotal(ctx context.Context, orderID string) (*Order, error)

	// Checkout moves a non-empty cart to pending with dest attached in one write.
	Checkout(ctx context.Context, orderID string, dest Destination, placedAt time.Time) (*Order, error)
	// Transition applies t as one conditional write. It reports false when no
	// order matched, which includes an order that does not exist.
	Transition(ctx context.Context, orderID string, t Transition) (bool, error)

	// ListQueue returns orders routed to sel in any of statuses, oldest placed first.
	ListQueue(ctx context.Context, sel Selector, statuses []Status) ([]Order, error)
	// ListByAccount returns placed (non-cart) orders of an account, newest first.
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]Order, error)
}
