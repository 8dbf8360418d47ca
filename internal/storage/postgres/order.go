package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/stand-kart/internal/domain/order"
)

const orderColumns = `id, account_id, status, destination,
	delivery_side, delivery_sector, delivery_row, delivery_seat,
	total_amount, claimed_by, created_at, updated_at, placed_at`

const (
	insertCartSQL = `INSERT INTO orders (id, account_id, status) VALUES ($1, $2, 'cart')
		ON CONFLICT (account_id) WHERE status = 'cart' DO NOTHING`

	getCartSQL = `SELECT ` + orderColumns + ` FROM orders WHERE account_id = $1 AND status = 'cart'`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	lockOrderSQL = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	listItemsSQL = `SELECT order_id, product_id, quantity, price_at_selection
		FROM order_items WHERE order_id = ANY($1) ORDER BY added_at, product_id`

	addItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price_at_selection)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, product_id) DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity`

	setItemQuantitySQL = `UPDATE order_items SET quantity = $3 WHERE order_id = $1 AND product_id = $2`

	removeItemSQL = `DELETE FROM order_items WHERE order_id = $1 AND product_id = $2`

	clearItemsSQL = `DELETE FROM order_items WHERE order_id = $1`

	recomputeTotalSQL = `UPDATE orders SET updated_at = now(), total_amount = COALESCE(
			(SELECT SUM(quantity * price_at_selection) FROM order_items WHERE order_id = $1), 0)
		WHERE id = $1`

	checkoutSQL = `UPDATE orders SET status = 'pending', destination = $2,
			delivery_side = $3, delivery_sector = $4, delivery_row = $5, delivery_seat = $6,
			placed_at = $7, updated_at = now()
		WHERE id = $1 AND status = 'cart'
			AND EXISTS (SELECT 1 FROM order_items WHERE order_id = $1)`

	checkoutStateSQL = `SELECT o.status, EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)
		FROM orders o WHERE o.id = $1`

	transitionSQL = `UPDATE orders SET status = $2, claimed_by = COALESCE($3, claimed_by), updated_at = now()
		WHERE id = $1 AND status = ANY($4) AND ($5::text = '' OR destination = $5)`

	listQueueSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE destination = $1 AND status = ANY($2) ORDER BY placed_at, id`

	listByAccountSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE account_id = $1 AND status <> 'cart' ORDER BY placed_at DESC, id DESC LIMIT $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// partial unique index orders_one_cart_per_account serializes cart creation,
// item mutations lock the order row and recompute the total in the same
// transaction, and status changes are single conditional UPDATEs.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetOrCreateCart returns the open cart of the account, inserting one when
// absent. Concurrent callers race on the unique index; losers read the
// winner's row.
func (r *OrderRepository) GetOrCreateCart(ctx context.Context, accountID int64) (*order.Order, error) {
	// A cart checked out between insert and select leaves nothing to read;
	// try again with a fresh insert.
	for range 3 {
		if _, err := r.pool.Exec(ctx, insertCartSQL, uuid.New().String(), accountID); err != nil {
			return nil, fmt.Errorf("creating cart for account %d: %w", accountID, err)
		}

		rows, err := r.pool.Query(ctx, getCartSQL, accountID)
		if err != nil {
			return nil, fmt.Errorf("getting cart of account %d: %w", accountID, err)
		}
		o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("getting cart of account %d: %w", accountID, err)
		}
		if err := attachItems(ctx, r.pool, []*order.Order{&o}); err != nil {
			return nil, err
		}
		return &o, nil
	}
	return nil, errors.Errorf("cart of account %d kept disappearing", accountID)
}

// Get returns the order with its line items.
func (r *OrderRepository) Get(ctx context.Context, orderID string) (*order.Order, error) {
	return loadOrder(ctx, r.pool, orderID)
}

// AddItem upserts the line; an existing line keeps its price and grows. A
// merge past order.MaxQuantity trips the quantity constraint.
func (r *OrderRepository) AddItem(ctx context.Context, orderID string, item order.LineItem) (*order.Order, error) {
	if item.Quantity < 1 || item.Quantity > order.MaxQuantity {
		return nil, order.ErrInvalidQuantity
	}
	return r.mutateCart(ctx, orderID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, addItemSQL, orderID, item.ProductID, item.Quantity, item.PriceAtSelection)
		if isForeignKeyViolation(err) {
			return errors.Wrapf(order.ErrItemNotFound, "unknown product %s", item.ProductID)
		}
		if isQuantityViolation(err) {
			return errors.Wrapf(order.ErrInvalidQuantity, "line %s would exceed %d", item.ProductID, order.MaxQuantity)
		}
		if err != nil {
			return fmt.Errorf("adding item %q: %w", item.ProductID, err)
		}
		return nil
	})
}

// SetItemQuantity overwrites the quantity of an existing line.
func (r *OrderRepository) SetItemQuantity(ctx context.Context, orderID, productID string, qty int) (*order.Order, error) {
	if qty < 1 || qty > order.MaxQuantity {
		return nil, order.ErrInvalidQuantity
	}
	return r.mutateCart(ctx, orderID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, setItemQuantitySQL, orderID, productID, qty)
		if isQuantityViolation(err) {
			return order.ErrInvalidQuantity
		}
		if err != nil {
			return fmt.Errorf("updating item %q: %w", productID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrItemNotFound
		}
		return nil
	})
}

// RemoveItem deletes the line for productID, if any.
func (r *OrderRepository) RemoveItem(ctx context.Context, orderID, productID string) (*order.Order, error) {
	return r.mutateCart(ctx, orderID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, removeItemSQL, orderID, productID); err != nil {
			return fmt.Errorf("removing item %q: %w", productID, err)
		}
		return nil
	})
}

// ClearItems deletes every line of the cart.
func (r *OrderRepository) ClearItems(ctx context.Context, orderID string) (*order.Order, error) {
	return r.mutateCart(ctx, orderID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearItemsSQL, orderID); err != nil {
			return fmt.Errorf("clearing items: %w", err)
		}
		return nil
	})
}

// RecomputeTotal re-derives the stored total from the line items.
func (r *OrderRepository) RecomputeTotal(ctx context.Context, orderID string) (*order.Order, error) {
	tag, err := r.pool.Exec(ctx, recomputeTotalSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("recomputing total of order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, order.ErrNotFound
	}
	return loadOrder(ctx, r.pool, orderID)
}

// mutateCart locks the order row, checks it is still a cart, applies fn and
// recomputes the total before committing.
func (r *OrderRepository) mutateCart(ctx context.Context, orderID string, fn func(tx pgx.Tx) error) (*order.Order, error) {
	var out *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var status string
		if err := tx.QueryRow(ctx, lockOrderSQL, orderID).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("locking order %q: %w", orderID, err)
		}
		if order.Status(status) != order.StatusCart {
			return order.ErrNotCart
		}

		if err := fn(tx); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, recomputeTotalSQL, orderID); err != nil {
			return fmt.Errorf("recomputing total of order %q: %w", orderID, err)
		}

		o, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Checkout moves a non-empty cart to pending with its destination in one
// conditional UPDATE.
func (r *OrderRepository) Checkout(ctx context.Context, orderID string, dest order.Destination, placedAt time.Time) (*order.Order, error) {
	if err := dest.Validate(); err != nil {
		return nil, err
	}

	var (
		side, row, seat *string
		sector          *int32
	)
	if d, ok := dest.(order.Delivery); ok {
		s := int32(d.Sector) // Validate keeps it within order.MaxSector.
		side, sector, row, seat = &d.Side, &s, &d.Row, &d.Seat
	}

	tag, err := r.pool.Exec(ctx, checkoutSQL,
		orderID, string(dest.Selector()), side, sector, row, seat, placedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("checking out order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.explainCheckout(ctx, orderID)
	}
	return loadOrder(ctx, r.pool, orderID)
}

func (r *OrderRepository) explainCheckout(ctx context.Context, orderID string) error {
	var (
		status   string
		hasItems bool
	)
	err := r.pool.QueryRow(ctx, checkoutStateSQL, orderID).Scan(&status, &hasItems)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return order.ErrNotFound
	case err != nil:
		return fmt.Errorf("reading order %q: %w", orderID, err)
	case order.Status(status) != order.StatusCart:
		return order.ErrNotCart
	case !hasItems:
		return order.ErrEmptyCart
	}
	// The cart changed between the two statements; report it as contended.
	return order.ErrNotCart
}

// Transition applies a compare-and-swap status change.
func (r *OrderRepository) Transition(ctx context.Context, orderID string, t order.Transition) (bool, error) {
	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}
	var claimedBy *int64
	if t.ClaimedBy != 0 {
		claimedBy = &t.ClaimedBy
	}

	tag, err := r.pool.Exec(ctx, transitionSQL, orderID, string(t.To), claimedBy, from, string(t.Scope))
	if err != nil {
		return false, fmt.Errorf("moving order %q to %s: %w", orderID, t.To, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListQueue returns routed orders in the given statuses, oldest placed first.
func (r *OrderRepository) ListQueue(ctx context.Context, sel order.Selector, statuses []order.Status) ([]order.Order, error) {
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, listQueueSQL, string(sel), ss)
	if err != nil {
		return nil, fmt.Errorf("listing %s queue: %w", sel, err)
	}
	return collectOrders(ctx, r.pool, rows)
}

// ListByAccount returns the account's placed orders, newest first.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listByAccountSQL, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders of account %d: %w", accountID, err)
	}
	return collectOrders(ctx, r.pool, rows)
}

func loadOrder(ctx context.Context, q querier, orderID string) (*order.Order, error) {
	rows, err := q.Query(ctx, getOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}
	if err := attachItems(ctx, q, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOrders(ctx context.Context, q querier, rows pgx.Rows) ([]order.Order, error) {
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}
	ptrs := make([]*order.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := attachItems(ctx, q, ptrs); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads line items for all orders in one query.
func attachItems(ctx context.Context, q querier, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := q.Query(ctx, listItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      order.LineItem
			qty     int32
			price   decimal.Decimal
		)
		if err := rows.Scan(&orderID, &it.ProductID, &qty, &price); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		it.Quantity = int(qty)
		it.PriceAtSelection = price
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                       order.Order
		status, destination     string
		side, deliveryRow, seat *string
		sector                  *int32
		claimedBy               *int64
		placedAt                *time.Time
	)
	err := row.Scan(
		&o.ID, &o.AccountID, &status, &destination,
		&side, &sector, &deliveryRow, &seat,
		&o.Total, &claimedBy, &o.CreatedAt, &o.UpdatedAt, &placedAt,
	)
	if err != nil {
		return o, err
	}

	o.Status = order.Status(status)
	if claimedBy != nil {
		o.ClaimedBy = *claimedBy
	}
	if placedAt != nil {
		o.PlacedAt = *placedAt
	}

	switch order.Selector(destination) {
	case order.SelectorCounterA:
		o.Destination = order.CounterA{}
	case order.SelectorCounterB:
		o.Destination = order.CounterB{}
	case order.SelectorDelivery:
		d := order.Delivery{}
		if side != nil {
			d.Side = *side
		}
		if sector != nil {
			d.Sector = int(*sector)
		}
		if deliveryRow != nil {
			d.Row = *deliveryRow
		}
		if seat != nil {
			d.Seat = *seat
		}
		o.Destination = d
	}
	return o, nil
}
