package order

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

// mockRepo keeps a single order and records what reached storage.
type mockRepo struct {
	order       *Order
	err         error
	transitions []Transition
	added       []LineItem
	placedAt    time.Time
}

func (m *mockRepo) get(orderID string) (*Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.order == nil || m.order.ID != orderID {
		return nil, ErrNotFound
	}
	o := *m.order
	return &o, nil
}

func (m *mockRepo) GetOrCreateCart(_ context.Context, accountID int64) (*Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &Order{ID: "cart", AccountID: accountID, Status: StatusCart}, nil
}

func (m *mockRepo) Get(_ context.Context, orderID string) (*Order, error) { return m.get(orderID) }

func (m *mockRepo) AddItem(_ context.Context, orderID string, item LineItem) (*Order, error) {
	m.added = append(m.added, item)
	return m.get(orderID)
}

func (m *mockRepo) SetItemQuantity(_ context.Context, orderID, _ string, _ int) (*Order, error) {
	return m.get(orderID)
}

func (m *mockRepo) RemoveItem(_ context.Context, orderID, _ string) (*Order, error) {
	return m.get(orderID)
}

func (m *mockRepo) ClearItems(_ context.Context, orderID string) (*Order, error) {
	return m.get(orderID)
}

func (m *mockRepo) RecomputeTotal(_ context.Context, orderID string) (*Order, error) {
	return m.get(orderID)
}

func (m *mockRepo) Checkout(_ context.Context, orderID string, dest Destination, placedAt time.Time) (*Order, error) {
	m.placedAt = placedAt
	o, err := m.get(orderID)
	if err != nil {
		return nil, err
	}
	o.Status, o.Destination, o.PlacedAt = StatusPending, dest, placedAt
	return o, nil
}

func (m *mockRepo) Transition(_ context.Context, orderID string, t Transition) (bool, error) {
	m.transitions = append(m.transitions, t)
	if m.err != nil {
		return false, m.err
	}
	if m.order == nil || m.order.ID != orderID {
		return false, nil
	}
	if t.Scope != SelectorUnset && SelectorOf(m.order.Destination) != t.Scope {
		return false, nil
	}
	for _, from := range t.From {
		if m.order.Status == from {
			m.order.Status = t.To
			if t.ClaimedBy != 0 {
				m.order.ClaimedBy = t.ClaimedBy
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) ListQueue(context.Context, Selector, []Status) ([]Order, error) { return nil, nil }

func (m *mockRepo) ListByAccount(_ context.Context, _ int64, limit int) ([]Order, error) {
	return make([]Order, 0, limit), nil
}

// --- Helpers ---

var t0 = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(repo, WithClock(func() time.Time { return t0 }))
	require.NoError(t, err)
	return svc
}

func placed(status Status, dest Destination) *Order {
	return &Order{ID: "o1", AccountID: 1, Status: status, Destination: dest}
}

// --- Tests ---

func TestAddItem_ValidatesBeforeStorage(t *testing.T) {
	repo := &mockRepo{order: placed(StatusCart, nil)}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "o1", "hotdog", 0, decimal.NewFromInt(150))
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.True(t, IsPrecondition(err))

	_, err = svc.AddItem(ctx, "o1", "hotdog", MaxQuantity+1, decimal.NewFromInt(150))
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, "o1", "hotdog", 1, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = svc.AddItem(ctx, "o1", "  ", 1, decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.True(t, IsNotFound(err))

	assert.Empty(t, repo.added)
}

func TestAddItem_RoundsPrice(t *testing.T) {
	repo := &mockRepo{order: placed(StatusCart, nil)}
	svc := newTestService(t, repo)

	_, err := svc.AddItem(context.Background(), "o1", "nachos", 2, decimal.RequireFromString("120.499"))
	require.NoError(t, err)
	require.Len(t, repo.added, 1)
	assert.Equal(t, "120.50", repo.added[0].PriceAtSelection.StringFixed(2))
	assert.Equal(t, 2, repo.added[0].Quantity)
}

func TestUpdateItemQuantity_RejectsOutOfRange(t *testing.T) {
	svc := newTestService(t, &mockRepo{order: placed(StatusCart, nil)})

	for _, qty := range []int{0, -1, MaxQuantity + 1, math.MaxInt} {
		_, err := svc.UpdateItemQuantity(context.Background(), "o1", "hotdog", qty)
		require.ErrorIs(t, err, ErrInvalidQuantity, "quantity %d", qty)
	}
	_, err := svc.UpdateItemQuantity(context.Background(), "o1", "hotdog", MaxQuantity)
	require.NoError(t, err)
}

func TestCheckout_Validation(t *testing.T) {
	repo := &mockRepo{order: placed(StatusCart, nil)}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, "o1", nil)
	require.ErrorIs(t, err, ErrInvalidDestination)

	_, err = svc.Checkout(ctx, "o1", Delivery{Side: "North", Sector: 3})
	require.ErrorIs(t, err, ErrIncompleteDelivery)
	assert.Contains(t, err.Error(), "row, seat")
	assert.True(t, repo.placedAt.IsZero(), "storage must not be reached")

	o, err := svc.Checkout(ctx, "o1", CounterB{})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, t0, repo.placedAt)
}

func TestClaim(t *testing.T) {
	tests := []struct {
		name    string
		order   *Order
		scope   Selector
		wantErr error
		typed   bool
	}{
		{name: "wins pending", order: placed(StatusPending, CounterA{}), scope: SelectorCounterA},
		{name: "already preparing", order: placed(StatusPreparing, CounterA{}), scope: SelectorCounterA, wantErr: ErrAlreadyClaimed},
		{name: "already completed", order: placed(StatusCompleted, CounterA{}), scope: SelectorCounterA, wantErr: ErrAlreadyClaimed},
		{name: "other scope", order: placed(StatusPending, CounterB{}), scope: SelectorCounterA, wantErr: ErrNotFound},
		{name: "still a cart", order: placed(StatusCart, nil), scope: SelectorCounterA, wantErr: ErrNotFound},
		{name: "cancelled", order: placed(StatusCancelled, Delivery{Side: "N", Sector: 1, Row: "1", Seat: "1"}), scope: SelectorDelivery, wantErr: ErrPrecondition, typed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{order: tt.order}
			svc := newTestService(t, repo)

			err := svc.Claim(context.Background(), "o1", tt.scope, 9001)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, StatusPreparing, repo.order.Status)
				assert.Equal(t, int64(9001), repo.order.ClaimedBy)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			if tt.typed {
				var te *TransitionError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, StatusCancelled, te.From)
				assert.Equal(t, StatusPreparing, te.To)
			}
		})
	}
}

func TestClaim_RequiresScope(t *testing.T) {
	repo := &mockRepo{order: placed(StatusPending, CounterA{})}
	svc := newTestService(t, repo)

	err := svc.Claim(context.Background(), "o1", SelectorUnset, 9001)
	require.ErrorIs(t, err, ErrInvalidDestination)
	assert.Empty(t, repo.transitions)
}

func TestClaim_MissingOrder(t *testing.T) {
	svc := newTestService(t, &mockRepo{})

	err := svc.Claim(context.Background(), "nope", SelectorCounterA, 9001)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdvance(t *testing.T) {
	repo := &mockRepo{order: placed(StatusPreparing, CounterA{})}
	svc := newTestService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Advance(ctx, "o1", StatusReadyForPickup))
	assert.Equal(t, []Status{StatusPreparing}, repo.transitions[0].From)

	err := svc.Advance(ctx, "o1", StatusReadyForPickup)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusReadyForPickup, te.From)

	require.NoError(t, svc.Advance(ctx, "o1", StatusCompleted))
	assert.Equal(t, StatusCompleted, repo.order.Status)
}

func TestAdvance_NotForward(t *testing.T) {
	repo := &mockRepo{order: placed(StatusPending, CounterA{})}
	svc := newTestService(t, repo)

	for _, next := range []Status{StatusPreparing, StatusPending, StatusCancelled, StatusCart, "bogus"} {
		err := svc.Advance(context.Background(), "o1", next)
		require.ErrorIs(t, err, ErrPrecondition, next)
	}
	assert.Empty(t, repo.transitions)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		from Status
		ok   bool
	}{
		{StatusPending, true},
		{StatusPreparing, true},
		{StatusReadyForPickup, false},
		{StatusCompleted, false},
		{StatusCancelled, false},
		{StatusCart, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			repo := &mockRepo{order: placed(tt.from, CounterA{})}
			svc := newTestService(t, repo)

			err := svc.Cancel(context.Background(), "o1")
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, StatusCancelled, repo.order.Status)
				return
			}
			require.ErrorIs(t, err, ErrPrecondition)
			assert.Equal(t, tt.from, repo.order.Status)
		})
	}
}

func TestStoreFailureIsNotClassified(t *testing.T) {
	repo := &mockRepo{order: placed(StatusPending, CounterA{}), err: errors.New("connection refused")}
	svc := newTestService(t, repo)

	err := svc.Cancel(context.Background(), "o1")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.False(t, IsPrecondition(err))
}

func TestHistory_DefaultLimit(t *testing.T) {
	svc := newTestService(t, &mockRepo{})

	got, err := svc.History(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, cap(got))
}

func TestGetOrCreateCart_RejectsInvalidAccount(t *testing.T) {
	svc := newTestService(t, &mockRepo{})

	_, err := svc.GetOrCreateCart(context.Background(), 0)
	require.Error(t, err)
}

func TestWithdraw_OnlyPending(t *testing.T) {
	repo := &mockRepo{order: placed(StatusPreparing, CounterA{})}
	svc := newTestService(t, repo)

	err := svc.Withdraw(context.Background(), "o1")
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusPreparing, te.From)

	repo.order.Status = StatusPending
	require.NoError(t, svc.Withdraw(context.Background(), "o1"))
	assert.Equal(t, StatusCancelled, repo.order.Status)
}

func TestRecomputeTotal_WrapsStoreErrors(t *testing.T) {
	repo := &mockRepo{order: placed(StatusCart, nil)}
	svc := newTestService(t, repo)

	o, err := svc.RecomputeTotal(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	_, err = svc.RecomputeTotal(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}
