package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/stand-kart/internal/domain/order"
)

type mockCheckouter struct {
	calls []order.Destination
	err   error
}

func (m *mockCheckouter) Checkout(_ context.Context, orderID string, dest order.Destination) (*order.Order, error) {
	m.calls = append(m.calls, dest)
	if m.err != nil {
		return nil, m.err
	}
	return &order.Order{ID: orderID, Status: order.StatusPending, Destination: dest}, nil
}

func newTestWizard(t *testing.T) (*Wizard, *MemoryStore, *mockCheckouter) {
	t.Helper()
	store := NewMemoryStore(nil)
	co := &mockCheckouter{}
	return NewWizard(store, co, time.Minute), store, co
}

func feed(t *testing.T, w *Wizard, accountID int64, answers ...string) *Result {
	t.Helper()
	var res *Result
	for _, a := range answers {
		var err error
		res, err = w.Input(context.Background(), accountID, a)
		require.NoError(t, err, "answer %q", a)
	}
	return res
}

func TestWizard_HappyPath(t *testing.T) {
	ctx := context.Background()
	w, store, co := newTestWizard(t)

	s, err := w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSide, s.Step)

	res := feed(t, w, 7, " North ", "12", "F")
	assert.Equal(t, StepAwaitingSeat, res.Session.Step)
	assert.Nil(t, res.Order)
	assert.Empty(t, co.calls, "no checkout before the last coordinate")

	res = feed(t, w, 7, "15")
	require.NotNil(t, res.Order)
	assert.Equal(t, StepComplete, res.Session.Step)
	assert.Equal(t, order.StatusPending, res.Order.Status)

	require.Len(t, co.calls, 1)
	assert.Equal(t, order.Delivery{Side: "North", Sector: 12, Row: "F", Seat: "15"}, co.calls[0])

	_, err = store.Get(ctx, 7)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestWizard_InvalidSectorKeepsStep(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newTestWizard(t)

	_, err := w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)
	feed(t, w, 7, "East")

	for _, bad := range []string{"abc", "0", "-3", "1.5", "2147483648", "4294967297"} {
		_, err := w.Input(ctx, 7, bad)
		require.ErrorIs(t, err, ErrInvalidInput, bad)
	}

	s, err := w.Current(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSector, s.Step)
	assert.Equal(t, "East", s.Side)
}

func TestWizard_RejectsEmptyAndLongAnswers(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newTestWizard(t)

	_, err := w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)

	_, err = w.Input(ctx, 7, "   ")
	require.ErrorIs(t, err, ErrInvalidInput)

	long := make([]byte, maxInputLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = w.Input(ctx, 7, string(long))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestWizard_NoSession(t *testing.T) {
	w, _, _ := newTestWizard(t)

	_, err := w.Input(context.Background(), 7, "North")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestWizard_StartResets(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newTestWizard(t)

	_, err := w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)
	feed(t, w, 7, "North", "3")

	_, err = w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)

	s, err := w.Current(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSide, s.Step)
	assert.Zero(t, s.Sector)
}

func TestWizard_Cancel(t *testing.T) {
	ctx := context.Background()
	w, _, co := newTestWizard(t)

	_, err := w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)
	feed(t, w, 7, "North")

	require.NoError(t, w.Cancel(ctx, 7))
	_, err = w.Input(ctx, 7, "3")
	require.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, co.calls)
}

func TestWizard_CheckoutRejectedEndsSession(t *testing.T) {
	ctx := context.Background()
	w, store, co := newTestWizard(t)
	co.err = errors.Wrap(order.ErrEmptyCart, "checkout")

	_, err := w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)
	feed(t, w, 7, "North", "3", "A")

	_, err = w.Input(ctx, 7, "9")
	require.ErrorIs(t, err, order.ErrEmptyCart)

	_, err = store.Get(ctx, 7)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestWizard_StorageFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	w, store, co := newTestWizard(t)
	co.err = errors.New("connection reset")

	_, err := w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)
	feed(t, w, 7, "North", "3", "A")

	_, err = w.Input(ctx, 7, "9")
	require.Error(t, err)
	assert.False(t, order.IsPrecondition(err))

	s, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSeat, s.Step)

	co.err = nil
	res := feed(t, w, 7, "9")
	require.NotNil(t, res.Order)
	assert.Len(t, co.calls, 2)
}

func TestWizard_SessionsArePerAccount(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newTestWizard(t)

	_, err := w.Start(ctx, 1, "ord-1")
	require.NoError(t, err)
	_, err = w.Start(ctx, 2, "ord-2")
	require.NoError(t, err)

	feed(t, w, 1, "North")

	s2, err := w.Current(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSide, s2.Step)
	assert.Equal(t, "ord-2", s2.OrderID)
}

func TestWizard_ConcurrentAnswersAllApply(t *testing.T) {
	ctx := context.Background()
	w, _, co := newTestWizard(t)

	_, err := w.Start(ctx, 7, "ord-1")
	require.NoError(t, err)

	// "7" is valid for side, sector and row alike, so every answer must land
	// on its own step.
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Input(ctx, 7, "7")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := w.Current(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSeat, s.Step)
	assert.Equal(t, order.Delivery{Side: "7", Sector: 7, Row: "7"}, s.Destination())
	assert.Empty(t, co.calls)
}
