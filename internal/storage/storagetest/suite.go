// Package storagetest holds the behaviour every storage backend must share.
// Backends call Run from their own tests.
package storagetest

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/order"
	"github.com/xenking/stand-kart/internal/domain/product"
)

// Store bundles the repositories of one backend.
type Store struct {
	Orders   order.Repository
	Products product.Repository
	Accounts account.Repository
}

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) Store

// Staff account ids provisioned by seed.
const (
	counterAStaff  int64 = 9001
	counterAStaff2 int64 = 9002
	counterBStaff  int64 = 9003
	raceStaffBase  int64 = 9100
	raceContenders       = 16
)

var (
	hotdog = product.Product{ID: "hotdog", Name: "Hot dog", Category: product.CategoryFood, Price: decimal.RequireFromString("150.00"), Available: true}
	cola   = product.Product{ID: "cola", Name: "Cola", Category: product.CategoryDrinks, Price: decimal.RequireFromString("80.00"), Available: true}
	nachos = product.Product{ID: "nachos", Name: "Nachos", Category: product.CategorySnacks, Price: decimal.RequireFromString("120.50"), Available: true}
	churro = product.Product{ID: "churro", Name: "Churro", Category: product.CategoryDesserts, Price: decimal.RequireFromString("60.00"), Available: false}
)

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, env *env)
	}{
		{"CartIsUniqueUnderConcurrency", testCartUnique},
		{"SameProductMergesIntoOneLine", testMergeSameProduct},
		{"LineQuantityIsCapped", testQuantityCap},
		{"TotalFollowsItems", testTotalInvariant},
		{"PriceFrozenAtSelection", testFrozenPrice},
		{"RemoveAbsentItemIsNoop", testRemoveAbsent},
		{"UpdateMissingItem", testUpdateMissing},
		{"UnknownOrderAndProduct", testUnknownRefs},
		{"CheckoutIncompleteDeliveryStaysCart", testCheckoutIncompleteDelivery},
		{"CheckoutEmptyCart", testCheckoutEmpty},
		{"CheckoutDeliveryRoundTrip", testCheckoutDelivery},
		{"CheckoutSectorRange", testCheckoutSectorRange},
		{"ItemsFrozenAfterCheckout", testItemsFrozenAfterCheckout},
		{"ClaimRaceHasOneWinner", testClaimRace},
		{"ClaimOutsideScope", testClaimOutsideScope},
		{"FulfillmentLifecycle", testLifecycle},
		{"CancelRules", testCancel},
		{"QueueIsScopedAndFIFO", testQueue},
		{"HistoryNewestFirst", testHistory},
		{"RecomputeTotalIsIdempotent", testRecompute},
		{"ProductCatalogReads", testCatalog},
		{"AccountRoleSurvivesUpsert", testAccountRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newEnv(t, newStore(t)))
		})
	}
}

type env struct {
	Store
	svc   *order.Service
	clock atomic.Int64
}

func newEnv(t *testing.T, s Store) *env {
	t.Helper()
	ctx := context.Background()

	for _, p := range []product.Product{hotdog, cola, nachos, churro} {
		require.NoError(t, s.Products.Upsert(ctx, p))
	}
	for _, a := range []account.Account{
		{ID: counterAStaff, Role: account.RoleCounterAStaff},
		{ID: counterAStaff2, Role: account.RoleCounterAStaff},
		{ID: counterBStaff, Role: account.RoleCounterBStaff},
	} {
		_, err := s.Accounts.Provision(ctx, a)
		require.NoError(t, err)
	}
	for i := range int64(raceContenders) {
		_, err := s.Accounts.Provision(ctx, account.Account{ID: raceStaffBase + i, Role: account.RoleCounterAStaff})
		require.NoError(t, err)
	}

	e := &env{Store: s}
	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	svc, err := order.NewService(s.Orders, order.WithClock(func() time.Time {
		return base.Add(time.Duration(e.clock.Add(1)) * time.Second)
	}))
	require.NoError(t, err)
	e.svc = svc
	return e
}

// customer registers a customer account and returns its id.
func (e *env) customer(t *testing.T, id int64) int64 {
	t.Helper()
	_, err := e.Accounts.Upsert(context.Background(), account.Account{ID: id, DisplayName: "fan", Role: account.RoleCustomer})
	require.NoError(t, err)
	return id
}

// placed returns a pending order of a fresh customer routed to dest.
func (e *env) placed(t *testing.T, customerID int64, dest order.Destination) *order.Order {
	t.Helper()
	ctx := context.Background()

	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, customerID))
	require.NoError(t, err)
	_, err = e.svc.AddItem(ctx, cart.ID, hotdog.ID, 1, hotdog.Price)
	require.NoError(t, err)
	o, err := e.svc.Checkout(ctx, cart.ID, dest)
	require.NoError(t, err)
	return o
}

func assertTotal(t *testing.T, o *order.Order) {
	t.Helper()
	assert.True(t, order.SumItems(o.Items).Equal(o.Total),
		"total %s does not match items sum %s", o.Total, order.SumItems(o.Items))
}

func testCartUnique(t *testing.T, e *env) {
	ctx := context.Background()
	id := e.customer(t, 1)

	const workers = 20
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := e.svc.GetOrCreateCart(ctx, id)
			if assert.NoError(t, err) {
				ids[i] = o.ID
			}
		}()
	}
	wg.Wait()

	for _, got := range ids {
		assert.Equal(t, ids[0], got)
	}

	again, err := e.svc.GetOrCreateCart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ids[0], again.ID)
	assert.Equal(t, order.StatusCart, again.Status)
	assert.True(t, again.Total.IsZero())
}

func testMergeSameProduct(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)

	_, err = e.svc.AddItem(ctx, cart.ID, hotdog.ID, 1, hotdog.Price)
	require.NoError(t, err)
	o, err := e.svc.AddItem(ctx, cart.ID, hotdog.ID, 2, hotdog.Price)
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(450).Equal(o.Total), "total = %s", o.Total)
}

func testQuantityCap(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)

	full, err := e.svc.AddItem(ctx, cart.ID, hotdog.ID, order.MaxQuantity, hotdog.Price)
	require.NoError(t, err)
	assertTotal(t, full)

	_, err = e.svc.AddItem(ctx, cart.ID, hotdog.ID, 1, hotdog.Price)
	require.ErrorIs(t, err, order.ErrInvalidQuantity)
	assert.True(t, order.IsPrecondition(err))

	// The repository enforces the cap on its own, whatever the caller checked.
	_, err = e.Orders.AddItem(ctx, cart.ID, order.LineItem{ProductID: hotdog.ID, Quantity: math.MaxInt, PriceAtSelection: hotdog.Price})
	require.ErrorIs(t, err, order.ErrInvalidQuantity)
	_, err = e.Orders.SetItemQuantity(ctx, cart.ID, hotdog.ID, order.MaxQuantity+1)
	require.ErrorIs(t, err, order.ErrInvalidQuantity)

	o, err := e.svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, order.MaxQuantity, o.Items[0].Quantity)
	assert.True(t, full.Total.Equal(o.Total), "total = %s", o.Total)
}

func testTotalInvariant(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)

	steps := []func() (*order.Order, error){
		func() (*order.Order, error) { return e.svc.AddItem(ctx, cart.ID, hotdog.ID, 2, hotdog.Price) },
		func() (*order.Order, error) { return e.svc.AddItem(ctx, cart.ID, nachos.ID, 3, nachos.Price) },
		func() (*order.Order, error) { return e.svc.AddItem(ctx, cart.ID, cola.ID, 1, cola.Price) },
		func() (*order.Order, error) { return e.svc.UpdateItemQuantity(ctx, cart.ID, nachos.ID, 1) },
		func() (*order.Order, error) { return e.svc.RemoveItem(ctx, cart.ID, hotdog.ID) },
	}
	for i, step := range steps {
		o, err := step()
		require.NoError(t, err, "step %d", i)
		assertTotal(t, o)
	}

	o, err := e.svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("200.50").Equal(o.Total), "total = %s", o.Total)

	o, err = e.svc.Clear(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, o.Items)
	assert.True(t, o.Total.IsZero())
	assert.Equal(t, order.StatusCart, o.Status)
}

func testFrozenPrice(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)

	_, err = e.svc.AddItem(ctx, cart.ID, hotdog.ID, 1, hotdog.Price)
	require.NoError(t, err)

	raised := hotdog
	raised.Price = decimal.RequireFromString("200.00")
	require.NoError(t, e.Products.Upsert(ctx, raised))

	o, err := e.svc.AddItem(ctx, cart.ID, hotdog.ID, 1, raised.Price)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.True(t, hotdog.Price.Equal(o.Items[0].PriceAtSelection))
	assert.True(t, decimal.NewFromInt(300).Equal(o.Total), "total = %s", o.Total)
}

func testRemoveAbsent(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)
	_, err = e.svc.AddItem(ctx, cart.ID, cola.ID, 2, cola.Price)
	require.NoError(t, err)

	o, err := e.svc.RemoveItem(ctx, cart.ID, nachos.ID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.True(t, decimal.NewFromInt(160).Equal(o.Total))

	o, err = e.svc.RemoveItem(ctx, cart.ID, cola.ID)
	require.NoError(t, err)
	assert.Empty(t, o.Items)
	assert.True(t, o.Total.IsZero())
}

func testUpdateMissing(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)

	_, err = e.svc.UpdateItemQuantity(ctx, cart.ID, cola.ID, 2)
	require.ErrorIs(t, err, order.ErrItemNotFound)
	assert.True(t, order.IsNotFound(err))

	_, err = e.svc.UpdateItemQuantity(ctx, cart.ID, cola.ID, 0)
	require.ErrorIs(t, err, order.ErrInvalidQuantity)
}

func testUnknownRefs(t *testing.T, e *env) {
	ctx := context.Background()

	_, err := e.svc.AddItem(ctx, "00000000-0000-0000-0000-000000000000", hotdog.ID, 1, hotdog.Price)
	require.True(t, order.IsNotFound(err), "got %v", err)

	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)
	_, err = e.svc.AddItem(ctx, cart.ID, "ghost", 1, decimal.NewFromInt(1))
	require.ErrorIs(t, err, order.ErrItemNotFound)

	o, err := e.svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, o.Items)
	assert.True(t, o.Total.IsZero())
}

func testCheckoutIncompleteDelivery(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)
	_, err = e.svc.AddItem(ctx, cart.ID, hotdog.ID, 1, hotdog.Price)
	require.NoError(t, err)

	_, err = e.svc.Checkout(ctx, cart.ID, order.Delivery{Side: "east", Sector: 12, Row: "F"})
	require.ErrorIs(t, err, order.ErrIncompleteDelivery)
	assert.True(t, order.IsPrecondition(err))

	o, err := e.svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCart, o.Status)
	assert.Nil(t, o.Destination)
}

func testCheckoutEmpty(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)

	_, err = e.svc.Checkout(ctx, cart.ID, order.CounterA{})
	require.ErrorIs(t, err, order.ErrEmptyCart)

	_, err = e.svc.Checkout(ctx, "00000000-0000-0000-0000-000000000000", order.CounterA{})
	require.True(t, order.IsNotFound(err), "got %v", err)
}

func testCheckoutDelivery(t *testing.T, e *env) {
	ctx := context.Background()
	dest := order.Delivery{Side: "west", Sector: 7, Row: "12", Seat: "4"}
	placed := e.placed(t, 1, dest)

	assert.Equal(t, order.StatusPending, placed.Status)
	assert.Equal(t, dest, placed.Destination)
	assert.False(t, placed.PlacedAt.IsZero())

	got, err := e.svc.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, dest, got.Destination)

	_, err = e.svc.Checkout(ctx, placed.ID, order.CounterB{})
	require.ErrorIs(t, err, order.ErrNotCart)

	next, err := e.svc.GetOrCreateCart(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, placed.ID, next.ID)
	assert.Equal(t, order.StatusCart, next.Status)
}

func testCheckoutSectorRange(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)
	_, err = e.svc.AddItem(ctx, cart.ID, hotdog.ID, 1, hotdog.Price)
	require.NoError(t, err)

	_, err = e.Orders.Checkout(ctx, cart.ID, order.Delivery{Side: "east", Sector: order.MaxSector + 1, Row: "F", Seat: "1"}, time.Now())
	require.ErrorIs(t, err, order.ErrInvalidDestination)

	o, err := e.svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCart, o.Status)

	dest := order.Delivery{Side: "east", Sector: order.MaxSector, Row: "F", Seat: "1"}
	_, err = e.svc.Checkout(ctx, cart.ID, dest)
	require.NoError(t, err)
	got, err := e.svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, dest, got.Destination)
}

func testItemsFrozenAfterCheckout(t *testing.T, e *env) {
	ctx := context.Background()
	placed := e.placed(t, 1, order.CounterA{})

	_, err := e.svc.AddItem(ctx, placed.ID, cola.ID, 1, cola.Price)
	require.ErrorIs(t, err, order.ErrNotCart)
	_, err = e.svc.Clear(ctx, placed.ID)
	require.ErrorIs(t, err, order.ErrNotCart)

	o, err := e.svc.Get(ctx, placed.ID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assertTotal(t, o)
}

func testClaimRace(t *testing.T, e *env) {
	ctx := context.Background()
	placed := e.placed(t, 1, order.CounterA{})

	var (
		wg     sync.WaitGroup
		wins   atomic.Int32
		winner atomic.Int64
		errs   = make([]error, raceContenders)
		start  = make(chan struct{})
	)
	for i := range raceContenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			staff := raceStaffBase + int64(i)
			err := e.svc.Claim(ctx, placed.ID, order.SelectorCounterA, staff)
			errs[i] = err
			if err == nil {
				wins.Add(1)
				winner.Store(staff)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, order.ErrAlreadyClaimed)
		}
	}

	o, err := e.svc.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, o.Status)
	assert.Equal(t, winner.Load(), o.ClaimedBy)
}

func testClaimOutsideScope(t *testing.T, e *env) {
	ctx := context.Background()
	placed := e.placed(t, 1, order.CounterA{})

	err := e.svc.Claim(ctx, placed.ID, order.SelectorCounterB, counterBStaff)
	require.True(t, order.IsNotFound(err), "got %v", err)

	o, err := e.svc.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Zero(t, o.ClaimedBy)
}

func testLifecycle(t *testing.T, e *env) {
	ctx := context.Background()
	placed := e.placed(t, 1, order.CounterA{})

	require.NoError(t, e.svc.Claim(ctx, placed.ID, order.SelectorCounterA, counterAStaff))
	require.ErrorIs(t, e.svc.Claim(ctx, placed.ID, order.SelectorCounterA, counterAStaff2), order.ErrAlreadyClaimed)

	err := e.svc.Advance(ctx, placed.ID, order.StatusCompleted)
	var terr *order.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, order.StatusPreparing, terr.From)

	require.NoError(t, e.svc.Advance(ctx, placed.ID, order.StatusReadyForPickup))
	require.NoError(t, e.svc.Advance(ctx, placed.ID, order.StatusCompleted))

	err = e.svc.Cancel(ctx, placed.ID)
	require.True(t, order.IsPrecondition(err), "got %v", err)

	o, err := e.svc.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.Equal(t, counterAStaff, o.ClaimedBy)
}

func testCancel(t *testing.T, e *env) {
	ctx := context.Background()

	pending := e.placed(t, 1, order.CounterB{})
	require.NoError(t, e.svc.Cancel(ctx, pending.ID))

	preparing := e.placed(t, 2, order.CounterB{})
	require.NoError(t, e.svc.Claim(ctx, preparing.ID, order.SelectorCounterB, counterBStaff))
	require.NoError(t, e.svc.Cancel(ctx, preparing.ID))

	err := e.svc.Claim(ctx, preparing.ID, order.SelectorCounterB, counterBStaff)
	require.True(t, order.IsPrecondition(err), "got %v", err)

	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 3))
	require.NoError(t, err)
	err = e.svc.Cancel(ctx, cart.ID)
	var terr *order.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, order.StatusCart, terr.From)

	err = e.svc.Cancel(ctx, "00000000-0000-0000-0000-000000000000")
	require.True(t, order.IsNotFound(err), "got %v", err)
}

func testQueue(t *testing.T, e *env) {
	ctx := context.Background()
	first := e.placed(t, 1, order.CounterA{})
	other := e.placed(t, 2, order.CounterB{})
	second := e.placed(t, 3, order.CounterA{})

	newA, err := e.Orders.ListQueue(ctx, order.SelectorCounterA, []order.Status{order.StatusPending})
	require.NoError(t, err)
	require.Len(t, newA, 2)
	assert.Equal(t, first.ID, newA[0].ID)
	assert.Equal(t, second.ID, newA[1].ID)
	require.Len(t, newA[0].Items, 1)

	newB, err := e.Orders.ListQueue(ctx, order.SelectorCounterB, []order.Status{order.StatusPending})
	require.NoError(t, err)
	require.Len(t, newB, 1)
	assert.Equal(t, other.ID, newB[0].ID)

	require.NoError(t, e.svc.Claim(ctx, second.ID, order.SelectorCounterA, counterAStaff))
	active, err := e.Orders.ListQueue(ctx, order.SelectorCounterA,
		[]order.Status{order.StatusPreparing, order.StatusReadyForPickup})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	delivery, err := e.Orders.ListQueue(ctx, order.SelectorDelivery, []order.Status{order.StatusPending})
	require.NoError(t, err)
	assert.Empty(t, delivery)
}

func testHistory(t *testing.T, e *env) {
	ctx := context.Background()
	older := e.placed(t, 1, order.CounterA{})
	newer := e.placed(t, 1, order.CounterB{})

	_, err := e.svc.GetOrCreateCart(ctx, 1)
	require.NoError(t, err)

	history, err := e.svc.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, newer.ID, history[0].ID)
	assert.Equal(t, older.ID, history[1].ID)

	limited, err := e.svc.History(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.ID, limited[0].ID)
}

func testRecompute(t *testing.T, e *env) {
	ctx := context.Background()
	cart, err := e.svc.GetOrCreateCart(ctx, e.customer(t, 1))
	require.NoError(t, err)
	_, err = e.svc.AddItem(ctx, cart.ID, nachos.ID, 2, nachos.Price)
	require.NoError(t, err)

	for range 2 {
		o, err := e.svc.RecomputeTotal(ctx, cart.ID)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("241.00").Equal(o.Total), "total = %s", o.Total)
	}

	_, err = e.svc.RecomputeTotal(ctx, "00000000-0000-0000-0000-000000000000")
	require.True(t, order.IsNotFound(err), "got %v", err)
}

func testCatalog(t *testing.T, e *env) {
	ctx := context.Background()

	all, err := e.Products.ListAvailable(ctx)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, p := range all {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"cola", "hotdog", "nachos"}, ids)

	drinks, err := e.Products.ListByCategory(ctx, product.CategoryDrinks)
	require.NoError(t, err)
	require.Len(t, drinks, 1)
	assert.True(t, cola.Price.Equal(drinks[0].Price))

	desserts, err := e.Products.ListByCategory(ctx, product.CategoryDesserts)
	require.NoError(t, err)
	assert.Empty(t, desserts)

	p, err := e.Products.GetByID(ctx, churro.ID)
	require.NoError(t, err)
	assert.False(t, p.Available)

	_, err = e.Products.GetByID(ctx, "ghost")
	require.True(t, errors.Is(err, product.ErrNotFound))
}

func testAccountRole(t *testing.T, e *env) {
	ctx := context.Background()

	a, err := e.Accounts.Upsert(ctx, account.Account{ID: counterAStaff, DisplayName: "Ann", Role: account.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, account.RoleCounterAStaff, a.Role)
	assert.Equal(t, "Ann", a.DisplayName)

	a, err = e.Accounts.Upsert(ctx, account.Account{ID: counterAStaff, Role: account.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, "Ann", a.DisplayName)

	fresh, err := e.Accounts.Upsert(ctx, account.Account{ID: 77, DisplayName: "New", Role: account.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, account.RoleCustomer, fresh.Role)

	got, err := e.Accounts.Get(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, "New", got.DisplayName)

	_, err = e.Accounts.Get(ctx, 78)
	require.ErrorIs(t, err, account.ErrNotFound)
}
