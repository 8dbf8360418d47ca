package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock.Now)

	require.NoError(t, store.Put(ctx, Session{AccountID: 1, Step: StepAwaitingSide}, time.Minute))

	clock.now = clock.now.Add(59 * time.Second)
	_, err := store.Get(ctx, 1)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Second)
	_, err = store.Get(ctx, 1)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStore_PutRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock.Now)

	s := Session{AccountID: 1, Step: StepAwaitingSide}
	require.NoError(t, store.Put(ctx, s, time.Minute))

	clock.now = clock.now.Add(50 * time.Second)
	s.Step = StepAwaitingSector
	require.NoError(t, store.Put(ctx, s, time.Minute))

	clock.now = clock.now.Add(50 * time.Second)
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSector, got.Step)
}

func TestMemoryStore_SweepOnPut(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock.Now)

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, store.Put(ctx, Session{AccountID: id}, time.Minute))
	}
	assert.Equal(t, 5, store.Len())

	clock.now = clock.now.Add(2 * time.Minute)
	require.NoError(t, store.Put(ctx, Session{AccountID: 99}, time.Minute))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	require.NoError(t, store.Put(ctx, Session{AccountID: 1, Side: "North"}, time.Minute))
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	got.Side = "South"

	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "North", again.Side)
}
