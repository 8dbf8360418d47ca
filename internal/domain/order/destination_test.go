package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       Delivery
		missing string
	}{
		{name: "complete", d: Delivery{Side: "North", Sector: 12, Row: "F", Seat: "15"}},
		{name: "nothing", d: Delivery{}, missing: "side, sector, row, seat"},
		{name: "blank side", d: Delivery{Side: "  ", Sector: 1, Row: "A", Seat: "1"}, missing: "side"},
		{name: "negative sector", d: Delivery{Side: "S", Sector: -2, Row: "A", Seat: "1"}, missing: "sector"},
		{name: "no seat", d: Delivery{Side: "S", Sector: 2, Row: "A"}, missing: "seat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.missing == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrIncompleteDelivery)
			require.ErrorIs(t, err, ErrPrecondition)
			assert.Contains(t, err.Error(), "missing "+tt.missing)
		})
	}
}

func TestDeliveryValidate_SectorRange(t *testing.T) {
	d := Delivery{Side: "North", Sector: MaxSector, Row: "F", Seat: "15"}
	require.NoError(t, d.Validate())

	d.Sector = MaxSector + 1
	err := d.Validate()
	require.ErrorIs(t, err, ErrInvalidDestination)
	assert.True(t, IsPrecondition(err))
}

func TestParseSelector(t *testing.T) {
	for _, s := range []Selector{SelectorCounterA, SelectorCounterB, SelectorDelivery} {
		got, err := ParseSelector(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseSelector("counter_c")
	require.ErrorIs(t, err, ErrInvalidDestination)
	_, err = ParseSelector("")
	require.ErrorIs(t, err, ErrInvalidDestination)
}

func TestSelectorOf(t *testing.T) {
	assert.Equal(t, SelectorUnset, SelectorOf(nil))
	assert.Equal(t, SelectorCounterA, SelectorOf(CounterA{}))
	assert.Equal(t, SelectorDelivery, SelectorOf(Delivery{}))
}

func TestSumItems(t *testing.T) {
	items := []LineItem{
		{ProductID: "hotdog", Quantity: 3, PriceAtSelection: decimal.RequireFromString("150.00")},
		{ProductID: "nachos", Quantity: 1, PriceAtSelection: decimal.RequireFromString("120.50")},
	}
	assert.Equal(t, "570.50", SumItems(items).StringFixed(2))
	assert.True(t, SumItems(nil).IsZero())

	o := Order{Items: items}
	assert.Equal(t, 4, o.ItemCount())
	it, ok := o.Item("nachos")
	require.True(t, ok)
	assert.Equal(t, 1, it.Quantity)
	_, ok = o.Item("cola")
	assert.False(t, ok)
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusReadyForPickup.Valid())
	assert.False(t, Status("shipped").Valid())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPreparing.Terminal())
}
