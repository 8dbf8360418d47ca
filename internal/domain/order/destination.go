package order

import (
	"math"
	"strings"

	"github.com/go-faster/errors"
)

// Selector names where an order is handed over.
type Selector string

const (
	SelectorUnset    Selector = ""
	SelectorCounterA Selector = "counter_a"
	SelectorCounterB Selector = "counter_b"
	SelectorDelivery Selector = "delivery"
)

// ParseSelector validates an opaque selector string coming from the UI.
func ParseSelector(s string) (Selector, error) {
	switch sel := Selector(s); sel {
	case SelectorCounterA, SelectorCounterB, SelectorDelivery:
		return sel, nil
	}
	return SelectorUnset, errors.Wrapf(ErrInvalidDestination, "unknown selector %q", s)
}

// Destination is a closed set of hand-over points: CounterA, CounterB or
// Delivery. Only Delivery carries coordinates, so a delivery without a seat
// cannot be expressed.
type Destination interface {
	Selector() Selector
	Validate() error
	isDestination()
}

// CounterA is pickup at the first counter.
type CounterA struct{}

// CounterB is pickup at the second counter.
type CounterB struct{}

// MaxSector is the largest sector number a delivery may name.
const MaxSector = math.MaxInt32

// Delivery is a runner bringing the order to a seat.
type Delivery struct {
	Side   string
	Sector int
	Row    string
	Seat   string
}

func (CounterA) Selector() Selector { return SelectorCounterA }
func (CounterB) Selector() Selector { return SelectorCounterB }
func (Delivery) Selector() Selector { return SelectorDelivery }

func (CounterA) Validate() error { return nil }
func (CounterB) Validate() error { return nil }

// Validate requires all four coordinates.
func (d Delivery) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Side) == "" {
		missing = append(missing, "side")
	}
	if d.Sector <= 0 {
		missing = append(missing, "sector")
	}
	if strings.TrimSpace(d.Row) == "" {
		missing = append(missing, "row")
	}
	if strings.TrimSpace(d.Seat) == "" {
		missing = append(missing, "seat")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrIncompleteDelivery, "missing %s", strings.Join(missing, ", "))
	}
	if d.Sector > MaxSector {
		return errors.Wrapf(ErrInvalidDestination, "sector %d out of range", d.Sector)
	}
	return nil
}

func (CounterA) isDestination() {}
func (CounterB) isDestination() {}
func (Delivery) isDestination() {}

// PickupAt returns the counter destination for a pickup selector. Delivery
// destinations must be built with their coordinates instead.
func PickupAt(sel Selector) (Destination, error) {
	switch sel {
	case SelectorCounterA:
		return CounterA{}, nil
	case SelectorCounterB:
		return CounterB{}, nil
	case SelectorDelivery:
		return nil, errors.Wrap(ErrIncompleteDelivery, "delivery needs seat coordinates")
	}
	return nil, errors.Wrapf(ErrInvalidDestination, "unknown selector %q", sel)
}

// SelectorOf returns the selector of d, or SelectorUnset for nil.
func SelectorOf(d Destination) Selector {
	if d == nil {
		return SelectorUnset
	}
	return d.Selector()
}
