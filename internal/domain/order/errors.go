package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Expected outcome classes. Callers branch on them with errors.Is; any other
// error returned by the engine is a storage failure.
var (
	// ErrNotFound: the referenced order or line item does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrPrecondition: the order is not in a state that allows the operation.
	ErrPrecondition = errors.New("precondition failed")
)

var (
	ErrItemNotFound       = &classError{msg: "line item not found", class: ErrNotFound}
	ErrInvalidQuantity    = &classError{msg: fmt.Sprintf("quantity must be between 1 and %d", MaxQuantity), class: ErrPrecondition}
	ErrInvalidPrice       = &classError{msg: "unit price must not be negative", class: ErrPrecondition}
	ErrNotCart            = &classError{msg: "order is not an open cart", class: ErrPrecondition}
	ErrEmptyCart          = &classError{msg: "cart is empty", class: ErrPrecondition}
	ErrAlreadyClaimed     = &classError{msg: "order already taken", class: ErrPrecondition}
	ErrInvalidDestination = &classError{msg: "invalid destination", class: ErrPrecondition}
	ErrIncompleteDelivery = &classError{msg: "incomplete delivery coordinates", class: ErrPrecondition}
)

// classError is a sentinel that also matches its outcome class.
type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Is(target error) bool { return target == e.class }

// TransitionError reports a status change the order's current state forbids.
type TransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrPrecondition }

// IsNotFound reports whether err is a not-found outcome.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPrecondition reports whether err is a precondition outcome.
func IsPrecondition(err error) bool { return errors.Is(err, ErrPrecondition) }
