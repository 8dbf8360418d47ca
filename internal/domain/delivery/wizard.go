// Package delivery collects seat coordinates for a delivery checkout over
// several chat messages.
//
// A session walks awaiting_side → awaiting_sector → awaiting_row →
// awaiting_seat → complete, one input per step. Completing it performs a
// single checkout of the cart with all four coordinates; the session is then
// discarded. Sessions are scratch state with a TTL and are not expected to
// survive a restart.
package delivery

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"

	"github.com/xenking/stand-kart/internal/domain/order"
)

var (
	// ErrNoSession is returned when the account has no wizard in progress.
	ErrNoSession = errors.New("no delivery session")
	// ErrInvalidInput is returned when an answer does not fit the current step.
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 15 * time.Minute

const maxInputLen = 64

// lockStripes is how many mutexes share the per-account serialization.
const lockStripes = 64

// Step is the wizard state.
type Step string

const (
	StepAwaitingSide   Step = "awaiting_side"
	StepAwaitingSector Step = "awaiting_sector"
	StepAwaitingRow    Step = "awaiting_row"
	StepAwaitingSeat   Step = "awaiting_seat"
	StepComplete       Step = "complete"
)

// Session is the scratch state of one account's wizard.
type Session struct {
	AccountID int64
	OrderID   string
	Step      Step
	Side      string
	Sector    int
	Row       string
	Seat      string
}

// Destination returns the coordinates captured so far.
func (s Session) Destination() order.Delivery {
	return order.Delivery{Side: s.Side, Sector: s.Sector, Row: s.Row, Seat: s.Seat}
}

// Store keeps sessions keyed by account id. Put replaces any previous
// session of the account and (re)arms its TTL.
type Store interface {
	Get(ctx context.Context, accountID int64) (*Session, error)
	Put(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, accountID int64) error
}

// Checkouter places a cart. *order.Service satisfies it.
type Checkouter interface {
	Checkout(ctx context.Context, orderID string, dest order.Destination) (*order.Order, error)
}

// Result is the outcome of one wizard input. Order is set once the session
// completed and the checkout went through.
type Result struct {
	Session Session
	Order   *order.Order
}

// Wizard drives delivery sessions. Calls for one account are serialized
// within a process; replicas sharing a Redis store may still interleave two
// answers of the same account, and the later Put wins.
type Wizard struct {
	store  Store
	orders Checkouter
	ttl    time.Duration

	locks [lockStripes]sync.Mutex
}

// NewWizard creates a Wizard. A non-positive ttl selects DefaultTTL.
func NewWizard(store Store, orders Checkouter, ttl time.Duration) *Wizard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Wizard{store: store, orders: orders, ttl: ttl}
}

func (w *Wizard) lock(accountID int64) func() {
	mu := &w.locks[uint64(accountID)%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Start opens a fresh session for the account's cart, discarding any
// session already in progress.
func (w *Wizard) Start(ctx context.Context, accountID int64, orderID string) (*Session, error) {
	defer w.lock(accountID)()

	s := Session{AccountID: accountID, OrderID: orderID, Step: StepAwaitingSide}
	if err := w.store.Put(ctx, s, w.ttl); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	return &s, nil
}

// Current returns the session in progress.
func (w *Wizard) Current(ctx context.Context, accountID int64) (*Session, error) {
	return w.store.Get(ctx, accountID)
}

// Cancel drops the session, if any.
func (w *Wizard) Cancel(ctx context.Context, accountID int64) error {
	defer w.lock(accountID)()

	if err := w.store.Delete(ctx, accountID); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// Input feeds one answer into the session. A rejected answer leaves the
// session on the same step.
func (w *Wizard) Input(ctx context.Context, accountID int64, text string) (*Result, error) {
	defer w.lock(accountID)()

	s, err := w.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.Wrap(ErrInvalidInput, "empty answer")
	}
	if utf8.RuneCountInString(text) > maxInputLen {
		return nil, errors.Wrapf(ErrInvalidInput, "answer longer than %d characters", maxInputLen)
	}

	switch s.Step {
	case StepAwaitingSide:
		s.Side, s.Step = text, StepAwaitingSector
	case StepAwaitingSector:
		sector, err := strconv.ParseInt(text, 10, 32)
		if err != nil || sector <= 0 {
			return nil, errors.Wrapf(ErrInvalidInput, "sector %q is not a positive number up to %d", text, order.MaxSector)
		}
		s.Sector, s.Step = int(sector), StepAwaitingRow
	case StepAwaitingRow:
		s.Row, s.Step = text, StepAwaitingSeat
	case StepAwaitingSeat:
		s.Seat = text
		return w.complete(ctx, *s)
	default:
		return nil, errors.Errorf("session in unexpected step %q", s.Step)
	}

	if err := w.store.Put(ctx, *s, w.ttl); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	return &Result{Session: *s}, nil
}

// complete checks the cart out to the captured seat. On a storage failure
// the stored session stays on the seat step so the answer can be resent;
// every other outcome ends the session.
func (w *Wizard) complete(ctx context.Context, s Session) (*Result, error) {
	placed, err := w.orders.Checkout(ctx, s.OrderID, s.Destination())
	if err != nil && !order.IsNotFound(err) && !order.IsPrecondition(err) {
		return nil, errors.Wrap(err, "checkout")
	}

	if derr := w.store.Delete(ctx, s.AccountID); derr != nil && err == nil {
		err = errors.Wrap(derr, "delete session")
	}
	if err != nil {
		return nil, err
	}

	s.Step = StepComplete
	return &Result{Session: s, Order: placed}, nil
}
