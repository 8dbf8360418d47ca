package account

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("account not found")

// Role tags what an account is allowed to see and do.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleCounterAStaff Role = "counter_a_staff"
	RoleCounterBStaff Role = "counter_b_staff"
	RoleDeliveryStaff Role = "delivery_staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleCounterAStaff, RoleCounterBStaff, RoleDeliveryStaff:
		return true
	}
	return false
}

// IsStaff reports whether r belongs to a fulfillment role.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleCustomer
}

// Account is an external chat identity known to the stand.
type Account struct {
	ID          int64
	DisplayName string
	Role        Role
	CreatedAt   time.Time
}

// Repository persists accounts. Role changes only happen through Provision,
// which is reserved for operator tooling.
type Repository interface {
	// Upsert creates the account with its given role on first sight. For an
	// existing account only the display name is refreshed; the stored role wins.
	Upsert(ctx context.Context, a Account) (*Account, error)
	// Provision creates or overwrites the account including its role.
	Provision(ctx context.Context, a Account) (*Account, error)
	Get(ctx context.Context, id int64) (*Account, error)
}

// Service resolves the account behind every incoming action.
type Service struct {
	repo Repository
}

// NewService creates an account Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Identify returns the account for id, creating it as a customer when it has
// never been seen before.
func (s *Service) Identify(ctx context.Context, id int64, displayName string) (*Account, error) {
	if id <= 0 {
		return nil, errors.Errorf("invalid account id %d", id)
	}
	a, err := s.repo.Upsert(ctx, Account{
		ID:          id,
		DisplayName: strings.TrimSpace(displayName),
		Role:        RoleCustomer,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "upsert account %d", id)
	}
	return a, nil
}

// Provision applies operator provisioning entries, see ParseProvision. All
// entries are parsed before any is written.
func (s *Service) Provision(ctx context.Context, entries []string) ([]Account, error) {
	parsed := make([]Account, 0, len(entries))
	for _, e := range entries {
		a, err := ParseProvision(e)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, a)
	}

	out := make([]Account, 0, len(parsed))
	for _, a := range parsed {
		saved, err := s.repo.Provision(ctx, a)
		if err != nil {
			return nil, errors.Wrapf(err, "provision account %d", a.ID)
		}
		out = append(out, *saved)
	}
	return out, nil
}

// ParseProvision parses an operator provisioning entry of the form
// "id:role" or "id:role:display name".
func ParseProvision(s string) (Account, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 {
		return Account{}, errors.Errorf("provision entry %q: want id:role[:name]", s)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return Account{}, errors.Errorf("provision entry %q: invalid account id", s)
	}
	role := Role(parts[1])
	if !role.Valid() {
		return Account{}, errors.Errorf("provision entry %q: unknown role %q", s, parts[1])
	}
	a := Account{ID: id, Role: role}
	if len(parts) == 3 {
		a.DisplayName = parts[2]
	}
	return a, nil
}
