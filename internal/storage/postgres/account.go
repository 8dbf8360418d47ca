package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/stand-kart/internal/domain/account"
)

const (
	upsertAccountSQL = `INSERT INTO accounts (id, display_name, role) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET display_name = CASE
			WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name
			ELSE accounts.display_name END
		RETURNING id, display_name, role, created_at`

	provisionAccountSQL = `INSERT INTO accounts (id, display_name, role) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, display_name = CASE
			WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name
			ELSE accounts.display_name END
		RETURNING id, display_name, role, created_at`

	getAccountSQL = `SELECT id, display_name, role, created_at FROM accounts WHERE id = $1`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Upsert inserts the account on first sight. The stored role is never
// touched by an upsert.
func (r *AccountRepository) Upsert(ctx context.Context, a account.Account) (*account.Account, error) {
	if a.Role == "" {
		a.Role = account.RoleCustomer
	}
	rows, err := r.pool.Query(ctx, upsertAccountSQL, a.ID, a.DisplayName, string(a.Role))
	if err != nil {
		return nil, fmt.Errorf("upserting account %d: %w", a.ID, err)
	}
	return collectAccount(rows)
}

// Provision inserts or overwrites the account including its role.
func (r *AccountRepository) Provision(ctx context.Context, a account.Account) (*account.Account, error) {
	rows, err := r.pool.Query(ctx, provisionAccountSQL, a.ID, a.DisplayName, string(a.Role))
	if err != nil {
		return nil, fmt.Errorf("provisioning account %d: %w", a.ID, err)
	}
	return collectAccount(rows)
}

// Get returns the account by id.
func (r *AccountRepository) Get(ctx context.Context, id int64) (*account.Account, error) {
	rows, err := r.pool.Query(ctx, getAccountSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting account %d: %w", id, err)
	}
	a, err := collectAccount(rows)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	return a, err
}

func collectAccount(rows pgx.Rows) (*account.Account, error) {
	a, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (account.Account, error) {
		var (
			a    account.Account
			role string
		)
		err := row.Scan(&a.ID, &a.DisplayName, &role, &a.CreatedAt)
		a.Role = account.Role(role)
		return a, err
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}
