// Package memory provides process-local implementations of the storage
// ports. Its semantics match the PostgreSQL backend; state is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/product"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ account.Repository = (*AccountRepository)(nil)
)

// ProductRepository implements product.Repository in memory.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]product.Product
}

// NewProductRepository returns a ProductRepository holding the given products.
func NewProductRepository(products ...product.Product) *ProductRepository {
	r := &ProductRepository{products: make(map[string]product.Product, len(products))}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// ListAvailable returns products on sale ordered by category then name.
func (r *ProductRepository) ListAvailable(_ context.Context) ([]product.Product, error) {
	return r.filter(func(p product.Product) bool { return p.Available }), nil
}

// ListByCategory returns products on sale in one category.
func (r *ProductRepository) ListByCategory(_ context.Context, category product.Category) ([]product.Product, error) {
	return r.filter(func(p product.Product) bool {
		return p.Available && p.Category == category
	}), nil
}

// GetByID returns a product regardless of availability.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// Upsert inserts or replaces a product.
func (r *ProductRepository) Upsert(_ context.Context, p product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = p
	return nil
}

func (r *ProductRepository) filter(keep func(product.Product) bool) []product.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.products))
	for _, p := range r.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AccountRepository implements account.Repository in memory.
type AccountRepository struct {
	mu       sync.Mutex
	accounts map[int64]account.Account
	now      func() time.Time
}

// NewAccountRepository returns an empty AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[int64]account.Account),
		now:      time.Now,
	}
}

// Upsert creates the account on first sight; afterwards only a non-empty
// display name is refreshed.
func (r *AccountRepository) Upsert(_ context.Context, a account.Account) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.accounts[a.ID]
	if !ok {
		if a.Role == "" {
			a.Role = account.RoleCustomer
		}
		a.CreatedAt = r.now()
		r.accounts[a.ID] = a
		return &a, nil
	}
	if a.DisplayName != "" {
		cur.DisplayName = a.DisplayName
		r.accounts[a.ID] = cur
	}
	return &cur, nil
}

// Provision creates or overwrites the account including its role.
func (r *AccountRepository) Provision(_ context.Context, a account.Account) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.accounts[a.ID]
	if ok {
		cur.Role = a.Role
		if a.DisplayName != "" {
			cur.DisplayName = a.DisplayName
		}
	} else {
		cur = a
		cur.CreatedAt = r.now()
	}
	r.accounts[a.ID] = cur
	return &cur, nil
}

// Get returns the account by id.
func (r *AccountRepository) Get(_ context.Context, id int64) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &a, nil
}
