package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/stand-kart/internal/domain/product"
)

const (
	listAvailableProductsSQL = `SELECT id, name, category, price, available
		FROM products WHERE available ORDER BY category, name, id`

	listProductsByCategorySQL = `SELECT id, name, category, price, available
		FROM products WHERE available AND category = $1 ORDER BY name, id`

	getProductByIDSQL = `SELECT id, name, category, price, available
		FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, category, price, available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category,
			price = EXCLUDED.price, available = EXCLUDED.available`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListAvailable returns products on sale ordered by category then name.
func (r *ProductRepository) ListAvailable(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listAvailableProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListByCategory returns products on sale in one category.
func (r *ProductRepository) ListByCategory(ctx context.Context, category product.Category) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsByCategorySQL, string(category))
	if err != nil {
		return nil, fmt.Errorf("listing %s products: %w", category, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier, available or not.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts or replaces a product.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, string(p.Category), p.Price, p.Available)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		category string
		price    decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &category, &price, &p.Available)
	p.Category = product.Category(category)
	p.Price = price
	return p, err
}
