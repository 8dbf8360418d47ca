package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrUnavailable is returned when a product exists but is not on sale.
	ErrUnavailable = errors.New("product unavailable")
)

// Category groups products on the stand menu.
type Category string

const (
	CategoryFood     Category = "food"
	CategorySnacks   Category = "snacks"
	CategoryDrinks   Category = "drinks"
	CategoryDesserts Category = "desserts"
)

// Categories lists menu categories in display order.
var Categories = []Category{CategoryFood, CategorySnacks, CategoryDrinks, CategoryDesserts}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a catalog item sold at the stand.
type Product struct {
	ID        string
	Name      string
	Category  Category
	Price     decimal.Decimal
	Available bool
}

// Repository defines read operations for the product catalog. The engine
// never writes products; Upsert exists for seeding tools only.
type Repository interface {
	ListAvailable(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, category Category) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Upsert(ctx context.Context, p Product) error
}
