// Package catalog serves the stand menu from a short-lived snapshot and
// quotes authoritative prices straight from the product repository.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/stand-kart/internal/domain/product"
)

// DefaultTTL is how long a menu snapshot is served before a refresh.
const DefaultTTL = 3 * time.Minute

// ErrUnknownCategory is returned for a category outside the menu.
var ErrUnknownCategory = errors.New("unknown category")

// Catalog caches the list of available products. Listing may be served
// from the last good snapshot when the repository fails; prices for a cart
// are never taken from the snapshot.
type Catalog struct {
	repo product.Repository
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	snapshot []product.Product
	loadedAt time.Time
}

// New creates a Catalog. A non-positive ttl selects DefaultTTL.
func New(repo product.Repository, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{repo: repo, ttl: ttl, now: time.Now}
}

// Available returns products on sale, ordered by category then name.
func (c *Catalog) Available(ctx context.Context) ([]product.Product, error) {
	c.mu.RLock()
	snap, fresh := c.snapshot, c.snapshot != nil && c.now().Sub(c.loadedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return snap, nil
	}

	v, err, _ := c.group.Do("available", func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		if snap != nil {
			zctx.From(ctx).Warn("Serving stale catalog snapshot",
				zap.Error(err),
				zap.Int("products", len(snap)),
			)
			return snap, nil
		}
		return nil, err
	}
	return v.([]product.Product), nil
}

// ByCategory returns products on sale in one category.
func (c *Catalog) ByCategory(ctx context.Context, category product.Category) ([]product.Product, error) {
	if !category.Valid() {
		return nil, errors.Wrapf(ErrUnknownCategory, "%q", category)
	}
	all, err := c.Available(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]product.Product, 0, len(all))
	for _, p := range all {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

// Price reads the current unit price of a product from the repository. An
// unavailable product has no price.
func (c *Catalog) Price(ctx context.Context, productID string) (decimal.Decimal, error) {
	p, err := c.repo.GetByID(ctx, productID)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "get product %s", productID)
	}
	if !p.Available {
		return decimal.Zero, errors.Wrapf(product.ErrUnavailable, "product %s", productID)
	}
	return p.Price, nil
}

// Invalidate drops the snapshot so the next listing reloads it.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.snapshot, c.loadedAt = nil, time.Time{}
	c.mu.Unlock()
}

func (c *Catalog) refresh(ctx context.Context) ([]product.Product, error) {
	products, err := c.repo.ListAvailable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list available products")
	}
	if products == nil {
		products = []product.Product{}
	}

	c.mu.Lock()
	c.snapshot, c.loadedAt = products, c.now()
	c.mu.Unlock()
	return products, nil
}
