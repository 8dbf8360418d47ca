package catalog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/stand-kart/internal/domain/product"
)

type productJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Available *bool           `json:"available"`
}

// LoadFile reads a JSON array of products. Files ending in .gz are
// decompressed on the fly.
func LoadFile(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	products, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return products, nil
}

// Decode parses and validates a JSON product list. A missing "available"
// field means the product is on sale.
func Decode(r io.Reader) ([]product.Product, error) {
	var raw []productJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]product.Product, 0, len(raw))
	for i, p := range raw {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, errors.Errorf("product #%d: empty id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, errors.Errorf("product %s: duplicate id", id)
		}
		seen[id] = struct{}{}

		category := product.Category(p.Category)
		if !category.Valid() {
			return nil, errors.Wrapf(ErrUnknownCategory, "product %s: %q", id, p.Category)
		}
		if p.Price.IsNegative() {
			return nil, errors.Errorf("product %s: negative price %s", id, p.Price)
		}

		available := true
		if p.Available != nil {
			available = *p.Available
		}
		out = append(out, product.Product{
			ID:        id,
			Name:      strings.TrimSpace(p.Name),
			Category:  category,
			Price:     p.Price.Round(2),
			Available: available,
		})
	}
	return out, nil
}

// Seed upserts products with at most parallel concurrent writes.
func Seed(ctx context.Context, repo product.Repository, products []product.Product, parallel int) error {
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for _, p := range products {
		g.Go(func() error {
			if err := repo.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			return nil
		})
	}
	return g.Wait()
}
