package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/stand-kart/internal/catalog"
	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/delivery"
	"github.com/xenking/stand-kart/internal/domain/order"
	"github.com/xenking/stand-kart/internal/domain/product"
	"github.com/xenking/stand-kart/internal/storage/memory"
	"github.com/xenking/stand-kart/internal/storage/postgres"
	"github.com/xenking/stand-kart/internal/storage/redis"
	"github.com/xenking/stand-kart/pkg/health"
)

// backend is the set of storage ports chosen by configuration.
type backend struct {
	products product.Repository
	orders   order.Repository
	accounts account.Repository
	sessions delivery.Store

	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the configured storage driver and session store and
// registers their readiness checks.
func openBackend(ctx context.Context, cfg *Config, hc *health.Health) (_ *backend, err error) {
	b := &backend{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	switch cfg.Storage {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		b.closers = append(b.closers, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		hc.Add(health.Check{
			Name:           "postgres",
			Kind:           health.Readiness,
			Timeout:        5 * time.Second,
			Func:           health.PingCheck("postgres", pool),
			StartUnhealthy: true,
		})

		b.products = postgres.NewProductRepository(pool)
		b.orders = postgres.NewOrderRepository(pool)
		b.accounts = postgres.NewAccountRepository(pool)
	case DriverMemory:
		products := memory.NewProductRepository()
		if cfg.CatalogFile != "" {
			list, err := catalog.LoadFile(cfg.CatalogFile)
			if err != nil {
				return nil, errors.Wrap(err, "load catalog file")
			}
			if err := catalog.Seed(ctx, products, list, 1); err != nil {
				return nil, errors.Wrap(err, "seed memory catalog")
			}
			zctx.From(ctx).Info("Catalog loaded", zap.String("file", cfg.CatalogFile), zap.Int("products", len(list)))
		}
		zctx.From(ctx).Warn("Using in-memory storage, state is lost on restart")

		b.products = products
		b.orders = memory.NewOrderRepository(products)
		b.accounts = memory.NewAccountRepository()
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage)
	}

	switch cfg.Wizard.Store {
	case SessionsRedis:
		rdb, err := redis.NewClient(ctx, cfg.Wizard.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		b.closers = append(b.closers, func() { _ = rdb.Close() })

		store := redis.NewSessionStore(rdb)
		hc.Add(health.Check{
			Name:           "redis",
			Kind:           health.Readiness,
			Timeout:        2 * time.Second,
			Func:           health.PingCheck("redis", store),
			StartUnhealthy: true,
		})
		b.sessions = store
	case SessionsMemory:
		b.sessions = delivery.NewMemoryStore(nil)
	default:
		return nil, errors.Errorf("unknown wizard session store %q", cfg.Wizard.Store)
	}

	return b, nil
}
