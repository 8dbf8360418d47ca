package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/stand-kart/internal/catalog"
	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		parallel     int
		staff        []string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file, optionally gzipped (.gz)")
	flag.IntVar(&parallel, "parallel", 4, "concurrent product upserts")
	flag.Func("staff", "staff entry id:role[:name]; repeatable or comma-separated (or STAND_SEED_STAFF env)", func(v string) error {
		staff = append(staff, splitEntries(v)...)
		return nil
	})
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if len(staff) == 0 {
		staff = splitEntries(os.Getenv("STAND_SEED_STAFF"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, parallel, staff); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string, parallel int, staff []string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile, parallel); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedStaff(ctx, account.NewService(postgres.NewAccountRepository(pool)), staff); err != nil {
		return errors.Wrap(err, "seed staff")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string, parallel int) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	products, err := catalog.LoadFile(productsFile)
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)), slog.Int("parallel", parallel))

	if err := catalog.Seed(ctx, repo, products, parallel); err != nil {
		return err
	}

	for _, p := range products {
		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Bool("available", p.Available),
		)
	}
	return nil
}

func seedStaff(ctx context.Context, accounts *account.Service, entries []string) error {
	if len(entries) == 0 {
		slog.Info("no staff entries given, skipping provisioning")
		return nil
	}

	provisioned, err := accounts.Provision(ctx, entries)
	if err != nil {
		return err
	}
	for _, a := range provisioned {
		slog.Info("provisioned account", slog.Int64("id", a.ID), slog.String("role", string(a.Role)))
	}
	return nil
}

func splitEntries(v string) []string {
	var out []string
	for _, e := range strings.Split(v, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
