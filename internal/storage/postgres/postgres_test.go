//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/stand-kart/internal/storage/storagetest"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("testdata/docker-compose.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}
	defer func() {
		if err := dc.Down(context.Background(), tc.RemoveOrphans(true), tc.RemoveVolumes(true)); err != nil {
			log.Printf("compose down: %v", err)
		}
	}()

	err = dc.
		WaitForService("postgres", wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute)).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	container, err := dc.ServiceContainer(ctx, "postgres")
	if err != nil {
		log.Fatalf("postgres container: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://stand:stand@%s:%s/stand?sslmode=disable", host, port.Port())
	pool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	return m.Run()
}

// truncate empties all tables so every subtest starts from scratch.
func truncate(t *testing.T) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE order_items, orders, products, accounts RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Store {
		truncate(t)
		return storagetest.Store{
			Orders:   NewOrderRepository(pool),
			Products: NewProductRepository(pool),
			Accounts: NewAccountRepository(pool),
		}
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), pool))
}

func TestDeliveryCoordinatesConstraint(t *testing.T) {
	truncate(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO accounts (id) VALUES (1)`)
	require.NoError(t, err)

	// A delivery order without a seat must be rejected by the table itself.
	_, err = pool.Exec(ctx, `INSERT INTO orders (id, account_id, status, destination,
		delivery_side, delivery_sector, delivery_row, placed_at)
		VALUES ('x', 1, 'pending', 'delivery', 'east', 3, 'A', now())`)
	require.Error(t, err)

	// A second open cart for the same account violates the partial unique index.
	_, err = pool.Exec(ctx, `INSERT INTO orders (id, account_id) VALUES ('c1', 1)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO orders (id, account_id) VALUES ('c2', 1)`)
	require.Error(t, err)
}
