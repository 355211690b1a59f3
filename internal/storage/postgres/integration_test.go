//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

// startPostgres runs a throwaway PostgreSQL container and returns a migrated
// pool connected to it.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Migrations are idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestIntegration_Postgres(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	stock := 7
	chair := product.Product{
		ID:                 "p1",
		Name:               "Blue Chair",
		Slug:               "blue-chair",
		ImageRef:           "image-abc-10x10-png",
		Price:              decimal.RequireFromString("120.50"),
		Description:        "Comfortable",
		DiscountPercentage: decimal.RequireFromString("10"),
		Featured:           true,
		InventoryLevel:     &stock,
		Category:           "chairs",
	}
	products := NewProductRepository(pool)

	t.Run("products", func(t *testing.T) {
		require.NoError(t, products.Upsert(ctx, chair))
		require.NoError(t, products.Upsert(ctx, product.Product{ID: "p2", Name: "Desk", Slug: "desk", Price: decimal.NewFromInt(80)}))

		list, err := products.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "p1", list[0].ID, "featured first")
		assert.Nil(t, list[1].InventoryLevel)

		got, err := products.GetBySlug(ctx, "blue-chair")
		require.NoError(t, err)
		assert.True(t, chair.Price.Equal(got.Price))
		require.NotNil(t, got.InventoryLevel)
		assert.Equal(t, 7, *got.InventoryLevel)

		_, err = products.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("cart", func(t *testing.T) {
		carts := cart.NewManager(NewCartStore(pool))
		require.NoError(t, carts.Ping(ctx))

		s := carts.Store(uuid.NewString())
		s.Add(ctx, chair.CartProduct())
		s.Add(ctx, chair.CartProduct())
		s.Increment(ctx, "p1")

		items := s.List(ctx)
		require.Len(t, items, 1)
		assert.Equal(t, 3, items[0].Quantity)

		o, err := order.NewService(NewOrderRepository(pool)).Checkout(ctx, s)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("361.5").Equal(o.Total), o.Total.String())
		assert.Empty(t, s.List(ctx))

		var total decimal.Decimal
		require.NoError(t, pool.QueryRow(ctx, "SELECT total FROM orders WHERE id = $1", o.ID).Scan(&total))
		assert.True(t, o.Total.Equal(total))
	})
}
