//go:build integration

package order_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"Storefront/internal/catalog"
	"Storefront/internal/order"
)

func TestPlace_PostgresStores(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		tcpostgres.WithInitScripts(filepath.Join("..", "..", "migrations", "001_init.sql")),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pg)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	products := catalog.NewPostgresStore(db)
	require.NoError(t, products.Ping(ctx))

	all, err := products.ListSortedByID(ctx)
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, 12, all[0].StockFor("uk"))

	store := order.NewPostgresStore(db)
	svc := &order.Service{Store: store, Catalog: products}

	o, err := svc.Place(ctx, order.PlaceRequest{
		UserID: "u_1",
		Market: "uk",
		Items:  []order.Item{{ProductID: "p2", Qty: 1}, {ProductID: "p1", Qty: 2}},
		Draft:  pickupDraft(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(22970), o.TotalCents)

	got, ok, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u_1", got.UserID)
	assert.Equal(t, o.Delivery, got.Delivery)
	assert.Equal(t, []order.Item{{ProductID: "p1", Qty: 2}, {ProductID: "p2", Qty: 1}}, got.Items)

	_, err = svc.Place(ctx, order.PlaceRequest{
		UserID: "u_1",
		Market: "uk",
		Items:  []order.Item{{ProductID: "p3", Qty: 1}},
		Draft:  pickupDraft(),
	})
	require.ErrorIs(t, err, order.ErrUnavailable)

	_, ok, err = store.Get(ctx, "o_missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
