package kv_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storefront/internal/kv"
)

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, s kv.Store) {
	t.Helper()
	ctx := context.Background()
	ns := kv.Namespace("storefront").Child("u_1")

	t.Run("missing key", func(t *testing.T) {
		v, ok, err := s.GetItem(ctx, ns.Key("nope"))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		key := ns.Key(kv.RecentlyViewed)
		require.NoError(t, s.SetItem(ctx, key, `[]`))
		require.NoError(t, s.SetItem(ctx, key, `[{"key":"p1","timestamp":1}]`))

		v, ok, err := s.GetItem(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"key":"p1","timestamp":1}]`, v)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		key := ns.Key(kv.SearchHistory)
		require.NoError(t, s.SetItem(ctx, key, `[]`))
		require.NoError(t, s.RemoveItem(ctx, key))
		require.NoError(t, s.RemoveItem(ctx, key))

		_, ok, err := s.GetItem(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("multi remove", func(t *testing.T) {
		for _, k := range ns.SessionKeys() {
			require.NoError(t, s.SetItem(ctx, k, "x"))
		}
		other := kv.Namespace("storefront").Child("u_2").Key(kv.CheckoutData)
		require.NoError(t, s.SetItem(ctx, other, "{}"))

		require.NoError(t, s.MultiRemove(ctx, ns.SessionKeys()))
		require.NoError(t, s.MultiRemove(ctx, nil))

		for _, k := range ns.SessionKeys() {
			_, ok, err := s.GetItem(ctx, k)
			require.NoError(t, err)
			assert.False(t, ok, k)
		}
		_, ok, err := s.GetItem(ctx, other)
		require.NoError(t, err)
		assert.True(t, ok, "other namespaces untouched")
	})

	t.Run("keys by prefix", func(t *testing.T) {
		lister, ok := s.(kv.KeyLister)
		if !ok {
			t.Skip("backend cannot list keys")
		}
		require.NoError(t, s.SetItem(ctx, "a_b:one", "1"))
		require.NoError(t, s.SetItem(ctx, "a_b:two", "2"))
		require.NoError(t, s.SetItem(ctx, "axb:three", "3"))

		keys, err := lister.Keys(ctx, "a_b:")
		require.NoError(t, err)
		assert.Equal(t, []string{"a_b:one", "a_b:two"}, keys, "underscore is literal, not a wildcard")
	})
}

func TestMemStore(t *testing.T) {
	exerciseStore(t, kv.NewMemStore())
}

func TestSQLiteStore(t *testing.T) {
	dsn := "sqlite:file:" + filepath.Join(t.TempDir(), "kv.db") + "?_pragma=busy_timeout(5000)"

	b, err := kv.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NotNil(t, b.SQL)
	assert.Equal(t, "sqlite", b.SQL.Dialect())
	exerciseStore(t, b.Store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite:file:" + filepath.Join(t.TempDir(), "kv.db")

	b, err := kv.Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, b.Store.SetItem(ctx, "storefront:u_1:checkout_data", `{"paymentMethod":"card"}`))
	require.NoError(t, b.Close())

	b, err = kv.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	v, ok, err := b.Store.GetItem(ctx, "storefront:u_1:checkout_data")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"paymentMethod":"card"}`, v)
}

func TestOpen_Schemes(t *testing.T) {
	ctx := context.Background()

	b, err := kv.Open(ctx, "memory:")
	require.NoError(t, err)
	assert.Nil(t, b.SQL)
	assert.NoError(t, b.Close())

	_, err = kv.Open(ctx, "")
	assert.Error(t, err)

	_, err = kv.Open(ctx, "redis://localhost:6379")
	assert.ErrorContains(t, err, "redis")
}

func TestInstrumented_CountsOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	s := kv.NewInstrumented(kv.NewMemStore(), reg)

	require.NoError(t, s.SetItem(ctx, "k", "v"))
	_, _, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	_, _, err = s.GetItem(ctx, "k")
	require.NoError(t, err)

	exerciseStore(t, s)

	n, err := testutil.GatherAndCount(reg, "storefront_kv_operations_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestNamespace(t *testing.T) {
	ns := kv.Namespace("storefront").Child(" u_9 ")
	assert.Equal(t, "storefront:u_9:recently_viewed", ns.Key(kv.RecentlyViewed))
	assert.Equal(t, []string{
		"storefront:u_9:recently_viewed",
		"storefront:u_9:search_history",
		"storefront:u_9:checkout_data",
	}, ns.SessionKeys())
}
