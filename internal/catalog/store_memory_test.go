package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_ListSortedAndIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(
		Product{ID: "b", Category: "hats", Active: true, Stock: map[string]int{"uk": 1}},
		Product{ID: "a", Category: "bags", Active: true, Stock: map[string]int{"uk": 2}},
	)

	list, err := s.ListSortedByID(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	list[0].Stock["uk"] = 99

	p, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, p.StockFor("uk"), "callers get copies")
	assert.Zero(t, p.StockFor("eu"))

	_, ok, err = s.Get(ctx, "zzz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewDemoStore(t *testing.T) {
	list, err := NewDemoStore().ListSortedByID(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, list)
	for _, p := range list {
		assert.NotEmpty(t, p.Category, p.ID)
	}
}
