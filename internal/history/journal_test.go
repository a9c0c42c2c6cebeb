package history_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storefront/internal/history"
	"Storefront/internal/kv"
)

var ns = kv.Namespace("storefront").Child("u_1")

type fakeClock struct{ ms int64 }

func (c *fakeClock) now() time.Time { return time.UnixMilli(c.ms) }
func (c *fakeClock) tick()          { c.ms++ }

func keys(entries []history.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key)
	}
	return out
}

func TestJournal_EvictsOldestBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{}
	j := history.New(kv.NewMemStore(), ns.Key("test"), 3, history.WithClock(clock.now))

	for _, k := range []string{"p1", "p2", "p3", "p4"} {
		j.Append(ctx, k, "")
		clock.tick()
	}

	assert.Equal(t, []string{"p4", "p3", "p2"}, keys(j.List(ctx)))
}

func TestJournal_CapacityHoldsAfterEveryAppend(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{ms: 1_700_000_000_000}
	j := history.NewRecentlyViewed(kv.NewMemStore(), ns, history.WithClock(clock.now))
	require.Equal(t, history.ViewCapacity, j.Capacity())

	for i := 0; i < 50; i++ {
		j.Append(ctx, fmt.Sprintf("p%d", i%27), "shoes")
		clock.tick()

		got := j.List(ctx)
		require.LessOrEqual(t, len(got), history.ViewCapacity)
		for n := 1; n < len(got); n++ {
			require.GreaterOrEqual(t, got[n-1].Timestamp, got[n].Timestamp, "newest first")
		}
	}
}

func TestJournal_RepeatRefreshesInsteadOfGrowing(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{ms: 100}
	j := history.NewSearchHistory(kv.NewMemStore(), ns, history.WithClock(clock.now))

	j.Append(ctx, "sneakers", "")
	clock.ms = 200
	j.Append(ctx, "boots", "")
	clock.ms = 300
	j.Append(ctx, "sneakers", "")
	j.Append(ctx, "sneakers", "")

	got := j.List(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, history.Entry{Key: "sneakers", Timestamp: 300}, got[0])
	assert.Equal(t, "boots", got[1].Key)
}

func TestJournal_EvictionFollowsTimestampNotStorageOrder(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	key := ns.Key(kv.RecentlyViewed)

	// Written by something else, out of order.
	require.NoError(t, store.SetItem(ctx, key, `[
		{"key":"mid","timestamp":20},
		{"key":"old","timestamp":10},
		{"key":"new","timestamp":30}
	]`))

	clock := &fakeClock{ms: 40}
	j := history.New(store, key, 3, history.WithClock(clock.now))
	j.Append(ctx, "newest", "")

	assert.Equal(t, []string{"newest", "new", "mid"}, keys(j.List(ctx)))
}

func TestJournal_ListResortsStoredData(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	key := ns.Key(kv.RecentlyViewed)

	require.NoError(t, store.SetItem(ctx, key, `[
		{"key":"a","timestamp":1,"tag":"bags"},
		{"key":"b","timestamp":3},
		{"key":"c","timestamp":2}
	]`))

	j := history.NewRecentlyViewed(store, ns)
	got := j.List(ctx)
	assert.Equal(t, []string{"b", "c", "a"}, keys(got))
	assert.Equal(t, "bags", got[2].Tag)
}

func TestJournal_MalformedDataReadsAsEmpty(t *testing.T) {
	ctx := context.Background()

	for name, raw := range map[string]string{
		"not json":   `{{{`,
		"object":     `{"key":"p1"}`,
		"string":     `"p1"`,
		"null":       `null`,
		"empty":      ``,
		"bad fields": `[{"key":5},{"timestamp":"x"},{"tag":"only"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			store := kv.NewMemStore()
			require.NoError(t, store.SetItem(ctx, ns.Key(kv.SearchHistory), raw))

			j := history.NewSearchHistory(store, ns)
			got := j.List(ctx)
			require.NotNil(t, got)
			assert.Empty(t, got)

			j.Append(ctx, "hats", "")
			assert.Equal(t, []string{"hats"}, keys(j.List(ctx)), "append recovers the journal")
		})
	}
}

func TestJournal_DropsOnlyInvalidElements(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	require.NoError(t, store.SetItem(ctx, ns.Key(kv.RecentlyViewed),
		`[{"key":"p1","timestamp":5},{"key":""},42,{"key":"p2","timestamp":"late"},{"key":"p3","timestamp":7}]`))

	j := history.NewRecentlyViewed(store, ns)
	assert.Equal(t, []string{"p3", "p1"}, keys(j.List(ctx)))
}

func TestJournal_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	clock := &fakeClock{}
	j := history.NewRecentlyViewed(store, ns, history.WithClock(clock.now))

	for _, k := range []string{"p1", "p2", "p3"} {
		j.Append(ctx, k, "")
		clock.tick()
	}

	j.Remove(ctx, "p2")
	j.Remove(ctx, "missing")
	assert.Equal(t, []string{"p3", "p1"}, keys(j.List(ctx)))

	j.Clear(ctx)
	_, ok, err := store.GetItem(ctx, ns.Key(kv.RecentlyViewed))
	require.NoError(t, err)
	assert.False(t, ok, "clear deletes the key")
	assert.Empty(t, j.List(ctx))
}

func TestJournal_IgnoresEmptyKey(t *testing.T) {
	ctx := context.Background()
	j := history.NewSearchHistory(kv.NewMemStore(), ns)
	j.Append(ctx, "", "")
	assert.Empty(t, j.List(ctx))
}

func TestJournal_SerializesConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	j := history.New(kv.NewMemStore(), ns.Key("test"), 100)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j.Append(ctx, fmt.Sprintf("p%d", i), "")
		}(i)
	}
	wg.Wait()

	assert.Len(t, j.List(ctx), 40)
}

// brokenStore fails every call.
type brokenStore struct{ kv.MemStore }

var errDisk = errors.New("disk on fire")

func (*brokenStore) GetItem(context.Context, string) (string, bool, error) { return "", false, errDisk }
func (*brokenStore) SetItem(context.Context, string, string) error         { return errDisk }
func (*brokenStore) RemoveItem(context.Context, string) error              { return errDisk }

func TestJournal_StorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	j := history.NewRecentlyViewed(&brokenStore{}, ns)

	assert.NotPanics(t, func() {
		j.Append(ctx, "p1", "shoes")
		j.Remove(ctx, "p1")
		j.Clear(ctx)
	})
	got := j.List(ctx)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

// flakyStore fails the next N reads, then behaves.
type flakyStore struct {
	*kv.MemStore

	mu        sync.Mutex
	failReads int
}

func (s *flakyStore) failNextReads(n int) {
	s.mu.Lock()
	s.failReads = n
	s.mu.Unlock()
}

func (s *flakyStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.failReads > 0
	if fail {
		s.failReads--
	}
	s.mu.Unlock()
	if fail {
		return "", false, errDisk
	}
	return s.MemStore.GetItem(ctx, key)
}

func TestJournal_ReadFailureLeavesStoredEntries(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemStore: kv.NewMemStore()}
	clock := &fakeClock{}
	j := history.NewRecentlyViewed(store, ns, history.WithClock(clock.now))

	for i := 0; i < 15; i++ {
		j.Append(ctx, fmt.Sprintf("p%d", i), "shoes")
		clock.tick()
	}

	store.failNextReads(1)
	j.Append(ctx, "new", "hats")

	got := j.List(ctx)
	require.Len(t, got, 15, "failed append writes nothing")
	assert.Equal(t, "p14", got[0].Key)

	store.failNextReads(1)
	j.Remove(ctx, "p3")
	assert.Len(t, j.List(ctx), 15, "failed remove writes nothing")

	j.Append(ctx, "new", "hats")
	got = j.List(ctx)
	require.Len(t, got, 16)
	assert.Equal(t, "new", got[0].Key, "journal works once reads recover")
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "red running shoes", history.NormalizeQuery("  Red   RUNNING\tshoes "))
	assert.Equal(t, "", history.NormalizeQuery(" \n "))
}
