package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"Storefront/internal/kv"
	"Storefront/pkg/kit"
)

const (
	ViewCapacity   = 20
	SearchCapacity = 10
)

type options struct {
	capacity int
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*options)

// WithCapacity overrides the journal size. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// Journal is a capped list of entries stored as one JSON array under one key.
// Reads always go back to the store; mu only orders this instance's own
// read-modify-write cycles.
type Journal struct {
	store    kv.Store
	key      string
	capacity int
	now      func() time.Time
	log      *zap.Logger

	mu sync.Mutex
}

func New(store kv.Store, key string, capacity int, opts ...Option) *Journal {
	o := options{capacity: capacity, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 1 {
		o.capacity = 1
	}

	return &Journal{
		store:    store,
		key:      key,
		capacity: o.capacity,
		now:      o.now,
		log:      kit.OrNop(o.log).With(zap.String("journal", key)),
	}
}

// NewRecentlyViewed keeps the last 20 product views; tags carry the category.
func NewRecentlyViewed(store kv.Store, ns kv.Namespace, opts ...Option) *Journal {
	return New(store, ns.Key(kv.RecentlyViewed), ViewCapacity, opts...)
}

// NewSearchHistory keeps the last 10 normalized queries.
func NewSearchHistory(store kv.Store, ns kv.Namespace, opts ...Option) *Journal {
	return New(store, ns.Key(kv.SearchHistory), SearchCapacity, opts...)
}

func (j *Journal) Key() string   { return j.key }
func (j *Journal) Capacity() int { return j.capacity }

// Append records key as the newest entry. A previous entry with the same key
// is replaced, and the oldest entries beyond capacity are dropped.
func (j *Journal) Append(ctx context.Context, key, tag string) {
	if key == "" {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entries, ok := j.load(ctx)
	if !ok {
		return
	}

	kept := make([]Entry, 0, len(entries)+1)
	kept = append(kept, Entry{Key: key, Timestamp: j.now().UnixMilli(), Tag: tag})
	for _, e := range entries {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	if len(kept) > j.capacity {
		kept = kept[:j.capacity]
	}

	j.save(ctx, kept)
}

// List returns the journal newest first. It is never nil.
func (j *Journal) List(ctx context.Context) []Entry {
	entries, _ := j.load(ctx)
	return entries
}

func (j *Journal) Remove(ctx context.Context, key string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, ok := j.load(ctx)
	if !ok {
		return
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return
	}

	j.save(ctx, kept)
}

func (j *Journal) Clear(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.store.RemoveItem(ctx, j.key); err != nil {
		j.log.Warn("clear journal failed", zap.Error(err))
	}
}

// load reads, validates and sorts the stored journal. Missing or malformed
// data is an empty journal; ok is false only when the store could not be
// read, and writers must then leave the stored value alone.
func (j *Journal) load(ctx context.Context) (entries []Entry, ok bool) {
	raw, found, err := j.store.GetItem(ctx, j.key)
	if err != nil {
		j.log.Warn("read journal failed", zap.Error(err))
		return []Entry{}, false
	}
	if !found || raw == "" {
		return []Entry{}, true
	}

	entries, dropped, err := decodeEntries(raw)
	if err != nil {
		j.log.Warn("stored journal is malformed, treating as empty", zap.Error(err))
		return []Entry{}, true
	}
	if dropped > 0 {
		j.log.Debug("dropped malformed journal entries", zap.Int("dropped", dropped))
	}

	sortNewestFirst(entries)
	return entries, true
}

func (j *Journal) save(ctx context.Context, entries []Entry) {
	raw, err := encodeEntries(entries)
	if err != nil {
		j.log.Warn("encode journal failed", zap.Error(err))
		return
	}
	if err := j.store.SetItem(ctx, j.key, raw); err != nil {
		j.log.Warn("write journal failed", zap.Error(err))
	}
}
