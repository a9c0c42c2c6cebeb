// Package autosave persists the checkout form while the user types. Edits
// are coalesced and written once the form has been quiet for an interval.
package autosave

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"Storefront/internal/kv"
	"Storefront/pkg/kit"
)

const DefaultInterval = time.Second

type state int

const (
	idle state = iota
	pending
)

type Option func(*Autosaver)

func WithInterval(d time.Duration) Option {
	return func(a *Autosaver) {
		if d > 0 {
			a.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(a *Autosaver) { a.log = l } }

// Autosaver owns one draft key. At most one flush is scheduled at a time;
// every Save pushes it back by a full interval.
type Autosaver struct {
	store    kv.Store
	key      string
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	state   state
	patch   Draft
	timer   *time.Timer
	gen     uint64
	flushMu sync.Mutex
}

func New(store kv.Store, ns kv.Namespace, opts ...Option) *Autosaver {
	a := &Autosaver{
		store:    store,
		key:      ns.Key(kv.CheckoutData),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = kit.OrNop(a.log).With(zap.String("draft", a.key))
	return a
}

func (a *Autosaver) Interval() time.Duration { return a.interval }

// Save merges patch into the unsaved edits and (re)schedules the write.
func (a *Autosaver) Save(patch Draft) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.patch = a.patch.Merge(patch)
	a.scheduleLocked()
}

func (a *Autosaver) scheduleLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}

	a.gen++
	gen := a.gen
	a.state = pending
	a.timer = time.AfterFunc(a.interval, func() {
		a.flush(context.Background(), gen, true)
	})
}

// Pending reports whether edits are waiting for a scheduled write.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == pending
}

// Flush writes unsaved edits now instead of waiting for the timer. Call it
// before the session goes away.
func (a *Autosaver) Flush(ctx context.Context) {
	a.flush(ctx, 0, false)
}

// Load returns the persisted draft. Unflushed edits are not included.
func (a *Autosaver) Load(ctx context.Context) Draft {
	d, err := a.readStored(ctx)
	if err != nil {
		a.log.Warn("read draft failed", zap.Error(err))
		return Draft{}
	}
	return d
}

// readStored returns the persisted draft. Missing or malformed data is an
// empty draft; only a store failure is an error.
func (a *Autosaver) readStored(ctx context.Context) (Draft, error) {
	raw, ok, err := a.store.GetItem(ctx, a.key)
	if err != nil {
		return Draft{}, err
	}
	if !ok || raw == "" {
		return Draft{}, nil
	}

	d, err := decodeDraft(raw)
	if err != nil {
		a.log.Warn("stored draft is malformed, treating as empty", zap.Error(err))
		return Draft{}, nil
	}
	return d, nil
}

// Clear drops unsaved edits and deletes the persisted draft.
func (a *Autosaver) Clear(ctx context.Context) {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	a.resetLocked()
	a.mu.Unlock()

	a.removeStored(ctx)
}

// ClearSaved deletes the persisted draft but keeps edits still waiting to be
// written; they start the next draft.
func (a *Autosaver) ClearSaved(ctx context.Context) {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.removeStored(ctx)
}

func (a *Autosaver) removeStored(ctx context.Context) {
	if err := a.store.RemoveItem(ctx, a.key); err != nil {
		a.log.Warn("clear draft failed", zap.Error(err))
	}
}

// flush takes the pending edits and writes them on top of the stored draft.
// A timer only flushes if no later Save superseded it.
func (a *Autosaver) flush(ctx context.Context, gen uint64, fromTimer bool) {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	if a.state != pending || (fromTimer && gen != a.gen) {
		a.mu.Unlock()
		return
	}
	patch := a.patch
	a.resetLocked()
	a.mu.Unlock()

	base, err := a.readStored(ctx)
	if err != nil {
		a.log.Warn("read draft failed, retrying later", zap.Error(err))
		a.requeue(patch)
		return
	}
	merged := base.Merge(patch)

	raw, err := encodeDraft(merged)
	if err != nil {
		a.log.Warn("encode draft failed", zap.Error(err))
		return
	}
	if err := a.store.SetItem(ctx, a.key, raw); err != nil {
		a.log.Warn("write draft failed", zap.Error(err))
	}
}

// requeue puts edits that could not be written back under any newer ones and
// schedules another attempt.
func (a *Autosaver) requeue(patch Draft) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.patch = patch.Merge(a.patch)
	a.scheduleLocked()
}

func (a *Autosaver) resetLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	a.patch = Draft{}
	a.state = idle
}
