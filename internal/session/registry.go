// Package session hands out the per-user journals and draft autosaver.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"Storefront/internal/autosave"
	"Storefront/internal/history"
	"Storefront/internal/kv"
	"Storefront/pkg/kit"
)

// Session is everything the storefront keeps for one signed-in user. All of
// it lives under the user's namespace in the shared store.
type Session struct {
	UserID    string
	Namespace kv.Namespace
	Views     *history.Journal
	Searches  *history.Journal
	Draft     *autosave.Autosaver

	lastUsed time.Time
}

type Config struct {
	Namespace        kv.Namespace
	ViewCapacity     int
	SearchCapacity   int
	AutosaveInterval time.Duration
	// IdleTTL is how long an unused session is kept before Sweep evicts it.
	IdleTTL time.Duration
	Clock   func() time.Time
}

const DefaultIdleTTL = 30 * time.Minute

// Registry creates sessions on first use and keeps them so that each user's
// autosave timer and journal locks are shared across requests.
type Registry struct {
	store kv.Store
	cfg   Config
	log   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(store kv.Store, cfg Config, log *zap.Logger) *Registry {
	if cfg.Namespace == "" {
		cfg.Namespace = "storefront"
	}
	if cfg.ViewCapacity <= 0 {
		cfg.ViewCapacity = history.ViewCapacity
	}
	if cfg.SearchCapacity <= 0 {
		cfg.SearchCapacity = history.SearchCapacity
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = autosave.DefaultInterval
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Registry{
		store:    store,
		cfg:      cfg,
		log:      kit.OrNop(log),
		sessions: map[string]*Session{},
	}
}

func (r *Registry) Get(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Clock()
	if s, ok := r.sessions[userID]; ok {
		s.lastUsed = now
		return s
	}

	ns := r.cfg.Namespace.Child(userID)
	log := r.log.With(zap.String("user_id", userID))

	s := &Session{
		UserID:    userID,
		Namespace: ns,
		Views: history.NewRecentlyViewed(r.store, ns,
			history.WithCapacity(r.cfg.ViewCapacity),
			history.WithClock(r.cfg.Clock),
			history.WithLogger(log),
		),
		Searches: history.NewSearchHistory(r.store, ns,
			history.WithCapacity(r.cfg.SearchCapacity),
			history.WithClock(r.cfg.Clock),
			history.WithLogger(log),
		),
		Draft: autosave.New(r.store, ns,
			autosave.WithInterval(r.cfg.AutosaveInterval),
			autosave.WithLogger(log),
		),
		lastUsed: now,
	}
	r.sessions[userID] = s
	return s
}

// Len is the number of sessions created so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// FlushAll writes every pending draft. Call it on shutdown.
func (r *Registry) FlushAll(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	flushed := 0
	for _, s := range sessions {
		if s.Draft.Pending() {
			s.Draft.Flush(ctx)
			flushed++
		}
	}
	r.log.Info("flushed pending drafts", zap.Int("count", flushed))
}

// Sweep evicts sessions unused for longer than IdleTTL, writing their pending
// drafts first. A session touched again while it is being flushed, or whose
// draft could not be written, stays. It returns the number evicted.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.cfg.Clock().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	idle := make([]*Session, 0)
	for _, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			idle = append(idle, s)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Draft.Flush(ctx)
	}

	r.mu.Lock()
	evicted := 0
	for _, s := range idle {
		if s.lastUsed.Before(cutoff) && !s.Draft.Pending() {
			delete(r.sessions, s.UserID)
			evicted++
		}
	}
	r.mu.Unlock()

	if evicted > 0 {
		r.log.Debug("evicted idle sessions", zap.Int("count", evicted), zap.Int("remaining", r.Len()))
	}
	return evicted
}
