// Package kv is the string-keyed, string-valued durable store that backs the
// per-user history journals and checkout drafts.
package kv

import (
	"context"
	"strings"
)

// Store mirrors the async key-value storage the mobile app persists to.
// A missing key is reported as found == false with a nil error.
type Store interface {
	GetItem(ctx context.Context, key string) (value string, found bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys []string) error
	Ping(ctx context.Context) error
}

// KeyLister is implemented by backends that can enumerate keys. Only the
// maintenance tooling needs it.
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Well-known key suffixes. They are part of the persisted layout and must not
// change between releases.
const (
	RecentlyViewed = "recently_viewed"
	SearchHistory  = "search_history"
	CheckoutData   = "checkout_data"
)

// Namespace prefixes every key a component owns, e.g. "storefront:u_42".
type Namespace string

// Key returns "<namespace>:<suffix>".
func (n Namespace) Key(suffix string) string {
	return string(n) + ":" + suffix
}

// Child scopes the namespace further, e.g. per user.
func (n Namespace) Child(part string) Namespace {
	return Namespace(n.Key(strings.TrimSpace(part)))
}

// SessionKeys lists every key a session namespace owns.
func (n Namespace) SessionKeys() []string {
	return []string{n.Key(RecentlyViewed), n.Key(SearchHistory), n.Key(CheckoutData)}
}
