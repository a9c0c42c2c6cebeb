// Package recommend picks products to feature: trending by stock, related by
// category, and personal recommendations from the recently-viewed journal.
// Inputs are never modified; every result is a fresh slice.
package recommend

import (
	"context"
	"sort"

	"Storefront/internal/catalog"
	"Storefront/internal/history"
)

// Trending returns active products in stock for market, most stock first.
// Equal stock keeps input order.
func Trending(products []catalog.Product, market string, limit int) []catalog.Product {
	if limit <= 0 {
		return []catalog.Product{}
	}

	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if p.Active && p.StockFor(market) > 0 {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StockFor(market) > out[j].StockFor(market)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Related returns other active products in category, in input order.
func Related(products []catalog.Product, productID, category string, limit int) []catalog.Product {
	out := make([]catalog.Product, 0, max(limit, 0))
	for _, p := range products {
		if len(out) >= limit {
			break
		}
		if p.Active && p.ID != productID && p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// ViewHistory is the recently-viewed journal as the recommender sees it.
type ViewHistory interface {
	List(ctx context.Context) []history.Entry
}

type Recommender struct {
	History       ViewHistory
	DefaultMarket string
}

// Recommended favors active products from categories the user viewed
// recently, then tops up with trending products. Products in excludeIDs are
// never returned. Without any view history it is plain trending.
func (r Recommender) Recommended(ctx context.Context, products []catalog.Product, excludeIDs []string, limit int) []catalog.Product {
	if limit <= 0 {
		return []catalog.Product{}
	}

	skip := make(map[string]struct{}, len(excludeIDs)+limit)
	for _, id := range excludeIDs {
		skip[id] = struct{}{}
	}

	var viewed []history.Entry
	if r.History != nil {
		viewed = r.History.List(ctx)
	}

	out := make([]catalog.Product, 0, limit)

	if len(viewed) > 0 {
		categories := make(map[string]struct{}, len(viewed))
		for _, e := range viewed {
			if e.Tag != "" {
				categories[e.Tag] = struct{}{}
			}
		}

		for _, p := range products {
			if len(out) >= limit {
				break
			}
			if _, excluded := skip[p.ID]; excluded || !p.Active {
				continue
			}
			if _, ok := categories[p.Category]; ok {
				out = append(out, p)
				skip[p.ID] = struct{}{}
			}
		}
	}

	if len(out) >= limit {
		return out
	}

	for _, p := range Trending(products, r.DefaultMarket, len(products)) {
		if len(out) >= limit {
			break
		}
		if _, taken := skip[p.ID]; taken {
			continue
		}
		out = append(out, p)
		skip[p.ID] = struct{}{}
	}
	return out
}
