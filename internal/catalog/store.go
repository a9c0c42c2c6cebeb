package catalog

import "context"

// Product is the read model the storefront ranks and filters. Stock is
// counted per market code.
type Product struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	PriceCents int64          `json:"price_cents"`
	Category   string         `json:"category"`
	Active     bool           `json:"active"`
	Stock      map[string]int `json:"stock"`
}

// StockFor returns the units on hand in market; unknown markets have none.
func (p Product) StockFor(market string) int {
	return p.Stock[market]
}

type Store interface {
	Ping(ctx context.Context) error
	ListSortedByID(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, bool, error)
}
