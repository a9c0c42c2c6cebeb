package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// PostgresStore reads products and their per-market stock from the shared
// database:
//
//	products(id, title, price_cents, category, active)
//	product_stock(product_id, market, qty)
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) ListSortedByID(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT p.id, p.title, p.price_cents, p.category, p.active, s.market, s.qty
			FROM products p
			LEFT JOIN product_stock s ON s.product_id = p.id
			ORDER BY p.id ASC, s.market ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var (
				p      Product
				market sql.NullString
				qty    sql.NullInt64
			)
			if err := rows.Scan(&p.ID, &p.Title, &p.PriceCents, &p.Category, &p.Active, &market, &qty); err != nil {
				return err
			}

			if n := len(out); n == 0 || out[n-1].ID != p.ID {
				p.Stock = map[string]int{}
				out = append(out, p)
			}
			if market.Valid {
				out[len(out)-1].Stock[market.String] = int(qty.Int64)
			}
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		err := s.db.QueryRowContext(ctx, `
			SELECT id, title, price_cents, category, active
			FROM products
			WHERE id = $1
		`, id).Scan(&p.ID, &p.Title, &p.PriceCents, &p.Category, &p.Active)
		if err != nil {
			return err
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT market, qty
			FROM product_stock
			WHERE product_id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()

		p.Stock = map[string]int{}
		for rows.Next() {
			var (
				market string
				qty    int
			)
			if err := rows.Scan(&market, &qty); err != nil {
				return err
			}
			p.Stock[market] = qty
		}
		return rows.Err()
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
