package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second

	pgUndefinedTable = "42P01"
)

// ErrSchemaMissing means Migrate has not been run against the database.
var ErrSchemaMissing = errors.New("kv: kv_items table missing, run migrate")

type dialect struct {
	name    string
	migrate string
	get     string
	set     string
	remove  string
	keys    string
}

var postgresDialect = dialect{
	name: "postgres",
	migrate: `
		CREATE TABLE IF NOT EXISTS kv_items (
			item_key   TEXT PRIMARY KEY,
			item_value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	get: `SELECT item_value FROM kv_items WHERE item_key = $1`,
	set: `
		INSERT INTO kv_items (item_key, item_value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (item_key) DO UPDATE
		SET item_value = excluded.item_value, updated_at = excluded.updated_at`,
	remove: `DELETE FROM kv_items WHERE item_key = $1`,
	keys:   `SELECT item_key FROM kv_items WHERE item_key LIKE $1 ESCAPE '\' ORDER BY item_key ASC`,
}

var sqliteDialect = dialect{
	name: "sqlite",
	migrate: `
		CREATE TABLE IF NOT EXISTS kv_items (
			item_key   TEXT PRIMARY KEY,
			item_value TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	get: `SELECT item_value FROM kv_items WHERE item_key = ?`,
	set: `
		INSERT INTO kv_items (item_key, item_value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (item_key) DO UPDATE
		SET item_value = excluded.item_value, updated_at = excluded.updated_at`,
	remove: `DELETE FROM kv_items WHERE item_key = ?`,
	keys:   `SELECT item_key FROM kv_items WHERE item_key LIKE ? ESCAPE '\' ORDER BY item_key ASC`,
}

// SQLStore keeps every item as one row of kv_items. The same code serves the
// embedded SQLite file and a shared Postgres database.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, d: postgresDialect}
}

func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, d: sqliteDialect}
}

// DB exposes the handle so other stores can share the connection pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect is "postgres" or "sqlite".
func (s *SQLStore) Dialect() string { return s.d.name }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.d.migrate)
		return err
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *SQLStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	var v string

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.d.get, key).Scan(&v)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap("get", err)
	}
	return v, true, nil
}

func (s *SQLStore) SetItem(ctx context.Context, key, value string) error {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.d.set, key, value)
		return err
	})
	return s.wrap("set", err)
}

func (s *SQLStore) RemoveItem(ctx context.Context, key string) error {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.d.remove, key)
		return err
	})
	return s.wrap("remove", err)
}

// MultiRemove deletes all keys in one transaction.
func (s *SQLStore) MultiRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, s.d.remove)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, k); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	return s.wrap("multi remove", err)
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, s.d.keys, likePrefix(prefix))
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]string, 0, 16)
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return err
			}
			out = append(out, k)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.wrap("keys", err)
	}
	return out, nil
}

func (s *SQLStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUndefinedTable(err) {
		return fmt.Errorf("%s %s: %w", s.d.name, op, ErrSchemaMissing)
	}
	return fmt.Errorf("%s %s: %w", s.d.name, op, err)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	return strings.Contains(err.Error(), "no such table")
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
