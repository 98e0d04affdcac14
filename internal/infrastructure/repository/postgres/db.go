// Package postgres persists search records and lookup history.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema bootstraps both tables. DDL is serialized across api/worker
// startups with an advisory lock.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS medicine_searches (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	query TEXT NOT NULL,
	search_type TEXT NOT NULL,
	status TEXT NOT NULL,
	image_data TEXT,
	results JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_medicine_searches_created_at ON medicine_searches(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_medicine_searches_user ON medicine_searches(user_id);

CREATE TABLE IF NOT EXISTS search_history (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	medicine_search_id TEXT NOT NULL,
	medicine_name TEXT NOT NULL,
	medicine_type TEXT,
	identification_confidence INTEGER NOT NULL DEFAULT 0,
	search_date TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_history_date ON search_history(search_date DESC);
CREATE INDEX IF NOT EXISTS idx_search_history_user ON search_history(user_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
