package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one schema step. Versions are applied in order, each in its
// own transaction, and recorded in schema_version so re-running
// initialization against an existing file is a no-op.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "base tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				user_id    INTEGER PRIMARY KEY,
				username   TEXT,
				first_name TEXT,
				last_name  TEXT,
				last_start TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS events (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id    INTEGER NOT NULL,
				type       TEXT NOT NULL,
				payload    TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_user_time ON events(user_id, created_at)`,
		},
	},
	{
		version: 2,
		name:    "user language code",
		stmts: []string{
			`ALTER TABLE users ADD COLUMN language_code TEXT`,
		},
	},
	{
		version: 3,
		name:    "premium and bot flags",
		stmts: []string{
			`ALTER TABLE users ADD COLUMN is_premium INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE users ADD COLUMN is_bot INTEGER NOT NULL DEFAULT 0`,
		},
	},
	{
		version: 4,
		name:    "events time index",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_events_time ON events(created_at)`,
		},
	},
}

// RunMigrations brings the schema up to the latest version.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
