package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/B0user/woolzy/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs schema migrations, and returns a
// repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; one connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the connection for durability and concurrency.
// WAL with synchronous=NORMAL may lose the last moment of writes on a
// crash but never corrupts the file.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// TouchUser inserts or updates a user's profile. Every touch refreshes the
// display fields with the latest-seen values; last_start changes only on a
// session start.
func (r *SQLiteRepo) TouchUser(ctx context.Context, u *domain.User, sessionStart bool) error {
	if u == nil {
		return errors.New("nil user")
	}

	if sessionStart {
		now := time.Now().UTC()
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO users (user_id, username, first_name, last_name, language_code, is_premium, is_bot, last_start)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				username      = excluded.username,
				first_name    = excluded.first_name,
				last_name     = excluded.last_name,
				language_code = excluded.language_code,
				is_premium    = excluded.is_premium,
				is_bot        = excluded.is_bot,
				last_start    = excluded.last_start`,
			u.ID, u.Username, u.FirstName, u.LastName, u.LanguageCode,
			boolToInt(u.IsPremium), boolToInt(u.IsBot), domain.FormatTime(now),
		)
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name, language_code, is_premium, is_bot, last_start)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(user_id) DO UPDATE SET
			username      = excluded.username,
			first_name    = excluded.first_name,
			last_name     = excluded.last_name,
			language_code = excluded.language_code,
			is_premium    = excluded.is_premium,
			is_bot        = excluded.is_bot`,
		u.ID, u.Username, u.FirstName, u.LastName, u.LanguageCode,
		boolToInt(u.IsPremium), boolToInt(u.IsBot),
	)
	return err
}

// GetUser returns a user's profile by ID or sql.ErrNoRows when absent.
func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, IFNULL(username,''), IFNULL(first_name,''), IFNULL(last_name,''),
		       IFNULL(language_code,''), IFNULL(is_premium,0), IFNULL(is_bot,0), last_start
		FROM users
		WHERE user_id = ?`,
		id,
	)

	var (
		u          domain.User
		premiumInt int
		botInt     int
		lastStart  sql.NullString
	)
	if err := row.Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName,
		&u.LanguageCode, &premiumInt, &botInt, &lastStart,
	); err != nil {
		return nil, err
	}
	u.IsPremium = premiumInt != 0
	u.IsBot = botInt != 0
	u.LastStart = fromNullTime(lastStart)
	return &u, nil
}

// AppendEvent writes one immutable audit row stamped with the current UTC
// time.
func (r *SQLiteRepo) AppendEvent(ctx context.Context, userID int64, kind, payload string) error {
	if kind == "" {
		return errors.New("empty event kind")
	}
	var p sql.NullString
	if payload != "" {
		p = sql.NullString{String: payload, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (user_id, type, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, kind, p, domain.FormatTime(time.Now()),
	)
	return err
}

// CountEvents counts events of a kind within the optional filters.
func (r *SQLiteRepo) CountEvents(ctx context.Context, kind, payload string, since *time.Time) (int64, error) {
	q := `SELECT COUNT(*) FROM events WHERE type = ?`
	args := []any{kind}
	if payload != "" {
		q += ` AND payload = ?`
		args = append(args, payload)
	}
	if since != nil {
		q += ` AND created_at >= ?`
		args = append(args, domain.FormatTime(*since))
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// RecentEvents returns up to limit events at-or-after since, newest first
// (ties broken by insertion order), joined with the owner's profile.
func (r *SQLiteRepo) RecentEvents(ctx context.Context, since *time.Time, limit int) ([]domain.EventView, error) {
	q := `
		SELECT e.created_at, e.user_id, e.type, IFNULL(e.payload, ''),
		       IFNULL(u.first_name,''), IFNULL(u.last_name,''), IFNULL(u.username,''),
		       IFNULL(u.language_code,''), IFNULL(u.is_premium,0), IFNULL(u.is_bot,0)
		FROM events e
		LEFT JOIN users u ON u.user_id = e.user_id`
	var args []any
	if since != nil {
		q += ` WHERE e.created_at >= ?`
		args = append(args, domain.FormatTime(*since))
	}
	q += ` ORDER BY e.created_at DESC, e.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.EventView
	for rows.Next() {
		var (
			v          domain.EventView
			createdAt  string
			premiumInt int
			botInt     int
		)
		if err := rows.Scan(
			&createdAt, &v.UserID, &v.Kind, &v.Payload,
			&v.FirstName, &v.LastName, &v.Username,
			&v.LanguageCode, &premiumInt, &botInt,
		); err != nil {
			return nil, err
		}
		t, err := domain.ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("event %d/%s: bad timestamp %q: %w", v.UserID, v.Kind, createdAt, err)
		}
		v.CreatedAt = t
		v.IsPremium = premiumInt != 0
		v.IsBot = botInt != 0
		res = append(res, v)
	}
	return res, rows.Err()
}

// ListUsersByActivity returns up to limit users ordered by their most
// recent event, newest first. SQLite sorts NULL last under DESC, so users
// with no events end up at the bottom.
func (r *SQLiteRepo) ListUsersByActivity(ctx context.Context, limit int) ([]domain.UserActivity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.user_id, IFNULL(u.first_name,''), IFNULL(u.last_name,''), IFNULL(u.username,''),
		       IFNULL(u.language_code,''), IFNULL(u.is_premium,0), IFNULL(u.is_bot,0),
		       MAX(e.created_at) AS last_seen
		FROM users u
		LEFT JOIN events e ON e.user_id = u.user_id
		GROUP BY u.user_id
		ORDER BY last_seen DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.UserActivity
	for rows.Next() {
		var (
			a          domain.UserActivity
			premiumInt int
			botInt     int
			lastSeen   sql.NullString
		)
		if err := rows.Scan(
			&a.UserID, &a.FirstName, &a.LastName, &a.Username,
			&a.LanguageCode, &premiumInt, &botInt, &lastSeen,
		); err != nil {
			return nil, err
		}
		a.IsPremium = premiumInt != 0
		a.IsBot = botInt != 0
		a.LastSeen = fromNullTime(lastSeen)
		res = append(res, a)
	}
	return res, rows.Err()
}

// ResetEvents deletes all events. A single DELETE is atomic in SQLite, and
// running it against an empty table is a no-op.
func (r *SQLiteRepo) ResetEvents(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events`)
	return err
}
