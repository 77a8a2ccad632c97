// Package sqlitestore implements kvstore.Store on an embedded SQLite file
// using the pure-Go modernc.org/sqlite driver.
//
// The database handle is limited to a single connection: SQLite serialises
// writers anyway, and this makes read-modify-write operations such as
// IncrObjectField atomic without extra locking.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
	"github.com/dmitrymomot/ssovk/pkg/kvstore/internal/sqlmigrate"
	"github.com/dmitrymomot/ssovk/pkg/kvstore/sqlitestore/migrations"
)

// ErrEmptyPath is returned by Open when no database path is configured.
var ErrEmptyPath = errors.New("sqlitestore: storage path is required")

// Ensure Store implements kvstore.Store.
var _ kvstore.Store = (*Store)(nil)

// Store is a kvstore.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database file, applies the bundled migrations and returns a ready store.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, ErrEmptyPath
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		filepath.Clean(cfg.Path), cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlmigrate.Up(ctx, db, "sqlite3", migrations.FS, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetObjectField(ctx context.Context, key, field string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_hash WHERE key = ? AND field = ?`, key, field,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", kvstore.ErrNotFound
	}
	return value, err
}

func (s *Store) GetObject(ctx context.Context, key string) (map[string]string, error) {
	if key == "" {
		return nil, kvstore.ErrEmptyKey
	}

	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM kv_hash WHERE key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		result[field] = value
	}
	return result, rows.Err()
}

const upsertField = `
INSERT INTO kv_hash (key, field, value) VALUES (?, ?, ?)
ON CONFLICT (key, field) DO UPDATE SET value = excluded.value`

func (s *Store) SetObjectField(ctx context.Context, key, field, value string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, upsertField, key, field, value)
	return err
}

func (s *Store) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	if len(fields) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for field, value := range fields {
			if _, err := tx.ExecContext(ctx, upsertField, key, field, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteObjectField(ctx context.Context, key, field string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_hash WHERE key = ? AND field = ?`, key, field)
	return err
}

func (s *Store) PopObjectField(ctx context.Context, key, field string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM kv_hash WHERE key = ? AND field = ? RETURNING value`, key, field,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", kvstore.ErrNotFound
	}
	return value, err
}

func (s *Store) IncrObjectField(ctx context.Context, key, field string) (int64, error) {
	if key == "" {
		return 0, kvstore.ErrEmptyKey
	}

	var next int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx,
			`SELECT value FROM kv_hash WHERE key = ? AND field = ?`, key, field,
		).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			next = 1
		case err != nil:
			return err
		default:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return kvstore.ErrNotInteger
			}
			next = n + 1
		}

		_, err = tx.ExecContext(ctx, upsertField, key, field, strconv.FormatInt(next, 10))
		return err
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) SortedSetAdd(ctx context.Context, set string, score float64, member string) error {
	if set == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_zset (key, member, score) VALUES (?, ?, ?)
ON CONFLICT (key, member) DO UPDATE SET score = excluded.score`, set, member, score)
	return err
}

func (s *Store) SortedSetRemove(ctx context.Context, set, member string) error {
	if set == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_zset WHERE key = ? AND member = ?`, set, member)
	return err
}

func (s *Store) IsSortedSetMember(ctx context.Context, set, member string) (bool, error) {
	if set == "" {
		return false, kvstore.ErrEmptyKey
	}

	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM kv_zset WHERE key = ? AND member = ?)`, set, member,
	).Scan(&ok)
	return ok, err
}

// Healthcheck pings the database.
func (s *Store) Healthcheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
