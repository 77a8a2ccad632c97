// Package pgstore implements kvstore.Store on PostgreSQL through a pgx pool.
package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
)

// Ensure Store implements kvstore.Store.
var _ kvstore.Store = (*Store)(nil)

// Store is a kvstore.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps pool. The schema must have been created with Migrate.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetObjectField(ctx context.Context, key, field string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey
	}

	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv_hash WHERE key = $1 AND field = $2`, key, field,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", kvstore.ErrNotFound
	}
	return value, err
}

func (s *Store) GetObject(ctx context.Context, key string) (map[string]string, error) {
	if key == "" {
		return nil, kvstore.ErrEmptyKey
	}

	rows, err := s.pool.Query(ctx, `SELECT field, value FROM kv_hash WHERE key = $1`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
INSERT INTO kv_hash (key, field, value) VALUES ($1, $2, $3)
ON CONFLICT (key, field) DO UPDATE SET value = EXCLUDED.value`

func (s *Store) SetObjectField(ctx context.Context, key, field, value string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.pool.Exec(ctx, upsertField, key, field, value)
	return err
}

func (s *Store) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	if len(fields) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for field, value := range fields {
			batch.Queue(upsertField, key, field, value)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *Store) DeleteObjectField(ctx context.Context, key, field string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_hash WHERE key = $1 AND field = $2`, key, field)
	return err
}

func (s *Store) PopObjectField(ctx context.Context, key, field string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey
	}

	var value string
	err := s.pool.QueryRow(ctx,
		`DELETE FROM kv_hash WHERE key = $1 AND field = $2 RETURNING value`, key, field,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", kvstore.ErrNotFound
	}
	return value, err
}

func (s *Store) IncrObjectField(ctx context.Context, key, field string) (int64, error) {
	if key == "" {
		return 0, kvstore.ErrEmptyKey
	}

	var n int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO kv_hash (key, field, value) VALUES ($1, $2, '1')
ON CONFLICT (key, field) DO UPDATE SET value = ((kv_hash.value)::bigint + 1)::text
RETURNING value::bigint`, key, field).Scan(&n)
	if isInvalidTextRepresentation(err) {
		return 0, errors.Join(kvstore.ErrNotInteger, err)
	}
	return n, err
}

func (s *Store) SortedSetAdd(ctx context.Context, set string, score float64, member string) error {
	if set == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO kv_zset (key, member, score) VALUES ($1, $2, $3)
ON CONFLICT (key, member) DO UPDATE SET score = EXCLUDED.score`, set, member, score)
	return err
}

func (s *Store) SortedSetRemove(ctx context.Context, set, member string) error {
	if set == "" {
		return kvstore.ErrEmptyKey
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_zset WHERE key = $1 AND member = $2`, set, member)
	return err
}

func (s *Store) IsSortedSetMember(ctx context.Context, set, member string) (bool, error) {
	if set == "" {
		return false, kvstore.ErrEmptyKey
	}

	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM kv_zset WHERE key = $1 AND member = $2)`, set, member,
	).Scan(&ok)
	return ok, err
}

// Healthcheck pings the pool.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}
