// Package redisstore implements kvstore.Store on top of redis hashes and sorted sets.
// This is the native layout of the host forum database: objects map to HSET keys
// and sorted sets to ZSET keys.
package redisstore

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
)

// Ensure Store implements kvstore.Store.
var _ kvstore.Store = (*Store)(nil)

// Store is a kvstore.Store backed by redis.
type Store struct {
	client redis.UniversalClient
}

// New wraps an established redis client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) GetObjectField(ctx context.Context, key, field string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey
	}
	value, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", kvstore.ErrNotFound
	}
	return value, err
}

func (s *Store) GetObject(ctx context.Context, key string) (map[string]string, error) {
	if key == "" {
		return nil, kvstore.ErrEmptyKey
	}
	return s.client.HGetAll(ctx, key).Result()
}

func (s *Store) SetObjectField(ctx context.Context, key, field, value string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	return s.client.HSet(ctx, key, field, value).Err()
}

func (s *Store) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	if len(fields) == 0 {
		return nil
	}
	return s.client.HSet(ctx, key, fields).Err()
}

func (s *Store) DeleteObjectField(ctx context.Context, key, field string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	return s.client.HDel(ctx, key, field).Err()
}

// PopObjectField reads and deletes the field inside a MULTI/EXEC block.
func (s *Store) PopObjectField(ctx context.Context, key, field string) (string, error) {
	if key == "" {
		return "", kvstore.ErrEmptyKey
	}

	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, key, field)
		pipe.HDel(ctx, key, field)
		return nil
	})
	if get != nil && errors.Is(get.Err(), redis.Nil) {
		return "", kvstore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return get.Val(), nil
}

func (s *Store) IncrObjectField(ctx context.Context, key, field string) (int64, error) {
	if key == "" {
		return 0, kvstore.ErrEmptyKey
	}
	n, err := s.client.HIncrBy(ctx, key, field, 1).Result()
	if err != nil && strings.Contains(err.Error(), "not an integer") {
		return 0, errors.Join(kvstore.ErrNotInteger, err)
	}
	return n, err
}

func (s *Store) SortedSetAdd(ctx context.Context, set string, score float64, member string) error {
	if set == "" {
		return kvstore.ErrEmptyKey
	}
	return s.client.ZAdd(ctx, set, redis.Z{Score: score, Member: member}).Err()
}

func (s *Store) SortedSetRemove(ctx context.Context, set, member string) error {
	if set == "" {
		return kvstore.ErrEmptyKey
	}
	return s.client.ZRem(ctx, set, member).Err()
}

func (s *Store) IsSortedSetMember(ctx context.Context, set, member string) (bool, error) {
	if set == "" {
		return false, kvstore.ErrEmptyKey
	}
	err := s.client.ZScore(ctx, set, member).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Healthcheck pings the server.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}
