package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
)

// stateStore keeps single-use OAuth state tokens with their expiry.
type stateStore struct {
	kv  kvstore.Store
	now func() time.Time
}

func (s *stateStore) issue(ctx context.Context, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	if err := s.prune(ctx); err != nil {
		return "", err
	}

	expiresAt := s.now().Add(ttl).UnixMilli()
	if err := s.kv.SetObjectField(ctx, stateKey, state, strconv.FormatInt(expiresAt, 10)); err != nil {
		return "", storageErr("store state", err)
	}
	return state, nil
}

// consume removes state and checks its expiry. A state can succeed only once.
func (s *stateStore) consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidState
	}

	raw, err := s.kv.PopObjectField(ctx, stateKey, state)
	if errors.Is(err, kvstore.ErrNotFound) {
		return ErrInvalidState
	}
	if err != nil {
		return storageErr("consume state", err)
	}

	expiresAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || s.now().UnixMilli() > expiresAt {
		return ErrInvalidState
	}
	return nil
}

// prune drops expired and unreadable states left by abandoned logins.
func (s *stateStore) prune(ctx context.Context) error {
	states, err := s.kv.GetObject(ctx, stateKey)
	if err != nil {
		return storageErr("read states", err)
	}

	now := s.now().UnixMilli()
	for state, raw := range states {
		expiresAt, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && now <= expiresAt {
			continue
		}
		if err := s.kv.DeleteObjectField(ctx, stateKey, state); err != nil {
			return storageErr("prune state", err)
		}
	}
	return nil
}
