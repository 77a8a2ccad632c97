package sso

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
)

// IdentityStore persists the provider user id to local uid mapping.
// It enforces no uniqueness beyond last write wins. Callers keep the
// user-side back-reference consistent.
type IdentityStore interface {
	// Lookup returns the uid linked to providerUserID.
	// The bool is false when the id is not linked.
	Lookup(ctx context.Context, providerUserID string) (int64, bool, error)

	// Link upserts the mapping, replacing any previous uid.
	Link(ctx context.Context, providerUserID string, uid int64) error

	// Unlink removes the mapping. Missing mappings are not an error.
	Unlink(ctx context.Context, providerUserID string) error
}

// Ensure kvIdentityStore implements IdentityStore.
var _ IdentityStore = (*kvIdentityStore)(nil)

type kvIdentityStore struct {
	kv kvstore.Store
}

// NewIdentityStore returns an IdentityStore keeping the mapping in kv.
func NewIdentityStore(kv kvstore.Store) IdentityStore {
	return &kvIdentityStore{kv: kv}
}

func (s *kvIdentityStore) Lookup(ctx context.Context, providerUserID string) (int64, bool, error) {
	raw, err := s.kv.GetObjectField(ctx, identityKey, providerUserID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageErr("lookup identity", err)
	}

	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || uid <= 0 {
		return 0, false, storageErr("lookup identity", fmt.Errorf("corrupt uid %q for %s", raw, providerUserID))
	}
	return uid, true, nil
}

func (s *kvIdentityStore) Link(ctx context.Context, providerUserID string, uid int64) error {
	if err := s.kv.SetObjectField(ctx, identityKey, providerUserID, formatUID(uid)); err != nil {
		return storageErr("link identity", err)
	}
	return nil
}

func (s *kvIdentityStore) Unlink(ctx context.Context, providerUserID string) error {
	if err := s.kv.DeleteObjectField(ctx, identityKey, providerUserID); err != nil {
		return storageErr("unlink identity", err)
	}
	return nil
}
