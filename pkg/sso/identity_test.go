package sso

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
)

func TestIdentityStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("lookup after link returns uid", func(t *testing.T) {
		t.Parallel()
		store := NewIdentityStore(kvstore.NewMemory())

		for _, tc := range []struct {
			id  string
			uid int64
		}{{"999", 1}, {"1", 42}, {"123456789", 7}} {
			require.NoError(t, store.Link(ctx, tc.id, tc.uid))
			uid, ok, err := store.Lookup(ctx, tc.id)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tc.uid, uid)
		}
	})

	t.Run("unlinked id is none", func(t *testing.T) {
		t.Parallel()
		store := NewIdentityStore(kvstore.NewMemory())

		uid, ok, err := store.Lookup(ctx, "404")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, uid)
	})

	t.Run("link overwrites", func(t *testing.T) {
		t.Parallel()
		store := NewIdentityStore(kvstore.NewMemory())

		require.NoError(t, store.Link(ctx, "999", 1))
		require.NoError(t, store.Link(ctx, "999", 2))

		uid, _, err := store.Lookup(ctx, "999")
		require.NoError(t, err)
		assert.Equal(t, int64(2), uid)
	})

	t.Run("unlink is idempotent", func(t *testing.T) {
		t.Parallel()
		store := NewIdentityStore(kvstore.NewMemory())

		require.NoError(t, store.Link(ctx, "999", 1))
		require.NoError(t, store.Unlink(ctx, "999"))
		require.NoError(t, store.Unlink(ctx, "999"))

		_, ok, err := store.Lookup(ctx, "999")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("uses the vkontakteid:uid object", func(t *testing.T) {
		t.Parallel()
		kv := kvstore.NewMemory()
		store := NewIdentityStore(kv)

		require.NoError(t, store.Link(ctx, "999", 3))
		raw, err := kv.GetObjectField(ctx, "vkontakteid:uid", "999")
		require.NoError(t, err)
		assert.Equal(t, "3", raw)
	})

	t.Run("corrupt value is a storage error", func(t *testing.T) {
		t.Parallel()
		kv := kvstore.NewMemory()
		require.NoError(t, kv.SetObjectField(ctx, identityKey, "999", "abc"))

		_, _, err := NewIdentityStore(kv).Lookup(ctx, "999")
		assert.ErrorIs(t, err, ErrStorage)
	})

	t.Run("backend failures are storage errors", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection reset")
		store := NewIdentityStore(failingKV{err: boom})

		_, _, err := store.Lookup(ctx, "1")
		assert.ErrorIs(t, err, ErrStorage)
		assert.ErrorIs(t, err, boom)

		var se *StorageError
		require.ErrorAs(t, store.Link(ctx, "1", 1), &se)
		assert.Equal(t, "link identity", se.Op)

		assert.ErrorIs(t, store.Unlink(ctx, "1"), ErrStorage)
	})
}
