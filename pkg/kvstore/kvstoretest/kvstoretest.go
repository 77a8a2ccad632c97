// Package kvstoretest provides a conformance suite shared by every kvstore backend.
package kvstoretest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
)

// Run executes the conformance suite against the store returned by newStore.
// Keys are namespaced per subtest so the suite is safe to run against a shared database.
func Run(t *testing.T, newStore func(t *testing.T) kvstore.Store) {
	t.Helper()

	t.Run("get missing field returns ErrNotFound", func(t *testing.T) {
		s := newStore(t)
		key := keyFor(t, "obj")

		_, err := s.GetObjectField(context.Background(), key, "missing")
		assert.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("set then get field", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "obj")

		require.NoError(t, s.SetObjectField(ctx, key, "999", "42"))

		got, err := s.GetObjectField(ctx, key, "999")
		require.NoError(t, err)
		assert.Equal(t, "42", got)
	})

	t.Run("set field overwrites previous value", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "obj")

		require.NoError(t, s.SetObjectField(ctx, key, "f", "one"))
		require.NoError(t, s.SetObjectField(ctx, key, "f", "two"))

		got, err := s.GetObjectField(ctx, key, "f")
		require.NoError(t, err)
		assert.Equal(t, "two", got)
	})

	t.Run("fields with colons and dots are stored verbatim", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "obj")

		require.NoError(t, s.SetObjectField(ctx, key, "email:confirmed", "1"))
		require.NoError(t, s.SetObjectField(ctx, key, "a.b@example.com", "7"))

		got, err := s.GetObjectField(ctx, key, "email:confirmed")
		require.NoError(t, err)
		assert.Equal(t, "1", got)

		got, err = s.GetObjectField(ctx, key, "a.b@example.com")
		require.NoError(t, err)
		assert.Equal(t, "7", got)
	})

	t.Run("set object and get object", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "obj")

		require.NoError(t, s.SetObject(ctx, key, map[string]string{"id": "client", "secret": "s3cr3t"}))
		require.NoError(t, s.SetObject(ctx, key, map[string]string{"autoconfirm": "on"}))

		got, err := s.GetObject(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"id": "client", "secret": "s3cr3t", "autoconfirm": "on"}, got)
	})

	t.Run("get missing object returns empty map", func(t *testing.T) {
		s := newStore(t)

		got, err := s.GetObject(context.Background(), keyFor(t, "nothing"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete field is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "obj")

		require.NoError(t, s.SetObjectField(ctx, key, "f", "v"))
		require.NoError(t, s.DeleteObjectField(ctx, key, "f"))
		require.NoError(t, s.DeleteObjectField(ctx, key, "f"))

		_, err := s.GetObjectField(ctx, key, "f")
		assert.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("delete field keeps sibling fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "obj")

		require.NoError(t, s.SetObject(ctx, key, map[string]string{"a": "1", "b": "2"}))
		require.NoError(t, s.DeleteObjectField(ctx, key, "a"))

		got, err := s.GetObject(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"b": "2"}, got)
	})

	t.Run("pop field returns value once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "state")

		require.NoError(t, s.SetObjectField(ctx, key, "token", "123"))

		got, err := s.PopObjectField(ctx, key, "token")
		require.NoError(t, err)
		assert.Equal(t, "123", got)

		_, err = s.PopObjectField(ctx, key, "token")
		assert.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("concurrent pops yield a single winner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "state")

		require.NoError(t, s.SetObjectField(ctx, key, "token", "v"))

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.PopObjectField(ctx, key, "token"); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
	})

	t.Run("incr starts at one and counts up", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := keyFor(t, "global")

		n, err := s.IncrObjectField(ctx, key, "nextUid")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.IncrObjectField(ctx, key, "nextUid")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		raw, err := s.GetObjectField(ctx, key, "nextUid")
		require.NoError(t, err)
		assert.Equal(t, "2", raw)
	})

	t.Run("sorted set add, check and remove", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		set := keyFor(t, "users:notvalidated")

		ok, err := s.IsSortedSetMember(ctx, set, "5")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.SortedSetAdd(ctx, set, float64(time.Now().UnixMilli()), "5"))
		require.NoError(t, s.SortedSetAdd(ctx, set, 1, "6"))

		ok, err = s.IsSortedSetMember(ctx, set, "5")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, s.SortedSetRemove(ctx, set, "5"))
		require.NoError(t, s.SortedSetRemove(ctx, set, "5"))

		ok, err = s.IsSortedSetMember(ctx, set, "5")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.IsSortedSetMember(ctx, set, "6")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		s := newStore(t)

		err := s.SetObjectField(context.Background(), "", "f", "v")
		assert.ErrorIs(t, err, kvstore.ErrEmptyKey)
	})
}

// keyFor builds a key unique to the running subtest.
func keyFor(t *testing.T, suffix string) string {
	name := strings.NewReplacer("/", ":", " ", "_").Replace(t.Name())
	return fmt.Sprintf("test:%s:%d:%s", name, time.Now().UnixNano(), suffix)
}
