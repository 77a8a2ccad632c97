package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
	"github.com/dmitrymomot/ssovk/pkg/kvstore/kvstoretest"
)

func TestMemoryStore_Conformance(t *testing.T) {
	t.Parallel()

	kvstoretest.Run(t, func(*testing.T) kvstore.Store {
		return kvstore.NewMemory()
	})
}

func TestMemoryStore_GetObjectReturnsCopy(t *testing.T) {
	t.Parallel()

	s := kvstore.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SetObjectField(ctx, "user:1", "username", "alice"))

	obj, err := s.GetObject(ctx, "user:1")
	require.NoError(t, err)
	obj["username"] = "mallory"

	got, err := s.GetObjectField(ctx, "user:1", "username")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestMemoryStore_IncrRejectsNonInteger(t *testing.T) {
	t.Parallel()

	s := kvstore.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SetObjectField(ctx, "global", "nextUid", "abc"))

	_, err := s.IncrObjectField(ctx, "global", "nextUid")
	assert.ErrorIs(t, err, kvstore.ErrNotInteger)
}
