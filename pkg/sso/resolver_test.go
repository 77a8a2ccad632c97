package sso

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
	"github.com/dmitrymomot/ssovk/pkg/userdir"
)

type resolverFixture struct {
	kv         *kvstore.MemoryStore
	users      *userdir.KVDirectory
	identities IdentityStore
	resolver   *Resolver
}

func newResolverFixture(t *testing.T, autoconfirm bool) *resolverFixture {
	t.Helper()
	kv := kvstore.NewMemory()
	f := &resolverFixture{
		kv:         kv,
		users:      userdir.NewKV(kv),
		identities: NewIdentityStore(kv),
	}
	f.resolver = NewResolver(f.identities, f.users, kv, staticSettings{AutoConfirm: autoconfirm})
	return f
}

func (f *resolverFixture) createUsers(t *testing.T, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := f.users.Create(context.Background(), userdir.CreateParams{
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
		})
		require.NoError(t, err)
	}
}

func (f *resolverFixture) field(t *testing.T, uid int64, name string) string {
	t.Helper()
	v, err := f.users.GetUserField(context.Background(), uid, name)
	require.NoError(t, err)
	return v
}

func (f *resolverFixture) pending(t *testing.T, uid int64) bool {
	t.Helper()
	ok, err := f.kv.IsSortedSetMember(context.Background(), userdir.PendingValidationSet, formatUID(uid))
	require.NoError(t, err)
	return ok
}

func (f *resolverFixture) userCount(t *testing.T) string {
	t.Helper()
	v, err := f.kv.GetObjectField(context.Background(), "global", "nextUid")
	if errors.Is(err, kvstore.ErrNotFound) {
		return "0"
	}
	require.NoError(t, err)
	return v
}

func TestResolver_ResolveLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates confirmed account when autoconfirm is on", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, true)

		res, err := f.resolver.ResolveLogin(ctx, ExternalProfile{
			ProviderUserID: "999",
			DisplayName:    "Ivan Petrov",
			Email:          "a@example.com",
			AvatarURL:      "https://sun.userapi.com/avatar.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, res.Outcome)
		assert.Equal(t, "1", f.userCount(t))

		assert.Equal(t, "a@example.com", f.field(t, res.UID, userdir.FieldEmail))
		assert.Equal(t, "Ivan Petrov", f.field(t, res.UID, userdir.FieldUsername))
		assert.Equal(t, "1", f.field(t, res.UID, userdir.FieldEmailConfirmed))
		assert.False(t, f.pending(t, res.UID))

		uid, ok, err := f.identities.Lookup(ctx, "999")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, res.UID, uid)
		assert.Equal(t, "999", f.field(t, res.UID, BackReferenceField))

		assert.Equal(t, "https://sun.userapi.com/avatar.jpg", f.field(t, res.UID, userdir.FieldPicture))
		assert.Equal(t, "https://sun.userapi.com/avatar.jpg", f.field(t, res.UID, userdir.FieldUploadedPic))
	})

	t.Run("new account stays pending when autoconfirm is off", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, false)

		res, err := f.resolver.ResolveLogin(ctx, ExternalProfile{
			ProviderUserID: "999",
			DisplayName:    "Ivan",
			Email:          "a@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, res.Outcome)
		assert.Empty(t, f.field(t, res.UID, userdir.FieldEmailConfirmed))
		assert.True(t, f.pending(t, res.UID))
		assert.Empty(t, f.field(t, res.UID, userdir.FieldPicture))
	})

	t.Run("merges into account with the same email", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, false)
		f.createUsers(t, 2)
		require.NoError(t, f.users.SetUserField(ctx, 2, userdir.FieldEmailConfirmed, "1"))

		res, err := f.resolver.ResolveLogin(ctx, ExternalProfile{
			ProviderUserID: "555",
			DisplayName:    "Someone Else",
			Email:          "user2@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, Resolution{UID: 2, Outcome: OutcomeMerged}, res)
		assert.Equal(t, "2", f.userCount(t))
		assert.Equal(t, "1", f.field(t, 2, userdir.FieldEmailConfirmed))
		assert.Equal(t, "user2", f.field(t, 2, userdir.FieldUsername))
		assert.Equal(t, "555", f.field(t, 2, BackReferenceField))
	})

	t.Run("merge confirms when autoconfirm is on", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, true)
		f.createUsers(t, 1)
		require.True(t, f.pending(t, 1))

		res, err := f.resolver.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "555", Email: "user1@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.UID)
		assert.Equal(t, "1", f.field(t, 1, userdir.FieldEmailConfirmed))
		assert.False(t, f.pending(t, 1))
	})

	t.Run("linked identity ignores later email changes", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, true)

		first, err := f.resolver.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "999", DisplayName: "Ivan", Email: "a@example.com"})
		require.NoError(t, err)

		second, err := f.resolver.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "999", DisplayName: "Ivan", Email: "b@example.com"})
		require.NoError(t, err)

		assert.Equal(t, first.UID, second.UID)
		assert.Equal(t, OutcomeExisting, second.Outcome)
		assert.Equal(t, "1", f.userCount(t))

		uid, err := f.users.GetUIDByEmail(ctx, "b@example.com")
		require.NoError(t, err)
		assert.Zero(t, uid)
	})

	t.Run("fast path performs no writes", func(t *testing.T) {
		t.Parallel()
		identities := &MockIdentityStore{}
		users := &MockDirectory{}
		pending := &MockPendingQueue{}
		r := NewResolver(identities, users, pending, staticSettings{AutoConfirm: true})

		identities.On("Lookup", mock.Anything, "999").Return(int64(7), true, nil).Once()

		res, err := r.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "999", Email: "changed@example.com", AvatarURL: "https://x/y.jpg"})
		require.NoError(t, err)
		assert.Equal(t, Resolution{UID: 7, Outcome: OutcomeExisting}, res)

		identities.AssertExpectations(t)
		identities.AssertNotCalled(t, "Link", mock.Anything, mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "SetUserField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		pending.AssertNotCalled(t, "SortedSetRemove", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creation failure aborts without link", func(t *testing.T) {
		t.Parallel()
		identities := &MockIdentityStore{}
		users := &MockDirectory{}
		r := NewResolver(identities, users, &MockPendingQueue{}, staticSettings{AutoConfirm: true})

		identities.On("Lookup", mock.Anything, "999").Return(int64(0), false, nil)
		users.On("GetUIDByEmail", mock.Anything, "a@example.com").Return(int64(0), nil)
		users.On("Create", mock.Anything, userdir.CreateParams{Username: "Ivan", Email: "a@example.com"}).
			Return(int64(0), userdir.ErrInvalidUsername)

		_, err := r.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "999", DisplayName: "Ivan", Email: "a@example.com"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuth)
		assert.ErrorIs(t, err, userdir.ErrInvalidUsername)

		var ae *AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "create user", ae.Op)

		identities.AssertNotCalled(t, "Link", mock.Anything, mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "SetUserField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		users.AssertExpectations(t)
	})

	t.Run("lookup failure is auth and storage error", func(t *testing.T) {
		t.Parallel()
		identities := &MockIdentityStore{}
		r := NewResolver(identities, &MockDirectory{}, &MockPendingQueue{}, staticSettings{})

		identities.On("Lookup", mock.Anything, "999").
			Return(int64(0), false, &StorageError{Op: "lookup identity", Err: errors.New("timeout")})

		_, err := r.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "999", Email: "a@example.com"})
		assert.ErrorIs(t, err, ErrAuth)
		assert.ErrorIs(t, err, ErrStorage)
	})

	t.Run("email lookup failure", func(t *testing.T) {
		t.Parallel()
		identities := &MockIdentityStore{}
		users := &MockDirectory{}
		r := NewResolver(identities, users, &MockPendingQueue{}, staticSettings{})

		identities.On("Lookup", mock.Anything, "999").Return(int64(0), false, nil)
		users.On("GetUIDByEmail", mock.Anything, "a@example.com").Return(int64(0), errors.New("db down"))

		_, err := r.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "999", Email: "a@example.com"})
		assert.ErrorIs(t, err, ErrAuth)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("finalize order", func(t *testing.T) {
		t.Parallel()
		identities := &MockIdentityStore{}
		users := &MockDirectory{}
		pending := &MockPendingQueue{}
		r := NewResolver(identities, users, pending, staticSettings{AutoConfirm: true})

		var calls []string
		record := func(name string) func(mock.Arguments) {
			return func(mock.Arguments) { calls = append(calls, name) }
		}

		identities.On("Lookup", mock.Anything, "999").Return(int64(0), false, nil)
		users.On("GetUIDByEmail", mock.Anything, "a@example.com").Return(int64(3), nil)
		users.On("SetUserField", mock.Anything, int64(3), userdir.FieldEmailConfirmed, "1").Run(record("confirm")).Return(nil)
		pending.On("SortedSetRemove", mock.Anything, userdir.PendingValidationSet, "3").Run(record("dequeue")).Return(nil)
		users.On("GetUserField", mock.Anything, int64(3), BackReferenceField).Return("", nil)
		users.On("SetUserField", mock.Anything, int64(3), BackReferenceField, "999").Run(record("backref")).Return(nil)
		identities.On("Link", mock.Anything, "999", int64(3)).Run(record("link")).Return(nil)
		users.On("SetUserField", mock.Anything, int64(3), userdir.FieldUploadedPic, "https://x/a.jpg").Run(record("uploadedpicture")).Return(nil)
		users.On("SetUserField", mock.Anything, int64(3), userdir.FieldPicture, "https://x/a.jpg").Run(record("picture")).Return(nil)

		res, err := r.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "999", Email: "a@example.com", AvatarURL: "https://x/a.jpg"})
		require.NoError(t, err)
		assert.Equal(t, Resolution{UID: 3, Outcome: OutcomeMerged}, res)
		assert.Equal(t, []string{"confirm", "dequeue", "backref", "link", "uploadedpicture", "picture"}, calls)

		identities.AssertExpectations(t)
		users.AssertExpectations(t)
		pending.AssertExpectations(t)
	})

	t.Run("merge releases the previous link of the account", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, false)
		f.createUsers(t, 1)

		_, err := f.resolver.LinkSession(ctx, 1, "111")
		require.NoError(t, err)

		res, err := f.resolver.ResolveLogin(ctx, ExternalProfile{ProviderUserID: "222", Email: "user1@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.UID)

		_, ok, err := f.identities.Lookup(ctx, "111")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "222", f.field(t, 1, BackReferenceField))
	})

	t.Run("missing provider id", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(&MockIdentityStore{}, &MockDirectory{}, &MockPendingQueue{}, staticSettings{})

		_, err := r.ResolveLogin(ctx, ExternalProfile{Email: "a@example.com"})
		assert.ErrorIs(t, err, ErrAuth)
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})
}

func TestResolver_LinkSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("links the session user directly", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, true)
		f.createUsers(t, 5)

		res, err := f.resolver.LinkSession(ctx, 5, "888")
		require.NoError(t, err)
		assert.Equal(t, Resolution{UID: 5, Outcome: OutcomeSessionLinked}, res)

		uid, ok, err := f.identities.Lookup(ctx, "888")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(5), uid)
		assert.Equal(t, "888", f.field(t, 5, BackReferenceField))

		assert.Empty(t, f.field(t, 5, userdir.FieldEmailConfirmed))
		assert.True(t, f.pending(t, 5))
		assert.Empty(t, f.field(t, 5, userdir.FieldPicture))
		assert.Equal(t, "5", f.userCount(t))
	})

	t.Run("never touches email or account creation", func(t *testing.T) {
		t.Parallel()
		identities := &MockIdentityStore{}
		users := &MockDirectory{}
		pending := &MockPendingQueue{}
		r := NewResolver(identities, users, pending, staticSettings{AutoConfirm: true})

		identities.On("Lookup", mock.Anything, "888").Return(int64(0), false, nil)
		users.On("GetUserField", mock.Anything, int64(5), BackReferenceField).Return("", nil)
		users.On("SetUserField", mock.Anything, int64(5), BackReferenceField, "888").Return(nil).Once()
		identities.On("Link", mock.Anything, "888", int64(5)).Return(nil).Once()

		_, err := r.LinkSession(ctx, 5, "888")
		require.NoError(t, err)

		identities.AssertExpectations(t)
		users.AssertExpectations(t)
		users.AssertNotCalled(t, "GetUIDByEmail", mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		pending.AssertNotCalled(t, "SortedSetRemove", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("moves identity from another user", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, false)
		f.createUsers(t, 5)

		_, err := f.resolver.LinkSession(ctx, 2, "888")
		require.NoError(t, err)
		_, err = f.resolver.LinkSession(ctx, 5, "888")
		require.NoError(t, err)

		uid, _, err := f.identities.Lookup(ctx, "888")
		require.NoError(t, err)
		assert.Equal(t, int64(5), uid)
		assert.Empty(t, f.field(t, 2, BackReferenceField))
		assert.Equal(t, "888", f.field(t, 5, BackReferenceField))
	})

	t.Run("replaces the user's previous identity", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, false)
		f.createUsers(t, 5)

		_, err := f.resolver.LinkSession(ctx, 5, "777")
		require.NoError(t, err)
		_, err = f.resolver.LinkSession(ctx, 5, "888")
		require.NoError(t, err)

		_, ok, err := f.identities.Lookup(ctx, "777")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "888", f.field(t, 5, BackReferenceField))
	})

	t.Run("relinking the same identity is stable", func(t *testing.T) {
		t.Parallel()
		f := newResolverFixture(t, false)
		f.createUsers(t, 5)

		for range 2 {
			_, err := f.resolver.LinkSession(ctx, 5, "888")
			require.NoError(t, err)
		}
		uid, ok, err := f.identities.Lookup(ctx, "888")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(5), uid)
	})

	t.Run("write failure is an auth error", func(t *testing.T) {
		t.Parallel()
		identities := &MockIdentityStore{}
		users := &MockDirectory{}
		r := NewResolver(identities, users, &MockPendingQueue{}, staticSettings{})

		identities.On("Lookup", mock.Anything, "888").Return(int64(0), false, nil)
		users.On("GetUserField", mock.Anything, int64(5), BackReferenceField).Return("", nil)
		users.On("SetUserField", mock.Anything, int64(5), BackReferenceField, "888").Return(errors.New("readonly"))

		_, err := r.LinkSession(ctx, 5, "888")
		assert.ErrorIs(t, err, ErrAuth)
		assert.ErrorIs(t, err, ErrStorage)
		identities.AssertNotCalled(t, "Link", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(&MockIdentityStore{}, &MockDirectory{}, &MockPendingQueue{}, staticSettings{})

		_, err := r.LinkSession(ctx, 0, "888")
		assert.ErrorIs(t, err, ErrInvalidProfile)
		_, err = r.LinkSession(ctx, 5, "")
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})
}
