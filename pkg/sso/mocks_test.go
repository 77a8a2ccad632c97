package sso

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
	"github.com/dmitrymomot/ssovk/pkg/userdir"
)

// MockIdentityStore is a mock implementation of IdentityStore.
type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) Lookup(ctx context.Context, providerUserID string) (int64, bool, error) {
	args := m.Called(ctx, providerUserID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockIdentityStore) Link(ctx context.Context, providerUserID string, uid int64) error {
	args := m.Called(ctx, providerUserID, uid)
	return args.Error(0)
}

func (m *MockIdentityStore) Unlink(ctx context.Context, providerUserID string) error {
	args := m.Called(ctx, providerUserID)
	return args.Error(0)
}

// MockDirectory is a mock implementation of userdir.Directory.
type MockDirectory struct {
	mock.Mock
}

var _ userdir.Directory = (*MockDirectory)(nil)

func (m *MockDirectory) GetUserField(ctx context.Context, uid int64, field string) (string, error) {
	args := m.Called(ctx, uid, field)
	return args.String(0), args.Error(1)
}

func (m *MockDirectory) SetUserField(ctx context.Context, uid int64, field, value string) error {
	args := m.Called(ctx, uid, field, value)
	return args.Error(0)
}

func (m *MockDirectory) DeleteUserField(ctx context.Context, uid int64, field string) error {
	args := m.Called(ctx, uid, field)
	return args.Error(0)
}

func (m *MockDirectory) GetUIDByEmail(ctx context.Context, email string) (int64, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDirectory) Create(ctx context.Context, params userdir.CreateParams) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

// MockPendingQueue is a mock implementation of PendingQueue.
type MockPendingQueue struct {
	mock.Mock
}

func (m *MockPendingQueue) SortedSetRemove(ctx context.Context, set, member string) error {
	args := m.Called(ctx, set, member)
	return args.Error(0)
}

// MockProviderAdapter is a mock implementation of ProviderAdapter.
type MockProviderAdapter struct {
	mock.Mock
}

func (m *MockProviderAdapter) ProviderID() string {
	return ProviderName
}

func (m *MockProviderAdapter) AuthURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockProviderAdapter) ResolveProfile(ctx context.Context, code string) (ExternalProfile, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(ExternalProfile), args.Error(1)
}

// MockSettingsStore is a mock implementation of SettingsStore.
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Get(ctx context.Context, namespace string) (map[string]string, error) {
	args := m.Called(ctx, namespace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockSettingsStore) Set(ctx context.Context, namespace string, values map[string]string) error {
	args := m.Called(ctx, namespace, values)
	return args.Error(0)
}

// staticSettings is a fixed SettingsProvider.
type staticSettings ProviderSettings

func (s staticSettings) Current() ProviderSettings { return ProviderSettings(s) }

// failingKV fails every call that reaches the embedded nil Store.
type failingKV struct {
	kvstore.Store
	err error
}

func (f failingKV) GetObjectField(context.Context, string, string) (string, error) {
	return "", f.err
}

func (f failingKV) SetObjectField(context.Context, string, string, string) error {
	return f.err
}

func (f failingKV) DeleteObjectField(context.Context, string, string) error {
	return f.err
}

func (f failingKV) PopObjectField(context.Context, string, string) (string, error) {
	return "", f.err
}
