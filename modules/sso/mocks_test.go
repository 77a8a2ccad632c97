package sso_test

import (
	"context"
	"net/http"
	"slices"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/ssovk/modules/sso"
	"github.com/dmitrymomot/ssovk/pkg/hostsession"
	vksso "github.com/dmitrymomot/ssovk/pkg/sso"
)

// MockAuthService is a mock implementation of sso.AuthService.
type MockAuthService struct {
	mock.Mock
}

var _ sso.AuthService = (*MockAuthService)(nil)

func (m *MockAuthService) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockAuthService) Strategies() []vksso.Strategy {
	return m.Called().Get(0).([]vksso.Strategy)
}

func (m *MockAuthService) AuthURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Callback(ctx context.Context, req vksso.CallbackRequest, hook vksso.LoginHook) (vksso.Resolution, error) {
	args := m.Called(ctx, req, hook)
	return args.Get(0).(vksso.Resolution), args.Error(1)
}

// MockAssociationService is a mock implementation of sso.AssociationService.
type MockAssociationService struct {
	mock.Mock
}

var _ sso.AssociationService = (*MockAssociationService)(nil)

func (m *MockAssociationService) Status(ctx context.Context, uid int64) (vksso.Association, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(vksso.Association), args.Error(1)
}

func (m *MockAssociationService) Unlink(ctx context.Context, uid int64) error {
	return m.Called(ctx, uid).Error(0)
}

// MockSettingsService is a mock implementation of sso.SettingsService.
type MockSettingsService struct {
	mock.Mock
}

var _ sso.SettingsService = (*MockSettingsService)(nil)

func (m *MockSettingsService) Current() vksso.ProviderSettings {
	return m.Called().Get(0).(vksso.ProviderSettings)
}

func (m *MockSettingsService) Save(ctx context.Context, p vksso.ProviderSettings) error {
	return m.Called(ctx, p).Error(0)
}

// fakeSessions authenticates every request as uid.
type fakeSessions struct {
	uid    int64
	admins []int64
}

var _ sso.SessionManager = (*fakeSessions)(nil)

func (f *fakeSessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.uid > 0 {
			r = r.WithContext(hostsession.WithUID(r.Context(), f.uid))
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeSessions) LoginHook(http.ResponseWriter) func(ctx context.Context, uid int64) error {
	return func(context.Context, int64) error { return nil }
}

func (f *fakeSessions) IsAdmin(uid int64) bool {
	return slices.Contains(f.admins, uid)
}
