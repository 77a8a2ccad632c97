package hostsession_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ssovk/pkg/hostsession"
)

const (
	secretA = "0123456789abcdef0123456789abcdef"
	secretB = "fedcba9876543210fedcba9876543210"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) SetUserField(ctx context.Context, uid int64, field, value string) error {
	args := m.Called(ctx, uid, field, value)
	return args.Error(0)
}

func newManager(t *testing.T, cfg hostsession.Config, opts ...hostsession.Option) *hostsession.Manager {
	t.Helper()
	m, err := hostsession.New(cfg, opts...)
	require.NoError(t, err)
	return m
}

// login returns a request carrying the cookie set by Login.
func login(t *testing.T, m *hostsession.Manager, uid int64) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(context.Background(), rec, uid))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires a secret", func(t *testing.T) {
		t.Parallel()
		_, err := hostsession.New(hostsession.Config{Secrets: " , "})
		assert.ErrorIs(t, err, hostsession.ErrNoSecret)
	})

	t.Run("rejects short secrets", func(t *testing.T) {
		t.Parallel()
		_, err := hostsession.New(hostsession.Config{Secrets: secretA + ",short"})
		assert.ErrorIs(t, err, hostsession.ErrSecretTooShort)
	})
}

func TestManager_Login(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, hostsession.Config{Secrets: secretA})

		s, err := m.Session(login(t, m, 5))
		require.NoError(t, err)
		assert.Equal(t, int64(5), s.UID)
		assert.NotEmpty(t, s.ID)
	})

	t.Run("cookie attributes", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, hostsession.Config{Secrets: secretA, CookieName: "sid", Secure: true, MaxAge: time.Hour})
		rec := httptest.NewRecorder()
		require.NoError(t, m.Login(context.Background(), rec, 5))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "sid", cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		assert.Equal(t, 3600, cookies[0].MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	})

	t.Run("records last online", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		users := &mockRecorder{}
		users.On("SetUserField", mock.Anything, int64(5), "lastonline", "1714564800000").Return(nil).Once()

		m := newManager(t, hostsession.Config{Secrets: secretA},
			hostsession.WithDirectory(users),
			hostsession.WithClock(func() time.Time { return now }),
		)
		require.NoError(t, m.LoginHook(httptest.NewRecorder())(context.Background(), 5))
		users.AssertExpectations(t)
	})

	t.Run("directory failure fails login", func(t *testing.T) {
		t.Parallel()
		users := &mockRecorder{}
		users.On("SetUserField", mock.Anything, int64(5), "lastonline", mock.Anything).Return(errors.New("down"))

		m := newManager(t, hostsession.Config{Secrets: secretA}, hostsession.WithDirectory(users))
		assert.Error(t, m.Login(context.Background(), httptest.NewRecorder(), 5))
	})

	t.Run("invalid uid", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, hostsession.Config{Secrets: secretA})
		assert.ErrorIs(t, m.Login(context.Background(), httptest.NewRecorder(), 0), hostsession.ErrInvalidUID)
	})
}

func TestManager_Session(t *testing.T) {
	t.Parallel()

	t.Run("no cookie", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, hostsession.Config{Secrets: secretA})
		_, err := m.Session(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, err, hostsession.ErrNoSession)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, hostsession.Config{Secrets: secretA})
		req := login(t, m, 5)
		c, err := req.Cookie("ssovk.sid")
		require.NoError(t, err)

		other := login(t, m, 6)
		oc, err := other.Cookie("ssovk.sid")
		require.NoError(t, err)

		payload, _, _ := strings.Cut(oc.Value, "|")
		_, sig, _ := strings.Cut(c.Value, "|")

		forged := httptest.NewRequest(http.MethodGet, "/", nil)
		forged.AddCookie(&http.Cookie{Name: "ssovk.sid", Value: payload + "|" + sig})
		_, err = m.Session(forged)
		assert.ErrorIs(t, err, hostsession.ErrInvalidSignature)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, hostsession.Config{Secrets: secretA})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "ssovk.sid", Value: "not-a-session"})
		_, err := m.Session(req)
		assert.ErrorIs(t, err, hostsession.ErrInvalidFormat)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		m := newManager(t, hostsession.Config{Secrets: secretA, MaxAge: time.Hour},
			hostsession.WithClock(func() time.Time { return now }))
		req := login(t, m, 5)

		later := newManager(t, hostsession.Config{Secrets: secretA, MaxAge: time.Hour},
			hostsession.WithClock(func() time.Time { return now.Add(2 * time.Hour) }))
		_, err := later.Session(req)
		assert.ErrorIs(t, err, hostsession.ErrExpired)
	})

	t.Run("secret rotation", func(t *testing.T) {
		t.Parallel()
		old := newManager(t, hostsession.Config{Secrets: secretA})
		req := login(t, old, 5)

		rotated := newManager(t, hostsession.Config{Secrets: secretB + "," + secretA})
		s, err := rotated.Session(req)
		require.NoError(t, err)
		assert.Equal(t, int64(5), s.UID)

		retired := newManager(t, hostsession.Config{Secrets: secretB})
		_, err = retired.Session(req)
		assert.ErrorIs(t, err, hostsession.ErrInvalidSignature)
	})
}

func TestManager_Logout(t *testing.T) {
	t.Parallel()
	m := newManager(t, hostsession.Config{Secrets: secretA})

	rec := httptest.NewRecorder()
	m.Logout(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestManager_Middleware(t *testing.T) {
	t.Parallel()
	m := newManager(t, hostsession.Config{Secrets: secretA})

	var uid int64
	var ok bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok = hostsession.UIDFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), login(t, m, 7))
	assert.True(t, ok)
	assert.Equal(t, int64(7), uid)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestManager_IsAdmin(t *testing.T) {
	t.Parallel()
	m := newManager(t, hostsession.Config{Secrets: secretA, AdminUIDs: []int64{1, 3}})

	assert.True(t, m.IsAdmin(1))
	assert.True(t, m.IsAdmin(3))
	assert.False(t, m.IsAdmin(2))
	assert.False(t, m.IsAdmin(0))
}
