package hostsession

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/dmitrymomot/ssovk/pkg/logger"
)

const (
	minSecretLength = 32
	keyInfo         = "ssovk session signing key v1"
)

// LastOnlineRecorder stores the time of a user's last login.
type LastOnlineRecorder interface {
	SetUserField(ctx context.Context, uid int64, field, value string) error
}

// Session is the decoded cookie payload.
type Session struct {
	ID       string `json:"sid"`
	UID      int64  `json:"uid"`
	IssuedAt int64  `json:"iat"`
}

// Manager issues and verifies session cookies.
type Manager struct {
	keys     [][]byte
	name     string
	maxAge   time.Duration
	secure   bool
	sameSite http.SameSite
	admins   []int64
	users    LastOnlineRecorder
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithDirectory records "lastonline" on the user at every login.
func WithDirectory(users LastOnlineRecorder) Option {
	return func(m *Manager) {
		m.users = users
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a Manager from cfg.
func New(cfg Config, opts ...Option) (*Manager, error) {
	secrets := cfg.secrets()
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	m := &Manager{
		name:     cfg.CookieName,
		maxAge:   cfg.MaxAge,
		secure:   cfg.Secure,
		sameSite: cfg.SameSite,
		admins:   cfg.AdminUIDs,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if m.name == "" {
		m.name = "ssovk.sid"
	}
	if m.maxAge <= 0 {
		m.maxAge = 14 * 24 * time.Hour
	}
	if m.sameSite == 0 {
		m.sameSite = http.SameSiteLaxMode
	}

	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		key, err := deriveKey(s)
		if err != nil {
			return nil, fmt.Errorf("derive signing key: %w", err)
		}
		m.keys = append(m.keys, key)
	}

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Login sets a fresh session cookie for uid.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, uid int64) error {
	if uid <= 0 {
		return ErrInvalidUID
	}

	now := m.now()
	payload, err := json.Marshal(Session{ID: uuid.NewString(), UID: uid, IssuedAt: now.Unix()})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    m.sign(payload),
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	})

	if m.users != nil {
		lastOnline := strconv.FormatInt(now.UnixMilli(), 10)
		if err := m.users.SetUserField(ctx, uid, "lastonline", lastOnline); err != nil {
			return fmt.Errorf("record last online: %w", err)
		}
	}

	m.logger.InfoContext(ctx, "user logged in", logger.UserID(uid), logger.Component("hostsession"))
	return nil
}

// LoginHook returns the post-login step bound to w.
func (m *Manager) LoginHook(w http.ResponseWriter) func(ctx context.Context, uid int64) error {
	return func(ctx context.Context, uid int64) error {
		return m.Login(ctx, w, uid)
	}
}

// Logout clears the session cookie.
func (m *Manager) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	})
}

// Session decodes and verifies the request's session cookie.
func (m *Manager) Session(r *http.Request) (Session, error) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return Session{}, ErrNoSession
	}

	payload, err := m.verify(c.Value)
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil || s.UID <= 0 {
		return Session{}, ErrInvalidFormat
	}
	if m.now().After(time.Unix(s.IssuedAt, 0).Add(m.maxAge)) {
		return Session{}, ErrExpired
	}
	return s, nil
}

// IsAdmin reports whether uid is a configured administrator.
func (m *Manager) IsAdmin(uid int64) bool {
	return uid > 0 && slices.Contains(m.admins, uid)
}

func (m *Manager) sign(payload []byte) string {
	mac := hmac.New(sha256.New, m.keys[0])
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "|" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) ([]byte, error) {
	encoded, signature, ok := strings.Cut(value, "|")
	if !ok {
		return nil, ErrInvalidFormat
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	// Any configured key verifies, so rotated secrets keep old sessions valid.
	for _, key := range m.keys {
		mac := hmac.New(sha256.New, key)
		mac.Write(payload)
		if subtle.ConstantTimeCompare(sig, mac.Sum(nil)) == 1 {
			return payload, nil
		}
	}
	return nil, ErrInvalidSignature
}

func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}
