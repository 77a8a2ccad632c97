package sso

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/dmitrymomot/ssovk/pkg/config"
	"github.com/dmitrymomot/ssovk/pkg/logger"
)

// Stored settings fields.
const (
	settingClientID    = "id"
	settingSecret      = "secret"
	settingAutoConfirm = "autoconfirm"
)

// ProviderSettings is the provider configuration in effect. Values are
// immutable once published; a reload builds and swaps a new value.
type ProviderSettings struct {
	ClientID     string
	ClientSecret string
	AutoConfirm  bool
}

// StrategyConfig holds the credentials of an enabled provider.
type StrategyConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Strategy returns the strategy configuration, or false when either credential is missing.
func (p ProviderSettings) Strategy() (StrategyConfig, bool) {
	if p.ClientID == "" || p.ClientSecret == "" {
		return StrategyConfig{}, false
	}
	return StrategyConfig{ClientID: p.ClientID, ClientSecret: p.ClientSecret}, true
}

// envDefaults are read from the environment on every load.
type envDefaults struct {
	ClientID     string `env:"SSO_VK_CLIENT_ID"`
	ClientSecret string `env:"SSO_VK_CLIENT_SECRET"`
	AutoConfirm  string `env:"SSO_VK_AUTOCONFIRM"`
}

// SettingsStore is the host's per-plugin settings storage.
type SettingsStore interface {
	Get(ctx context.Context, namespace string) (map[string]string, error)
	Set(ctx context.Context, namespace string, values map[string]string) error
}

// Settings caches the current ProviderSettings.
type Settings struct {
	store   SettingsStore
	environ map[string]string
	logger  *slog.Logger
	current atomic.Pointer[ProviderSettings]
}

// SettingsOption configures Settings.
type SettingsOption func(*Settings)

// WithSettingsLogger sets the logger.
func WithSettingsLogger(l *slog.Logger) SettingsOption {
	return func(s *Settings) {
		s.logger = l
	}
}

// WithEnvironment replaces the process environment as the source of defaults.
func WithEnvironment(environ map[string]string) SettingsOption {
	return func(s *Settings) {
		s.environ = environ
	}
}

// NewSettings creates an empty settings cache. Call Load before use.
func NewSettings(store SettingsStore, opts ...SettingsOption) *Settings {
	s := &Settings{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&ProviderSettings{})
	return s
}

// Current returns the settings in effect.
func (s *Settings) Current() ProviderSettings {
	return *s.current.Load()
}

// Load reads environment defaults, overlays the stored values and publishes the result.
func (s *Settings) Load(ctx context.Context) error {
	var defaults envDefaults
	var err error
	if s.environ != nil {
		err = config.LoadFrom(&defaults, s.environ)
	} else {
		err = config.Load(&defaults)
	}
	if err != nil {
		return fmt.Errorf("load provider defaults: %w", err)
	}

	stored, err := s.store.Get(ctx, SettingsNamespace)
	if err != nil {
		return storageErr("load settings", err)
	}

	next := &ProviderSettings{
		ClientID:     defaults.ClientID,
		ClientSecret: defaults.ClientSecret,
		AutoConfirm:  strings.EqualFold(strings.TrimSpace(defaults.AutoConfirm), "true"),
	}
	if v := stored[settingClientID]; v != "" {
		next.ClientID = v
	}
	if v := stored[settingSecret]; v != "" {
		next.ClientSecret = v
	}
	if v := stored[settingAutoConfirm]; v != "" {
		next.AutoConfirm = v == "on"
	}

	s.current.Store(next)

	_, enabled := next.Strategy()
	s.logger.InfoContext(ctx, "provider settings loaded",
		logger.Provider(ProviderName),
		slog.Bool("enabled", enabled),
		slog.Bool("autoconfirm", next.AutoConfirm),
		logger.Component(SettingsNamespace),
	)
	return nil
}

// Save persists the admin form values and reloads.
func (s *Settings) Save(ctx context.Context, p ProviderSettings) error {
	autoconfirm := "off"
	if p.AutoConfirm {
		autoconfirm = "on"
	}
	values := map[string]string{
		settingClientID:    strings.TrimSpace(p.ClientID),
		settingSecret:      strings.TrimSpace(p.ClientSecret),
		settingAutoConfirm: autoconfirm,
	}
	if err := s.store.Set(ctx, SettingsNamespace, values); err != nil {
		return storageErr("save settings", err)
	}
	return s.Load(ctx)
}
