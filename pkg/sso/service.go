package sso

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
	"github.com/dmitrymomot/ssovk/pkg/logger"
)

// LoginHook is the host's post-login step, typically establishing the session.
type LoginHook func(ctx context.Context, uid int64) error

// CallbackRequest carries the OAuth callback parameters.
// CurrentUID is the uid of the authenticated session, or 0.
// ProviderError is the provider's error parameter, set when the user
// declined or the provider failed the authorization.
type CallbackRequest struct {
	Code          string
	State         string
	CurrentUID    int64
	ProviderError string
}

// Service drives the VK login and account-connect flows.
type Service struct {
	settings   SettingsProvider
	resolver   *Resolver
	newAdapter AdapterFactory
	states     *stateStore
	baseURL    string
	stateTTL   time.Duration
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithStateTTL sets how long an issued OAuth state stays valid.
func WithStateTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.stateTTL = ttl
		}
	}
}

// WithClock overrides the time source used for state expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.states.now = now
	}
}

// NewService creates the SSO service. kv stores the OAuth state tokens.
// Defaults: stateTTL = 10 minutes, logger discards output.
func NewService(settings SettingsProvider, resolver *Resolver, kv kvstore.Store, factory AdapterFactory, baseURL string, opts ...Option) *Service {
	s := &Service{
		settings:   settings,
		resolver:   resolver,
		newAdapter: factory,
		states:     &stateStore{kv: kv, now: time.Now},
		baseURL:    strings.TrimRight(baseURL, "/"),
		stateTTL:   10 * time.Minute,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether both credentials are configured.
func (s *Service) Enabled() bool {
	_, ok := s.settings.Current().Strategy()
	return ok
}

// Strategies lists the login strategy when the provider is enabled.
func (s *Service) Strategies() []Strategy {
	if !s.Enabled() {
		return []Strategy{}
	}
	return []Strategy{{
		Name:            ProviderName,
		URL:             LoginPath,
		CallbackURL:     CallbackPath,
		Icon:            ButtonIcon,
		Scope:           Scope,
		DisplayName:     DisplayName,
		BorderColor:     "#4680C2",
		BackgroundColor: "#4680C2",
		TextColor:       "#FFF",
	}}
}

// AuthURL issues a state token and returns the provider authorization URL.
func (s *Service) AuthURL(ctx context.Context) (string, error) {
	adapter, err := s.adapter()
	if err != nil {
		return "", err
	}

	state, err := s.states.issue(ctx, s.stateTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue state: %w", err)
	}

	url, err := adapter.AuthURL(state)
	if err != nil {
		return "", fmt.Errorf("failed to build auth url: %w", err)
	}
	return url, nil
}

// Callback completes the OAuth exchange. With an authenticated session the
// VK account is connected to CurrentUID; otherwise the login is resolved by
// link, then email, then account creation. The hook runs last and its
// failure fails the callback.
func (s *Service) Callback(ctx context.Context, req CallbackRequest, hook LoginHook) (Resolution, error) {
	adapter, err := s.adapter()
	if err != nil {
		return Resolution{}, err
	}

	stateErr := s.states.consume(ctx, req.State)
	if req.ProviderError != "" {
		return Resolution{}, fmt.Errorf("%w: %s", ErrAccessDenied, req.ProviderError)
	}
	if stateErr != nil {
		return Resolution{}, stateErr
	}

	if req.Code == "" {
		return Resolution{}, ErrInvalidCode
	}

	profile, err := adapter.ResolveProfile(ctx, req.Code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return Resolution{}, ErrInvalidCode
		}
		return Resolution{}, fmt.Errorf("failed to resolve provider profile: %w", err)
	}
	if profile.ProviderUserID == "" {
		return Resolution{}, fmt.Errorf("%w: missing provider user id", ErrInvalidProfile)
	}

	var res Resolution
	if req.CurrentUID > 0 {
		res, err = s.resolver.LinkSession(ctx, req.CurrentUID, profile.ProviderUserID)
	} else {
		res, err = s.resolver.ResolveLogin(ctx, profile)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "provider login failed",
			logger.UserID(nonZero(req.CurrentUID)),
			logger.ProviderUserID(profile.ProviderUserID),
			logger.Error(err),
			logger.Component(SettingsNamespace),
		)
		return Resolution{}, err
	}

	if hook != nil {
		if err := hook(ctx, res.UID); err != nil {
			s.logger.ErrorContext(ctx, "login hook failed",
				logger.UserID(res.UID),
				logger.Error(err),
				logger.Component(SettingsNamespace),
			)
			return Resolution{}, fmt.Errorf("login hook: %w", err)
		}
	}

	return res, nil
}

func (s *Service) adapter() (ProviderAdapter, error) {
	cfg, ok := s.settings.Current().Strategy()
	if !ok {
		return nil, ErrProviderDisabled
	}
	cfg.CallbackURL = s.baseURL + CallbackPath

	adapter, err := s.newAdapter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider adapter: %w", err)
	}
	return adapter, nil
}

func nonZero(uid int64) any {
	if uid == 0 {
		return nil
	}
	return uid
}
