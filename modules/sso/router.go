package sso

import (
	"context"
	"embed"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/ssovk/pkg/httpserver"
	"github.com/dmitrymomot/ssovk/pkg/i18n"
	vksso "github.com/dmitrymomot/ssovk/pkg/sso"
)

//go:embed static images
var assetFiles embed.FS

//go:embed locales/*.yaml
var localeFiles embed.FS

// Locales returns the embedded translation catalogs for i18n.New.
func Locales() fs.FS {
	sub, err := fs.Sub(localeFiles, "locales")
	if err != nil {
		panic(err)
	}
	return sub
}

// AuthService runs the OAuth flow.
type AuthService interface {
	Enabled() bool
	Strategies() []vksso.Strategy
	AuthURL(ctx context.Context) (string, error)
	Callback(ctx context.Context, req vksso.CallbackRequest, hook vksso.LoginHook) (vksso.Resolution, error)
}

// AssociationService reads and removes a user's VK link.
type AssociationService interface {
	Status(ctx context.Context, uid int64) (vksso.Association, error)
	Unlink(ctx context.Context, uid int64) error
}

// SettingsService exposes the admin configuration.
type SettingsService interface {
	Current() vksso.ProviderSettings
	Save(ctx context.Context, p vksso.ProviderSettings) error
}

// SessionManager is the host session. Middleware must put the uid of an
// authenticated request where hostsession.UIDFromContext finds it.
type SessionManager interface {
	Middleware(next http.Handler) http.Handler
	LoginHook(w http.ResponseWriter) func(ctx context.Context, uid int64) error
	IsAdmin(uid int64) bool
}

// Deps are the collaborators of the router. Translator, Logger, Throttle and
// HealthChecks are optional.
type Deps struct {
	Auth         AuthService
	Associations AssociationService
	Settings     SettingsService
	Sessions     SessionManager
	Translator   *i18n.Translator
	Logger       *slog.Logger
	HealthChecks []func(context.Context) error

	// Throttle wraps the login and callback routes, e.g. throttle.Middleware.
	Throttle func(http.Handler) http.Handler

	// BaseURL is the public site URL used for redirects and the same-origin check.
	BaseURL string
}

const assetsPrefix = "/plugins/" + vksso.SettingsNamespace

type handlers struct {
	auth         AuthService
	associations AssociationService
	settings     SettingsService
	sessions     SessionManager
	translator   *i18n.Translator
	logger       *slog.Logger
	baseURL      string
}

// Router creates the VK sign-in router.
func Router(deps Deps) chi.Router {
	h := &handlers{
		auth:         deps.Auth,
		associations: deps.Associations,
		settings:     deps.Settings,
		sessions:     deps.Sessions,
		translator:   deps.Translator,
		logger:       deps.Logger,
		baseURL:      strings.TrimRight(deps.BaseURL, "/"),
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if h.translator != nil {
		r.Use(i18n.Middleware(h.translator))
	}
	r.Use(h.sessions.Middleware)

	r.Get("/healthz", httpserver.HealthCheckHandler(h.logger, deps.HealthChecks...))

	r.Group(func(r chi.Router) {
		if deps.Throttle != nil {
			r.Use(deps.Throttle)
		}
		r.Get(vksso.LoginPath, h.login)
		r.Get(vksso.CallbackPath, h.callback)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)
		r.Get(vksso.DeauthPath, h.deauthPage)
		r.With(h.sameOrigin).Post(vksso.DeauthPath, h.deauth)
		r.Get("/api/"+vksso.SettingsNamespace+"/association", h.association)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/admin"+vksso.AdminRoute, h.adminPage)
		r.With(h.sameOrigin).Post("/admin"+vksso.AdminRoute, h.saveSettings)
		r.Get("/api/admin"+vksso.AdminRoute, h.adminSettings)
	})

	r.Get("/api/"+vksso.SettingsNamespace+"/strategies", h.strategies)

	r.Handle(assetsPrefix+"/*", http.StripPrefix(assetsPrefix, http.FileServer(http.FS(assetFiles))))

	return r
}
