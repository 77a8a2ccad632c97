// Command server is a reference host for the VK sign-in module. It serves the
// login, callback, deauthorization and admin routes over the configured
// key/object store with signed-cookie sessions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	ssomodule "github.com/dmitrymomot/ssovk/modules/sso"
	"github.com/dmitrymomot/ssovk/pkg/config"
	"github.com/dmitrymomot/ssovk/pkg/hostsession"
	"github.com/dmitrymomot/ssovk/pkg/httpserver"
	"github.com/dmitrymomot/ssovk/pkg/i18n"
	"github.com/dmitrymomot/ssovk/pkg/logger"
	"github.com/dmitrymomot/ssovk/pkg/settings"
	"github.com/dmitrymomot/ssovk/pkg/sso"
	"github.com/dmitrymomot/ssovk/pkg/sso/vk"
	"github.com/dmitrymomot/ssovk/pkg/throttle"
	"github.com/dmitrymomot/ssovk/pkg/userdir"
)

type appConfig struct {
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Env        string `env:"APP_ENV" envDefault:"development"`
	LogFormat  string `env:"LOG_FORMAT"`
	Backend    string `env:"KV_BACKEND" envDefault:"memory"`
	TrustProxy bool   `env:"TRUST_PROXY" envDefault:"false"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "ssovk"),
		logger.WithContextExtractors(logger.RequestIDExtractor()),
	}
	if cfg.LogFormat != "" {
		logOpts = append(logOpts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	store, err := openStore(ctx, cfg.Backend, log)
	if err != nil {
		return err
	}
	defer store.close()

	users := userdir.NewKV(store, userdir.WithLogger(log.With(logger.Component("userdir"))))

	ssoLog := log.With(logger.Component(sso.SettingsNamespace))
	providerSettings := sso.NewSettings(settings.New(store), sso.WithSettingsLogger(ssoLog))
	if err := providerSettings.Load(ctx); err != nil {
		return err
	}

	var vkCfg vk.Config
	if err := config.Load(&vkCfg); err != nil {
		return err
	}

	identities := sso.NewIdentityStore(store)
	resolver := sso.NewResolver(identities, users, store, providerSettings, sso.WithResolverLogger(ssoLog))
	service := sso.NewService(providerSettings, resolver, store, vk.NewFactory(vkCfg), cfg.BaseURL, sso.WithLogger(ssoLog))
	associations := sso.NewAssociations(identities, users, cfg.BaseURL, sso.WithAssociationsLogger(ssoLog))

	var sessCfg hostsession.Config
	if err := config.Load(&sessCfg); err != nil {
		return err
	}
	sessions, err := hostsession.New(sessCfg,
		hostsession.WithDirectory(users),
		hostsession.WithLogger(log.With(logger.Component("session"))),
	)
	if err != nil {
		return err
	}

	translator, err := i18n.New(ssomodule.Locales(), i18n.WithLogger(log))
	if err != nil {
		return err
	}

	var throttleCfg throttle.Config
	if err := config.Load(&throttleCfg); err != nil {
		return err
	}
	limiter, err := throttle.New(throttleCfg)
	if err != nil {
		return err
	}
	defer limiter.Close()

	r := ssomodule.Router(ssomodule.Deps{
		Auth:         service,
		Associations: associations,
		Settings:     providerSettings,
		Sessions:     sessions,
		Translator:   translator,
		Logger:       log,
		HealthChecks: []func(context.Context) error{store.healthcheck},
		Throttle: throttle.Middleware(limiter, throttle.ByClientIP(cfg.TrustProxy),
			throttle.WithLogger(log.With(logger.Component("throttle"))),
		),
		BaseURL:      cfg.BaseURL,
	})
	r.Get("/", home)
	r.Get("/login", loginPage)
	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessions.Logout(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	var srvCfg httpserver.Config
	if err := config.Load(&srvCfg); err != nil {
		return err
	}

	log.InfoContext(ctx, "starting server",
		slog.String("addr", srvCfg.Addr),
		slog.String("backend", cfg.Backend),
		slog.Bool("vk_enabled", service.Enabled()),
	)
	return httpserver.New(srvCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

func home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if uid, ok := hostsession.UIDFromContext(r.Context()); ok {
		fmt.Fprintf(w, "signed in as uid %d\n", uid)
		return
	}
	fmt.Fprintln(w, "anonymous, sign in at /login")
}

func loginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	msg := ""
	if r.URL.Query().Get("error") != "" {
		msg = "<p>Sign-in failed.</p>"
	}
	fmt.Fprintf(w, `<!DOCTYPE html>
<html><body>%s
<div class="alt-logins"><ul><li class="vkontakte"><a href="%s"><i class="fa fa-vk"></i> VK</a></li></ul></div>
</body></html>
`, msg, sso.LoginPath)
}
