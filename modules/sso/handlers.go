package sso

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/ssovk/pkg/hostsession"
	"github.com/dmitrymomot/ssovk/pkg/i18n"
	"github.com/dmitrymomot/ssovk/pkg/logger"
	vksso "github.com/dmitrymomot/ssovk/pkg/sso"
)

const loginFailureURL = "/login?error=" + vksso.ProviderName

type errorResponse struct {
	Error string `json:"error"`
}

type adminSettingsResponse struct {
	ClientID    string           `json:"id"`
	Secret      string           `json:"secret"`
	AutoConfirm bool             `json:"autoconfirm"`
	Enabled     bool             `json:"enabled"`
	CallbackURL string           `json:"callbackURL"`
	Menu        []vksso.MenuItem `json:"menu"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Enabled() {
		http.NotFound(w, r)
		return
	}

	authURL, err := h.auth.AuthURL(r.Context())
	if err != nil {
		if errors.Is(err, vksso.ErrProviderDisabled) {
			http.NotFound(w, r)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to start provider login",
			logger.Provider(vksso.ProviderName),
			logger.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *handlers) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid, _ := hostsession.UIDFromContext(r.Context())
	req := vksso.CallbackRequest{
		Code:       q.Get("code"),
		State:      q.Get("state"),
		CurrentUID: uid,
	}
	if providerErr := q.Get("error"); providerErr != "" {
		req.ProviderError = strings.TrimSpace(providerErr + " " + q.Get("error_description"))
	}

	res, err := h.auth.Callback(r.Context(), req, h.sessions.LoginHook(w))
	switch {
	case errors.Is(err, vksso.ErrProviderDisabled):
		http.NotFound(w, r)
		return
	case errors.Is(err, vksso.ErrAccessDenied):
		h.logger.InfoContext(r.Context(), "provider denied authorization",
			logger.Provider(vksso.ProviderName),
			logger.Error(err),
		)
		http.Redirect(w, r, loginFailureURL, http.StatusFound)
		return
	case err != nil:
		h.logger.WarnContext(r.Context(), "provider callback failed",
			logger.Provider(vksso.ProviderName),
			logger.Error(err),
		)
		http.Redirect(w, r, loginFailureURL, http.StatusFound)
		return
	}

	h.logger.InfoContext(r.Context(), "provider login succeeded",
		logger.UserID(res.UID),
		logger.Provider(vksso.ProviderName),
		slog.String("outcome", res.Outcome.String()),
	)

	if res.Outcome == vksso.OutcomeSessionLinked {
		http.Redirect(w, r, vksso.ProfileEditURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *handlers) deauthPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, deauthPage(h.translate(r), vksso.DeauthPath, h.baseURL+vksso.ProfileEditURL))
}

func (h *handlers) deauth(w http.ResponseWriter, r *http.Request) {
	uid, _ := hostsession.UIDFromContext(r.Context())
	if err := h.associations.Unlink(r.Context(), uid); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to deauthorize provider",
			logger.UserID(uid),
			logger.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.baseURL+vksso.ProfileEditURL, http.StatusSeeOther)
}

func (h *handlers) association(w http.ResponseWriter, r *http.Request) {
	uid, _ := hostsession.UIDFromContext(r.Context())
	assoc, err := h.associations.Status(r.Context(), uid)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read association",
			logger.UserID(uid),
			logger.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal-error"})
		return
	}
	assoc.Name = h.tr(r, assoc.Name)
	writeJSON(w, http.StatusOK, assoc)
}

func (h *handlers) strategies(w http.ResponseWriter, r *http.Request) {
	strategies := h.auth.Strategies()
	for i := range strategies {
		strategies[i].DisplayName = h.tr(r, strategies[i].DisplayName)
	}
	writeJSON(w, http.StatusOK, strategies)
}

func (h *handlers) adminPage(w http.ResponseWriter, r *http.Request) {
	current := h.settings.Current()
	h.render(w, r, adminPage(h.translate(r), adminPageData{
		Action:      "/admin" + vksso.AdminRoute,
		ClientID:    current.ClientID,
		HasSecret:   current.ClientSecret != "",
		AutoConfirm: current.AutoConfirm,
		CallbackURL: h.baseURL + vksso.CallbackPath,
		Saved:       r.URL.Query().Get("saved") == "1",
	}))
}

func (h *handlers) saveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	current := h.settings.Current()
	next := vksso.ProviderSettings{
		ClientID:     strings.TrimSpace(r.PostForm.Get("id")),
		ClientSecret: strings.TrimSpace(r.PostForm.Get("secret")),
		AutoConfirm:  r.PostForm.Get("autoconfirm") == "on",
	}
	if next.ClientSecret == "" {
		next.ClientSecret = current.ClientSecret
	}

	if err := h.settings.Save(r.Context(), next); err != nil {
		uid, _ := hostsession.UIDFromContext(r.Context())
		h.logger.ErrorContext(r.Context(), "failed to save provider settings",
			logger.UserID(uid),
			logger.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin"+vksso.AdminRoute+"?saved=1", http.StatusSeeOther)
}

func (h *handlers) adminSettings(w http.ResponseWriter, r *http.Request) {
	current := h.settings.Current()
	_, enabled := current.Strategy()

	menu := vksso.AdminMenuItems()
	for i := range menu {
		menu[i].Name = h.tr(r, menu[i].Name)
	}

	writeJSON(w, http.StatusOK, adminSettingsResponse{
		ClientID:    current.ClientID,
		Secret:      maskSecret(current.ClientSecret),
		AutoConfirm: current.AutoConfirm,
		Enabled:     enabled,
		CallbackURL: h.baseURL + vksso.CallbackPath,
		Menu:        menu,
	})
}

// tr expands translation tokens in the request language.
func (h *handlers) tr(r *http.Request, text string) string {
	if h.translator == nil {
		return text
	}
	return h.translator.Translate(i18n.GetLocale(r.Context()), text)
}

func (h *handlers) translate(r *http.Request) func(string) string {
	return func(text string) string {
		return h.tr(r, text)
	}
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", logger.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// maskSecret keeps the last four characters of long secrets.
func maskSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return strings.Repeat("*", 8)
	default:
		return strings.Repeat("*", 8) + secret[len(secret)-4:]
	}
}
