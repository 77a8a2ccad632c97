package sso

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/ssovk/pkg/hostsession"
	"github.com/dmitrymomot/ssovk/pkg/logger"
)

// requireUser rejects anonymous requests: pages redirect to /login, API calls get 401.
func (h *handlers) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := hostsession.UIDFromContext(r.Context()); !ok {
			h.unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin allows only the host's administrators.
func (h *handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := hostsession.UIDFromContext(r.Context())
		if !ok {
			h.unauthenticated(w, r)
			return
		}
		if !h.sessions.IsAdmin(uid) {
			h.logger.WarnContext(r.Context(), "admin route denied", logger.UserID(uid))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sameOrigin rejects state-changing requests whose Origin, or Referer when
// Origin is absent, does not belong to the site.
func (h *handlers) sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		source := r.Header.Get("Origin")
		if source == "" {
			source = r.Header.Get("Referer")
		}
		if !h.isSiteOrigin(source) {
			h.logger.WarnContext(r.Context(), "cross-origin request rejected",
				slog.String("origin", source),
				slog.String("path", r.URL.Path),
			)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handlers) isSiteOrigin(source string) bool {
	if source == "" {
		return false
	}
	site, err := url.Parse(h.baseURL)
	if err != nil || site.Host == "" {
		return false
	}
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, site.Scheme) && strings.EqualFold(u.Host, site.Host)
}

func (h *handlers) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not-authorized"})
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
