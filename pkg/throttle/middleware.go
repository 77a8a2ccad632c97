package throttle

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/ssovk/pkg/logger"
)

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	logger *slog.Logger
}

// WithLogger logs rejected and failed checks.
func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.logger = l
	}
}

// Middleware rejects requests whose client has run out of attempts.
func Middleware(l *Limiter, key KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			d, err := l.Allow(k)
			if err != nil {
				cfg.logger.ErrorContext(r.Context(), "throttle check failed", logger.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, d.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed() {
				retry := int(time.Until(d.ResetAt).Round(time.Second).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(max(1, retry)))
				cfg.logger.WarnContext(r.Context(), "sign-in attempts throttled",
					slog.String("client", k),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
