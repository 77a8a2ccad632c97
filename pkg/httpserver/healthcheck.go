package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/ssovk/pkg/logger"
)

// HealthCheckHandler returns "ALIVE" when no checks are given, "READY" when
// every check passes and 503 "NOT_READY" otherwise.
func HealthCheckHandler(log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "ALIVE")
			return
		}

		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = io.WriteString(w, "NOT_READY")
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "READY")
	}
}
