package hostsession

import (
	"context"
	"net/http"
)

type uidContextKey struct{}

// WithUID stores uid in ctx.
func WithUID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, uidContextKey{}, uid)
}

// UIDFromContext returns the authenticated uid, if any.
func UIDFromContext(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(uidContextKey{}).(int64)
	return uid, ok && uid > 0
}

// Middleware puts the uid of a valid session into the request context.
// Requests without a valid session pass through anonymously.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Session(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUID(r.Context(), s.UID)))
	})
}
