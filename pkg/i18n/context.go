package i18n

import (
	"context"
	"net/http"
)

type localeContextKey struct{}

// SetLocale stores the locale in the context.
func SetLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// GetLocale returns the locale from the context, or DefaultLanguage.
func GetLocale(ctx context.Context) string {
	locale, _ := ctx.Value(localeContextKey{}).(string)
	if locale == "" {
		return DefaultLanguage
	}
	return locale
}

// Middleware negotiates the request language from the "lang" query parameter
// or the Accept-Language header and stores it with SetLocale.
func Middleware(t *Translator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Accept-Language")
			if q := r.URL.Query().Get("lang"); q != "" {
				header = q
			}
			next.ServeHTTP(w, r.WithContext(SetLocale(r.Context(), t.Match(header))))
		})
	}
}
