package throttle

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc extracts the client key of a request. An empty key skips throttling.
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests by client address. With trustProxy the first valid
// address of CF-Connecting-IP, X-Forwarded-For or X-Real-IP wins over RemoteAddr;
// enable it only behind a proxy that overwrites those headers.
func ByClientIP(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		return ClientIP(r, trustProxy)
	}
}

// ClientIP returns the normalized client address, or "" when none is valid.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := normalizeIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
			return ip
		}
		for candidate := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
			if ip := normalizeIP(candidate); ip != "" {
				return ip
			}
		}
		if ip := normalizeIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalizeIP(r.RemoteAddr)
	}
	return normalizeIP(host)
}

func normalizeIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
