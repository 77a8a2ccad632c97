package hostsession

import (
	"net/http"
	"strings"
	"time"
)

// Config holds session cookie configuration.
type Config struct {
	Secrets    string        `env:"SESSION_SECRETS,required"`
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"ssovk.sid"`
	MaxAge     time.Duration `env:"SESSION_MAX_AGE" envDefault:"336h"`
	Secure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	SameSite   http.SameSite `env:"SESSION_COOKIE_SAME_SITE" envDefault:"2"` // 2 = SameSiteLaxMode
	AdminUIDs  []int64       `env:"ADMIN_UIDS" envSeparator:","`
}

func (c Config) secrets() []string {
	parts := strings.Split(c.Secrets, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
