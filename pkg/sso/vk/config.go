package vk

import "time"

// Config holds VK API settings. Credentials come from sso.StrategyConfig.
type Config struct {
	APIURL      string        `env:"SSO_VK_API_URL" envDefault:"https://api.vk.com/method"`
	APIVersion  string        `env:"SSO_VK_API_VERSION" envDefault:"5.199"`
	HTTPTimeout time.Duration `env:"SSO_VK_HTTP_TIMEOUT" envDefault:"10s"`
}
