// Package vk implements the VK (VKontakte) provider adapter: the OAuth 2.0
// code exchange against oauth.vk.com and the users.get profile call.
package vk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	vkendpoint "golang.org/x/oauth2/vk"

	"github.com/dmitrymomot/ssovk/pkg/sso"
)

// ErrAPI is returned when the VK API answers with an error object.
var ErrAPI = errors.New("vk: api error")

const profileFields = "screen_name,photo_max_orig"

// Adapter implements sso.ProviderAdapter for VK.
type Adapter struct {
	conf       *oauth2.Config
	httpClient *http.Client
	apiURL     string
	apiVersion string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithEndpoint overrides the OAuth endpoints.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(a *Adapter) {
		a.conf.Endpoint = e
	}
}

// WithHTTPClient sets the client used for the token exchange and API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// New creates a VK adapter for the given credentials.
func New(strategy sso.StrategyConfig, cfg Config, opts ...Option) *Adapter {
	endpoint := vkendpoint.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	a := &Adapter{
		conf: &oauth2.Config{
			ClientID:     strategy.ClientID,
			ClientSecret: strategy.ClientSecret,
			RedirectURL:  strategy.CallbackURL,
			Scopes:       []string{sso.Scope},
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		apiVersion: cfg.APIVersion,
	}
	if a.apiURL == "" {
		a.apiURL = "https://api.vk.com/method"
	}
	if a.apiVersion == "" {
		a.apiVersion = "5.199"
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFactory returns an sso.AdapterFactory building VK adapters with cfg.
func NewFactory(cfg Config, opts ...Option) sso.AdapterFactory {
	return func(strategy sso.StrategyConfig) (sso.ProviderAdapter, error) {
		return New(strategy, cfg, opts...), nil
	}
}

// ProviderID returns the provider name.
func (a *Adapter) ProviderID() string {
	return sso.ProviderName
}

// AuthURL builds the VK authorization URL for state.
func (a *Adapter) AuthURL(state string) (string, error) {
	return a.conf.AuthCodeURL(state), nil
}

// ResolveProfile exchanges code for a token and loads the VK profile.
// VK returns the user id and, if granted, the email in the token response.
func (a *Adapter) ResolveProfile(ctx context.Context, code string) (sso.ExternalProfile, error) {
	tok, err := a.conf.Exchange(context.WithValue(ctx, oauth2.HTTPClient, a.httpClient), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return sso.ExternalProfile{}, sso.ErrInvalidCode
		}
		return sso.ExternalProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	userID := extraString(tok, "user_id")
	if userID == "" {
		return sso.ExternalProfile{}, fmt.Errorf("%w: token response has no user_id", sso.ErrInvalidProfile)
	}

	u, err := a.fetchUser(ctx, tok.AccessToken, userID)
	if err != nil {
		return sso.ExternalProfile{}, fmt.Errorf("fetch vk user: %w", err)
	}

	return normalize(u, extraString(tok, "email")), nil
}

func (a *Adapter) fetchUser(ctx context.Context, accessToken, userID string) (*vkUser, error) {
	q := url.Values{}
	q.Set("user_ids", userID)
	q.Set("fields", profileFields)
	q.Set("access_token", accessToken)
	q.Set("v", a.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL+"/users.get?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vk api returned status %d", resp.StatusCode)
	}

	var body usersGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Error != nil {
		return nil, fmt.Errorf("%w %d: %s", ErrAPI, body.Error.Code, body.Error.Message)
	}
	if len(body.Response) == 0 {
		return nil, fmt.Errorf("%w: empty users.get response", ErrAPI)
	}
	return &body.Response[0], nil
}

// normalize maps a VK user onto the profile the resolver expects.
func normalize(u *vkUser, email string) sso.ExternalProfile {
	id := strconv.FormatInt(u.ID, 10)

	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.ScreenName
	}
	if name == "" {
		name = "id" + id
	}

	email = strings.TrimSpace(email)
	if email == "" {
		local := u.ScreenName
		if local == "" {
			local = id
		}
		email = local + "@" + sso.NoReplyEmailDomain
	}

	return sso.ExternalProfile{
		ProviderUserID: id,
		DisplayName:    name,
		Email:          email,
		AvatarURL:      avatar(u.PhotoMaxOrig),
	}
}

// avatar drops VK's placeholder images served for users without a photo.
func avatar(photo string) string {
	if photo == "" || strings.Contains(photo, "/images/camera_") {
		return ""
	}
	return photo
}

func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

type usersGetResponse struct {
	Response []vkUser `json:"response"`
	Error    *vkError `json:"error"`
}

type vkUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	ScreenName   string `json:"screen_name"`
	PhotoMaxOrig string `json:"photo_max_orig"`
}

type vkError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

// Compile-time interface assertion
var _ sso.ProviderAdapter = (*Adapter)(nil)
