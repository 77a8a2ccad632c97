package sso

import (
	"strconv"
)

// Provider constants shared by the storage layout, routes and UI.
const (
	ProviderName      = "vkontakte"
	SettingsNamespace = "sso-vkontakte"

	// BackReferenceField is the user field holding the linked VK id.
	BackReferenceField = ProviderName + "id"

	identityKey = ProviderName + "id:uid"
	stateKey    = SettingsNamespace + ":state"

	// NoReplyEmailDomain is used for accounts whose provider discloses no email.
	NoReplyEmailDomain = "users.noreply." + ProviderName + ".com"
)

// Route paths.
const (
	LoginPath      = "/auth/" + ProviderName
	CallbackPath   = "/auth/" + ProviderName + "/callback"
	DeauthPath     = "/deauth/" + ProviderName
	AdminRoute     = "/plugins/" + SettingsNamespace
	ProfileEditURL = "/me/edit"
)

// UI constants.
const (
	DisplayName = "VK"
	Label       = "[[sso-vk:vk]]"
	AdminIcon   = "fa-vk"
	ButtonIcon  = "vk fa-vk"
	Scope       = "email"
)

// ExternalProfile is the provider account normalized for resolution.
type ExternalProfile struct {
	ProviderUserID string
	DisplayName    string
	Email          string
	AvatarURL      string
}

// Outcome tells how a login was resolved.
type Outcome int

const (
	OutcomeExisting Outcome = iota + 1
	OutcomeMerged
	OutcomeCreated
	OutcomeSessionLinked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExisting:
		return "existing"
	case OutcomeMerged:
		return "merged"
	case OutcomeCreated:
		return "created"
	case OutcomeSessionLinked:
		return "session_linked"
	default:
		return "unknown"
	}
}

// Resolution is the result of resolving a provider identity to a local user.
type Resolution struct {
	UID     int64
	Outcome Outcome
}

// Strategy describes the login button and routes the host renders for the provider.
type Strategy struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	CallbackURL     string `json:"callbackURL"`
	Icon            string `json:"icon"`
	Scope           string `json:"scope"`
	DisplayName     string `json:"displayName"`
	BorderColor     string `json:"borderColor"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

// MenuItem is an admin navigation entry.
type MenuItem struct {
	Route string `json:"route"`
	Icon  string `json:"icon"`
	Name  string `json:"name"`
}

// AdminMenuItems returns the entries contributed to the host's authentication admin menu.
func AdminMenuItems() []MenuItem {
	return []MenuItem{{Route: AdminRoute, Icon: AdminIcon, Name: Label}}
}

// ProfileURL returns the public VK page of a provider user id.
func ProfileURL(providerUserID string) string {
	return "https://vk.com/id" + providerUserID
}

func formatUID(uid int64) string {
	return strconv.FormatInt(uid, 10)
}
