package sso

import "context"

// ProviderAdapter performs the provider-specific part of the OAuth exchange.
//
// Contract:
//   - AuthURL embeds state unchanged.
//   - ResolveProfile returns ErrInvalidCode when the code cannot be exchanged.
//   - The returned profile has a ProviderUserID and an Email; a provider that
//     discloses no email yields an address under NoReplyEmailDomain.
type ProviderAdapter interface {
	ProviderID() string
	AuthURL(state string) (string, error)
	ResolveProfile(ctx context.Context, code string) (ExternalProfile, error)
}

// AdapterFactory builds an adapter for the configured credentials.
type AdapterFactory func(cfg StrategyConfig) (ProviderAdapter, error)
