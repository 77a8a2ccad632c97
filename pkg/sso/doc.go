// Package sso links VK (VKontakte) accounts to local users.
//
// The package is built from small pieces that each own one step of the
// single sign-on flow:
//
//   - IdentityStore maps a provider user id to a local uid. The KV
//     implementation keeps the mapping in the object "vkontakteid:uid" and the
//     reverse reference in the user's "vkontakteid" field.
//   - Resolver turns a normalized ExternalProfile into a local uid. A
//     returning identity takes the fast path and writes nothing. A new
//     identity is merged into the account that owns the same email, or a new
//     account is created, and then linked.
//   - Associations reports whether a user has a linked VK account and
//     removes the link on request.
//   - Settings holds the current ProviderSettings. Stored admin values are
//     overlaid on SSO_VK_* environment defaults and swapped in atomically.
//   - Service drives the OAuth exchange. It issues single-use state tokens,
//     asks a ProviderAdapter for the profile, picks the resolver branch by
//     session state and finally runs the host's login hook.
//
// The provider is disabled, not broken, when either credential is missing:
// Strategies returns nothing and AuthURL reports ErrProviderDisabled.
//
// Two concurrent first-time logins for the same VK account can both pass the
// lookup before either writes its link. No lock guards that window.
package sso
