// Package hostsession is the reference host's login session: a signed cookie
// carrying the local uid.
//
// Cookie values are "base64(payload)|base64(hmac)". Signing keys are derived
// from each configured secret with HKDF-SHA256, the first secret signs and
// every secret verifies, so secrets can be rotated by prepending a new one.
//
//	sessions, err := hostsession.New(cfg, hostsession.WithDirectory(users))
//	r.Use(sessions.Middleware)
//	...
//	uid, ok := hostsession.UIDFromContext(r.Context())
package hostsession
