// Package userdir provides the User Directory collaborator: a minimal view of
// the host's user records used by the SSO plugin.
//
// The KV implementation keeps each user in the object "user:<uid>" and
// maintains the lookup objects "email:uid" and "username:uid", the uid
// counter in "global".nextUid, and the sorted set "users:notvalidated" of
// accounts whose email is not yet confirmed.
package userdir
