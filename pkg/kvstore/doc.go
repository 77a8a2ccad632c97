// Package kvstore defines the key/object storage contract the SSO plugin
// relies on, modelled after the hash and sorted-set primitives of the host
// forum database.
//
// A Store exposes two kinds of records:
//
//   - objects (hashes): a key holding a flat map of string fields, e.g.
//     "user:42" or the identity mapping "vkontakteid:uid";
//   - sorted sets: a key holding members ordered by a numeric score, e.g.
//     the "users:notvalidated" queue.
//
// Backends live in sub-packages (redisstore, mongostore, pgstore,
// sqlitestore). NewMemory returns an in-process implementation suitable for
// tests and single-node development.
//
// Absent object fields are reported with ErrNotFound. Deleting an absent field
// or removing an absent sorted-set member is not an error.
package kvstore
