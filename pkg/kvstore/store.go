package kvstore

import "context"

// Store is the key/object storage contract.
type Store interface {
	// GetObjectField returns a single field of an object.
	// Returns ErrNotFound when the object or field does not exist.
	GetObjectField(ctx context.Context, key, field string) (string, error)

	// GetObject returns all fields of an object. A missing object yields an empty map.
	GetObject(ctx context.Context, key string) (map[string]string, error)

	// SetObjectField upserts a single field of an object.
	SetObjectField(ctx context.Context, key, field, value string) error

	// SetObject upserts several fields of an object at once.
	SetObject(ctx context.Context, key string, fields map[string]string) error

	// DeleteObjectField removes a field. Missing fields are ignored.
	DeleteObjectField(ctx context.Context, key, field string) error

	// PopObjectField atomically reads and removes a field.
	// Returns ErrNotFound when the field does not exist.
	PopObjectField(ctx context.Context, key, field string) (string, error)

	// IncrObjectField atomically increments an integer field by one and
	// returns the new value. Missing fields start at zero.
	IncrObjectField(ctx context.Context, key, field string) (int64, error)

	// SortedSetAdd upserts a member with the given score.
	SortedSetAdd(ctx context.Context, set string, score float64, member string) error

	// SortedSetRemove removes a member. Missing members are ignored.
	SortedSetRemove(ctx context.Context, set, member string) error

	// IsSortedSetMember reports whether member belongs to set.
	IsSortedSetMember(ctx context.Context, set, member string) (bool, error)
}

// Healthchecker is implemented by backends able to verify their connection.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}
