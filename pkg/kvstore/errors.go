package kvstore

import "errors"

var (
	// ErrNotFound is returned when the requested object field does not exist.
	ErrNotFound = errors.New("kvstore: not found")
	// ErrEmptyKey is returned when an operation is called with an empty key.
	ErrEmptyKey = errors.New("kvstore: empty key")
	// ErrNotInteger is returned by IncrObjectField when the stored value is not an integer.
	ErrNotInteger = errors.New("kvstore: value is not an integer")
)
