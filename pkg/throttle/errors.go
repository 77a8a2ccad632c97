package throttle

import "errors"

var (
	ErrInvalidConfig = errors.New("throttle: invalid configuration")
	ErrEmptyKey      = errors.New("throttle: empty client key")
)
