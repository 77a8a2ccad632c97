package redisstore

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redisstore: empty connection url")
	ErrFailedToParseRedisConnString = errors.New("redisstore: failed to parse connection url")
	ErrRedisNotReady                = errors.New("redisstore: redis did not become ready in time")
	ErrHealthcheckFailed            = errors.New("redisstore: healthcheck failed")
)
