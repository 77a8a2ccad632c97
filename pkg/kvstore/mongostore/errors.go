package mongostore

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongostore: failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("mongostore: healthcheck failed")
	ErrUnexpectedValueType    = errors.New("mongostore: unexpected value type")
)
