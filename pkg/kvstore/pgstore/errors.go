package pgstore

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyConnectionString    = errors.New("pgstore: empty connection string, set PG_CONN_URL")
	ErrFailedToParseDBConfig    = errors.New("pgstore: failed to parse db config")
	ErrFailedToOpenDBConnection = errors.New("pgstore: failed to open db connection")
	ErrHealthcheckFailed        = errors.New("pgstore: healthcheck failed")
)

// isInvalidTextRepresentation detects SQLSTATE 22P02, raised when casting a non-numeric value.
func isInvalidTextRepresentation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
