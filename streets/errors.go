package streets

import (
	"github.com/pkg/errors"
)

// ErrIndexOutOfRange is the cause of every error returned for an entity or
// point index outside its valid [0, count) range. Callers can detect it via
// errors.Cause.
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrDatabaseClosed is the cause of every error returned for a query
// against a closed database handle.
var ErrDatabaseClosed = errors.New("database is closed")

// IsIndexOutOfRange reports whether the error was caused by an invalid
// entity or point index.
func IsIndexOutOfRange(err error) bool {
	return errors.Cause(err) == ErrIndexOutOfRange
}
