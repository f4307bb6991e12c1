// Package ferr defines the error taxonomy shared by Ferro services.
//
// ValidationError means caller-supplied input is structurally invalid and
// was rejected before any store mutation. DatabaseError means a persistence
// operation failed; it wraps the underlying cause and the surrounding
// transaction has been rolled back. Expected, recoverable conditions (a
// missing session at merge time, a failed best-effort abandon) are reported
// as boolean returns by the services, not as errors.
package ferr

import (
	"errors"
	"fmt"
)

// Sentinel conditions for the external speech and parsing services.
// Callers branch on these to decide between "retry later" and "fix input".
var (
	// ErrUnavailable marks an upstream outage or rate limit.
	ErrUnavailable = errors.New("service unavailable")
	// ErrBadInput marks input the upstream rejected (empty or oversized audio).
	ErrBadInput = errors.New("bad input")
	// ErrMalformed marks an upstream response that could not be decoded.
	ErrMalformed = errors.New("malformed response")
)

// ValidationError reports structurally invalid caller input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// Validation builds a ValidationError for the named field.
func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DatabaseError reports a failed persistence operation.
type DatabaseError struct {
	Op  string // the logical operation, e.g. "session: cleanup stale"
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database: %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Database wraps err as a DatabaseError for the named operation.
func Database(op string, err error) error {
	return &DatabaseError{Op: op, Err: err}
}

// IsDatabase reports whether err is (or wraps) a DatabaseError.
func IsDatabase(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de)
}
