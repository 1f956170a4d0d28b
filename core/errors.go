package core

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a record does not exist or is not visible to the actor.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor's role does not allow the operation.
	ErrForbidden = errors.New("permission denied")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// PersistenceError reports a failed repository write. Nothing was applied, the operation may be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(err error, op string) error {
	return &PersistenceError{Op: op, Err: err}
}

func (err PersistenceError) Error() string {
	if err.Err == nil {
		return err.Op
	}
	return err.Op + ": " + err.Err.Error()
}

func (err PersistenceError) Unwrap() error { return err.Err }

func IsPersistenceError(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
