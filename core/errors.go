package core

import "github.com/pkg/errors"

// ErrNoFile is returned when an upload request carries no file.
var ErrNoFile = errors.New("No file uploaded")

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

// NotFoundError reports a missing (or unaddressable) record.
type NotFoundError struct {
	Message string
}

// NewNotFoundError returns a "<resource> not found" error.
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Message: resource + " not found"}
}

func (err NotFoundError) Error() string {
	return err.Message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
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
