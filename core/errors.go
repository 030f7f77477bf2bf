package core

import (
	"strings"

	"github.com/pkg/errors"
)

// NonFieldErrors is the field name of errors not tied to a specific field.
const NonFieldErrors = "non_field_errors"

// ErrConflict is returned when the store rejects a write on a unique constraint.
// The operation did not persist anything and may be retried.
var ErrConflict = errors.New("conflicting write, please retry")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports why a write was rejected.
// Err is the kind of the (first) failure, Fields the messages to display.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if len(err.Fields) > 0 {
		msgs := make([]string, 0, len(err.Fields))
		for _, fe := range err.Fields {
			if fe.Field == "" || fe.Field == NonFieldErrors {
				msgs = append(msgs, fe.Error)
			} else {
				msgs = append(msgs, fe.Field+": "+fe.Error)
			}
		}
		return strings.Join(msgs, "; ")
	}
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// FieldMap returns the field errors keyed by field name, joining repeated fields.
func (err ValidationError) FieldMap() map[string]string {
	fldErrs := make(map[string]string, len(err.Fields))
	for _, fe := range err.Fields {
		field := fe.Field
		if field == "" {
			field = NonFieldErrors
		}
		if prev, ok := fldErrs[field]; ok {
			fldErrs[field] = prev + " " + fe.Error
		} else {
			fldErrs[field] = fe.Error
		}
	}
	return fldErrs
}

// IsValidationError reports whether err (or its cause) is a *ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// IsRetryable reports whether err stems from a write conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
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
