package academic

import (
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
)

var (
	ErrNotFound = errors.New("not found")

	// validation error kinds
	ErrInvalidClassName    = errors.New("invalid class name")
	ErrInvalidSection      = errors.New("invalid section")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrOverlappingYear     = errors.New("overlapping academic year")
	ErrDuplicateYearName   = errors.New("duplicate academic year name")
	ErrFutureYear          = errors.New("academic year has not started")
	ErrPastYear            = errors.New("academic year has ended")
	ErrYearNotCurrent      = errors.New("academic year is not current")
	ErrDuplicateClass      = errors.New("duplicate class")
	ErrDuplicateSubject    = errors.New("duplicate subject")
	ErrNotInFamily         = errors.New("subject is not part of the class family")
	ErrMismatchedSubject   = errors.New("subject does not belong to the class")
	ErrMismatchedYear      = errors.New("class does not belong to the academic year")
	ErrAlreadyAssigned     = errors.New("subject already assigned")
	ErrAlreadyEnrolled     = errors.New("student already enrolled")
	ErrDuplicateRoll       = errors.New("duplicate roll number")
	ErrInvalidRoll         = errors.New("invalid roll number")
	ErrMultiClassPromotion = errors.New("promotion spans several classes")
	ErrSameYearPromotion   = errors.New("promotion within the same academic year")
	ErrMissingTargetClass  = errors.New("missing promotion target class")
	ErrInvalidTargetYear   = errors.New("invalid promotion target year")
)

// fieldErrors collects the failures of a validation pass.
// The kind of the first failure becomes the kind of the resulting core.ValidationError.
type fieldErrors struct {
	kind   error
	fields []core.FieldError
}

func (fe *fieldErrors) add(kind error, field, msg string) {
	if fe.kind == nil {
		fe.kind = kind
	}
	fe.fields = append(fe.fields, core.FieldError{Field: field, Error: msg})
}

// merge adds the failures of err when err is a *core.ValidationError and reports whether it was.
func (fe *fieldErrors) merge(err error) bool {
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		return false
	}
	for _, f := range vErr.Fields {
		fe.add(vErr.Err, f.Field, f.Error)
	}
	return true
}

func (fe *fieldErrors) empty() bool { return len(fe.fields) == 0 }

func (fe *fieldErrors) err() error {
	if fe.empty() {
		return nil
	}
	return core.NewValidationError(fe.kind, fe.fields...)
}

// newError returns a core.ValidationError of a single failure.
func newError(kind error, field, msg string) error {
	return core.NewValidationError(kind, core.FieldError{Field: field, Error: msg})
}

// notFound reports a missing referenced entity on field.
func notFound(field, msg string) error {
	return newError(ErrNotFound, field, msg)
}
