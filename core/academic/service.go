package academic

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/profile"
)

type (
	// Profiles are the teacher & student profiles referenced by assignments and enrollments.
	Profiles interface {
		GetTeacher(ctx context.Context, id string) (profile.TeacherProfile, error)
		GetStudent(ctx context.Context, id string) (profile.StudentProfile, error)
		SetStudentRollNumber(ctx context.Context, id string, roll int) error
	}

	Service struct {
		repo     Repository
		profiles Profiles
		validate *validator.Validate
		logger   core.Logger
		mailer   core.EmailService
		admins   []mail.Address
		now      func() time.Time
	}

	Option func(svc *Service)
)

var _ Profiles = (*profile.Service)(nil)

// WithClock sets the clock "today" is read from.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// WithReports sends a report of every promotion to recipients.
func WithReports(mailer core.EmailService, recipients []mail.Address) Option {
	return func(svc *Service) {
		svc.mailer = mailer
		svc.admins = recipients
	}
}

func NewService(
	repo Repository,
	profiles Profiles,
	validate *validator.Validate,
	logger core.Logger,
	opts ...Option,
) *Service {
	svc := &Service{
		repo:     repo,
		profiles: profiles,
		validate: validate,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// today returns the current date (UTC midnight).
func (svc *Service) today() time.Time {
	return core.Date(svc.now())
}

func (svc *Service) timestamp() time.Time {
	return svc.now().UTC()
}

// checkOpenYear reports on field why year does not accept writes:
// it must be marked current and today must fall within its dates.
func checkOpenYear(year AcademicYear, today time.Time, field string, fe *fieldErrors) {
	switch {
	case !year.IsCurrent:
		fe.add(ErrYearNotCurrent, field, fmt.Sprintf("Academic year %s is not marked current.", year))
	case !year.HasStarted(today):
		fe.add(ErrFutureYear, field, fmt.Sprintf("Academic year %s has not started yet.", year))
	case year.HasEnded(today):
		fe.add(ErrPastYear, field, fmt.Sprintf("Academic year %s has already ended.", year))
	}
}

// getYear loads the year referenced by field.
func getYear(ctx context.Context, repo Repository, id, field string) (AcademicYear, error) {
	year, err := repo.GetYear(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return year, notFound(field, "Academic year not found.")
	}
	return year, err
}

// getClass loads the class referenced by field.
func getClass(ctx context.Context, repo Repository, id, field string) (ClassLevel, error) {
	class, err := repo.GetClass(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return class, notFound(field, "Class not found.")
	}
	return class, err
}

// getSubject loads the subject referenced by field.
func getSubject(ctx context.Context, repo Repository, id, field string) (Subject, error) {
	subj, err := repo.GetSubject(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return subj, notFound(field, "Subject not found.")
	}
	return subj, err
}
