package academic

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/profile"
)

// NewEnrollment contains information needed to enroll a student in a class.
// The roll number is allocated when not provided.
type NewEnrollment struct {
	StudentID      string    `json:"student_id" validate:"required,uuid"`
	ClassLevelID   string    `json:"class_level_id" validate:"required,uuid"`
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid"`
	Status         string    `json:"status" validate:"omitempty,status"`
	RollNumber     null.Int  `json:"roll_number" validate:"omitempty,min=1"`
	EnrolledOn     null.Time `json:"enrolled_on"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.Status = core.CleanString(ne.Status, true /* lower */)
	if ne.Status == "" {
		ne.Status = StatusCurrent
	}
	ne.EnrolledOn = nullDate(ne.EnrolledOn)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	return checkRollNumber(ne.RollNumber)
}

// UpdateEnrollment defines what information may be provided to modify an existing StudentEnrollment.
// Empty (or null) fields keep their original value.
type UpdateEnrollment struct {
	ClassLevelID   string    `json:"class_level_id" validate:"omitempty,uuid"`
	AcademicYearID string    `json:"academic_year_id" validate:"omitempty,uuid"`
	Status         string    `json:"status" validate:"omitempty,status"`
	RollNumber     null.Int  `json:"roll_number" validate:"omitempty,min=1"`
	EnrolledOn     null.Time `json:"enrolled_on"`
}

func (ue *UpdateEnrollment) Validate(validate *validator.Validate) error {
	ue.Status = core.CleanString(ue.Status, true /* lower */)
	ue.EnrolledOn = nullDate(ue.EnrolledOn)
	if err := validate.Struct(ue); err != nil {
		return err
	}
	return checkRollNumber(ue.RollNumber)
}

// checkRollNumber rejects the zero roll number, which omitempty lets through.
func checkRollNumber(roll null.Int) error {
	if roll.Valid && roll.Int < 1 {
		return newError(ErrInvalidRoll, "roll_number", "Roll number must be greater than 0.")
	}
	return nil
}

// validateEnrollment checks e against the enrollment it replaces (orig, nil on creation).
// The year must accept writes only when e is new or moves to another (year, class),
// so that historical enrollments remain editable.
func validateEnrollment(ctx context.Context, repo Repository, e StudentEnrollment, orig *StudentEnrollment, today time.Time) error {
	var fe fieldErrors

	class, err := getClass(ctx, repo, e.ClassLevelID, "class_level_id")
	if err != nil {
		return err
	}
	year, err := getYear(ctx, repo, e.AcademicYearID, "academic_year_id")
	if err != nil {
		return err
	}

	if class.AcademicYearID != year.ID {
		fe.add(ErrMismatchedYear, "academic_year_id", fmt.Sprintf("%s does not belong to academic year %s.", class, year))
	}
	if orig == nil || orig.AcademicYearID != e.AcademicYearID || orig.ClassLevelID != e.ClassLevelID {
		checkOpenYear(year, today, "academic_year_id", &fe)
	}
	if !fe.empty() {
		return fe.err()
	}

	dup, err := repo.FindEnrollment(ctx, e.StudentID, class.ID, year.ID)
	switch {
	case err == nil && dup.ID != e.ID:
		fe.add(ErrAlreadyEnrolled, core.NonFieldErrors, fmt.Sprintf("The student is already enrolled in %s.", class.Label(year)))
	case err != nil && !errors.Is(err, ErrNotFound):
		return errors.Wrap(err, "finding enrollment")
	}

	if e.RollNumber.Valid {
		taken, err := repo.RollNumberTaken(ctx, class.ID, year.ID, e.RollNumber.Int, e.ID)
		if err != nil {
			return errors.Wrap(err, "checking roll number")
		}
		if taken {
			fe.add(ErrDuplicateRoll, "roll_number",
				fmt.Sprintf("Roll number %d is already used in %s.", e.RollNumber.Int, class.Label(year)))
		}
	}
	return fe.err()
}

// insertEnrollment allocates the roll number of e if it has none, then inserts it.
func insertEnrollment(ctx context.Context, repo Repository, e *StudentEnrollment) error {
	if !e.RollNumber.Valid {
		roll, err := repo.AllocateRollNumber(ctx, e.ClassLevelID, e.AcademicYearID)
		if err != nil {
			return errors.Wrap(err, "allocating roll number")
		}
		e.RollNumber = null.IntFrom(roll)
	}
	return errors.Wrap(repo.InsertEnrollment(ctx, *e), "inserting enrollment")
}

func (svc *Service) checkStudent(ctx context.Context, id string) error {
	if _, err := svc.profiles.GetStudent(ctx, id); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return notFound("student_id", "Student not found.")
		}
		return errors.Wrap(err, "getting student")
	}
	return nil
}

// Enroll enrolls a student, then mirrors the roll number onto the student's profile.
// Mirroring failures are logged only: the enrollment stands.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (StudentEnrollment, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return StudentEnrollment{}, err
	}
	if err := svc.checkStudent(ctx, ne.StudentID); err != nil {
		return StudentEnrollment{}, err
	}

	now := svc.timestamp()
	e := StudentEnrollment{
		ID:             uuid.New().String(),
		StudentID:      ne.StudentID,
		ClassLevelID:   ne.ClassLevelID,
		AcademicYearID: ne.AcademicYearID,
		Status:         ne.Status,
		RollNumber:     ne.RollNumber,
		EnrolledOn:     ne.EnrolledOn,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		if err := validateEnrollment(ctx, repo, e, nil, svc.today()); err != nil {
			return err
		}
		return insertEnrollment(ctx, repo, &e)
	})
	if err != nil {
		return StudentEnrollment{}, err
	}

	svc.mirrorRollNumbers(ctx, e)
	return e, nil
}

// MirrorRollNumber copies the roll number of e onto the student's profile.
func (svc *Service) MirrorRollNumber(ctx context.Context, e StudentEnrollment) error {
	if !e.RollNumber.Valid {
		return nil
	}
	return svc.profiles.SetStudentRollNumber(ctx, e.StudentID, e.RollNumber.Int)
}

func (svc *Service) mirrorRollNumbers(ctx context.Context, enrollments ...StudentEnrollment) {
	for _, e := range enrollments {
		if err := svc.MirrorRollNumber(ctx, e); err != nil {
			svc.logger.Warn(
				fmt.Sprintf("mirroring roll number %d of enrollment %s: %v", e.RollNumber.Int, e.ID, err),
				err, map[string]interface{}{"enrollment": e.ID, "student": e.StudentID},
			)
		}
	}
}

// UpdateEnrollment updates an enrollment. Moving it to another (year, class) without an explicit
// roll number allocates a new one.
func (svc *Service) UpdateEnrollment(ctx context.Context, id string, ue UpdateEnrollment) (StudentEnrollment, error) {
	if err := ue.Validate(svc.validate); err != nil {
		return StudentEnrollment{}, err
	}

	var e StudentEnrollment
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		orig, err := repo.GetEnrollment(ctx, id)
		if err != nil {
			return err
		}
		e = orig
		if ue.ClassLevelID != "" {
			e.ClassLevelID = ue.ClassLevelID
		}
		if ue.AcademicYearID != "" {
			e.AcademicYearID = ue.AcademicYearID
		}
		if ue.Status != "" {
			e.Status = ue.Status
		}
		if ue.EnrolledOn.Valid {
			e.EnrolledOn = ue.EnrolledOn
		}
		moved := e.ClassLevelID != orig.ClassLevelID || e.AcademicYearID != orig.AcademicYearID
		switch {
		case ue.RollNumber.Valid:
			e.RollNumber = ue.RollNumber
		case moved:
			e.RollNumber = null.Int{}
		}
		e.UpdatedAt = svc.timestamp()

		if err = validateEnrollment(ctx, repo, e, &orig, svc.today()); err != nil {
			return err
		}
		if !e.RollNumber.Valid {
			roll, err := repo.AllocateRollNumber(ctx, e.ClassLevelID, e.AcademicYearID)
			if err != nil {
				return errors.Wrap(err, "allocating roll number")
			}
			e.RollNumber = null.IntFrom(roll)
		}
		return errors.Wrap(repo.UpdateEnrollment(ctx, e), "updating enrollment")
	})
	if err != nil {
		return StudentEnrollment{}, err
	}
	return e, nil
}

func (svc *Service) GetEnrollment(ctx context.Context, id string) (StudentEnrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *Service) ListEnrollments(ctx context.Context, filter EnrollmentFilter) ([]StudentEnrollment, error) {
	return svc.repo.ListEnrollments(ctx, filter)
}

func (svc *Service) DeleteEnrollment(ctx context.Context, id string) error {
	return svc.repo.DeleteEnrollment(ctx, id)
}
