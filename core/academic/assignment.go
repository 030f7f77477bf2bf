package academic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/profile"
)

// NewTeacherAssignment contains information needed to assign a teacher to a class subject.
type NewTeacherAssignment struct {
	TeacherID      string `json:"teacher_id" validate:"required,uuid"`
	ClassLevelID   string `json:"class_level_id" validate:"required,uuid"`
	SubjectID      string `json:"subject_id" validate:"required,uuid"`
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid"`
}

// UpdateTeacherAssignment defines what information may be provided to modify an existing TeacherAssignment.
// Empty fields keep their original value.
type UpdateTeacherAssignment struct {
	TeacherID      string `json:"teacher_id" validate:"omitempty,uuid"`
	ClassLevelID   string `json:"class_level_id" validate:"omitempty,uuid"`
	SubjectID      string `json:"subject_id" validate:"omitempty,uuid"`
	AcademicYearID string `json:"academic_year_id" validate:"omitempty,uuid"`
}

// validateAssignment checks the subject, class and year of a belong together, that the year accepts writes
// and that no other teacher holds the class subject.
func validateAssignment(ctx context.Context, repo Repository, a TeacherAssignment, today time.Time) error {
	var fe fieldErrors

	class, err := getClass(ctx, repo, a.ClassLevelID, "class_level_id")
	if err != nil {
		return err
	}
	subj, err := getSubject(ctx, repo, a.SubjectID, "subject_id")
	if err != nil {
		return err
	}
	year, err := getYear(ctx, repo, a.AcademicYearID, "academic_year_id")
	if err != nil {
		return err
	}

	if subj.ClassLevelID != class.ID {
		fe.add(ErrMismatchedSubject, "subject_id", fmt.Sprintf("%s is not a subject of %s.", subj.Name, class))
	}
	if class.AcademicYearID != year.ID {
		fe.add(ErrMismatchedYear, "academic_year_id", fmt.Sprintf("%s does not belong to academic year %s.", class, year))
	}
	checkOpenYear(year, today, "academic_year_id", &fe)
	if !fe.empty() {
		return fe.err()
	}

	held, err := repo.FindAssignment(ctx, class.ID, subj.ID, year.ID)
	switch {
	case err == nil && held.ID != a.ID:
		fe.add(ErrAlreadyAssigned, core.NonFieldErrors,
			fmt.Sprintf("%s of %s is already assigned to a teacher.", subj.Name, class.Label(year)))
	case err != nil && !errors.Is(err, ErrNotFound):
		return errors.Wrap(err, "finding assignment")
	}
	return fe.err()
}

func (svc *Service) checkTeacher(ctx context.Context, id string) error {
	if _, err := svc.profiles.GetTeacher(ctx, id); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return notFound("teacher_id", "Teacher not found.")
		}
		return errors.Wrap(err, "getting teacher")
	}
	return nil
}

func (svc *Service) AssignTeacher(ctx context.Context, na NewTeacherAssignment) (TeacherAssignment, error) {
	if err := svc.validate.Struct(na); err != nil {
		return TeacherAssignment{}, err
	}
	if err := svc.checkTeacher(ctx, na.TeacherID); err != nil {
		return TeacherAssignment{}, err
	}

	now := svc.timestamp()
	a := TeacherAssignment{
		ID:             uuid.New().String(),
		TeacherID:      na.TeacherID,
		ClassLevelID:   na.ClassLevelID,
		SubjectID:      na.SubjectID,
		AcademicYearID: na.AcademicYearID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		if err := validateAssignment(ctx, repo, a, svc.today()); err != nil {
			return err
		}
		return errors.Wrap(repo.InsertAssignment(ctx, a), "inserting assignment")
	})
	if err != nil {
		return TeacherAssignment{}, err
	}
	return a, nil
}

func (svc *Service) UpdateAssignment(ctx context.Context, id string, ua UpdateTeacherAssignment) (TeacherAssignment, error) {
	if err := svc.validate.Struct(ua); err != nil {
		return TeacherAssignment{}, err
	}
	if ua.TeacherID != "" {
		if err := svc.checkTeacher(ctx, ua.TeacherID); err != nil {
			return TeacherAssignment{}, err
		}
	}

	var a TeacherAssignment
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		var err error
		if a, err = repo.GetAssignment(ctx, id); err != nil {
			return err
		}
		if ua.TeacherID != "" {
			a.TeacherID = ua.TeacherID
		}
		if ua.ClassLevelID != "" {
			a.ClassLevelID = ua.ClassLevelID
		}
		if ua.SubjectID != "" {
			a.SubjectID = ua.SubjectID
		}
		if ua.AcademicYearID != "" {
			a.AcademicYearID = ua.AcademicYearID
		}
		a.UpdatedAt = svc.timestamp()

		if err = validateAssignment(ctx, repo, a, svc.today()); err != nil {
			return err
		}
		return errors.Wrap(repo.UpdateAssignment(ctx, a), "updating assignment")
	})
	if err != nil {
		return TeacherAssignment{}, err
	}
	return a, nil
}

func (svc *Service) GetAssignment(ctx context.Context, id string) (TeacherAssignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *Service) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]TeacherAssignment, error) {
	return svc.repo.ListAssignments(ctx, filter)
}

func (svc *Service) DeleteAssignment(ctx context.Context, id string) error {
	return svc.repo.DeleteAssignment(ctx, id)
}
