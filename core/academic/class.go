package academic

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
)

// NewClassLevel contains information needed to create new ClassLevels.
// Section may list several comma separated sections for batch creation (Service.CreateClasses).
type NewClassLevel struct {
	Name           string `json:"name" validate:"notblank,max=64"`
	Section        string `json:"section" validate:"max=128"`
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid"`
}

func (nc *NewClassLevel) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = core.CleanString(nc.Section)
	return validate.Struct(nc)
}

// UpdateClassLevel defines what information may be provided to modify an existing ClassLevel.
// Empty fields (nil Section) keep their original value.
type UpdateClassLevel struct {
	Name           string  `json:"name" validate:"omitempty,max=64"`
	Section        *string `json:"section" validate:"omitempty,max=16"`
	AcademicYearID string  `json:"academic_year_id" validate:"omitempty,uuid"`
}

func (uc *UpdateClassLevel) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	if uc.Section != nil {
		section := core.CleanString(*uc.Section)
		uc.Section = &section
	}
	return validate.Struct(uc)
}

type (
	SkippedSection struct {
		Section string `json:"section"`
		Reason  string `json:"reason"`
	}

	ClassBatchResult struct {
		Created []ClassLevel     `json:"created"`
		Skipped []SkippedSection `json:"skipped"`
	}
)

// validateClass normalizes the name and section of class and checks it against its year.
func validateClass(ctx context.Context, repo Repository, class *ClassLevel, year AcademicYear, today time.Time) error {
	var fe fieldErrors

	name, number, err := NormalizeClassName(class.Name)
	if !fe.merge(err) {
		class.Name, class.Number = name, number
	}
	section, err := NormalizeSection(class.Section)
	if !fe.merge(err) {
		class.Section = section
	}

	if !year.HasStarted(today) {
		fe.add(ErrFutureYear, "academic_year_id",
			fmt.Sprintf("Cannot create classes for %s: the academic year has not started yet.", year))
	}

	if fe.empty() {
		dup, err := repo.FindClass(ctx, class.Name, class.Section, year.ID)
		switch {
		case err == nil && dup.ID != class.ID:
			fe.add(ErrDuplicateClass, core.NonFieldErrors, fmt.Sprintf("%s already exists.", class.Label(year)))
		case err != nil && !errors.Is(err, ErrNotFound):
			return errors.Wrap(err, "finding class")
		}
	}
	return fe.err()
}

// createClass validates & inserts one class in its own transaction.
func (svc *Service) createClass(ctx context.Context, class ClassLevel) (ClassLevel, error) {
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		year, err := getYear(ctx, repo, class.AcademicYearID, "academic_year_id")
		if err != nil {
			return err
		}
		if err = validateClass(ctx, repo, &class, year, svc.today()); err != nil {
			return err
		}
		return errors.Wrap(repo.InsertClass(ctx, class), "inserting class")
	})
	if err != nil {
		return ClassLevel{}, err
	}
	return class, nil
}

func (svc *Service) newClass(nc NewClassLevel, section string) ClassLevel {
	now := svc.timestamp()
	return ClassLevel{
		ID:             uuid.New().String(),
		Name:           nc.Name,
		Section:        section,
		AcademicYearID: nc.AcademicYearID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CreateClass creates a class of a single section.
func (svc *Service) CreateClass(ctx context.Context, nc NewClassLevel) (ClassLevel, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return ClassLevel{}, err
	}
	return svc.createClass(ctx, svc.newClass(nc, nc.Section))
}

// CreateClasses creates one class per section listed in nc.Section, each one in its own transaction.
// Sections failing validation are skipped along with the reason; an unknown academic year fails the batch.
func (svc *Service) CreateClasses(ctx context.Context, nc NewClassLevel) (ClassBatchResult, error) {
	var res ClassBatchResult
	if err := nc.Validate(svc.validate); err != nil {
		return res, err
	}
	if _, err := getYear(ctx, svc.repo, nc.AcademicYearID, "academic_year_id"); err != nil {
		return res, err
	}

	for _, section := range SplitSections(nc.Section) {
		class, err := svc.createClass(ctx, svc.newClass(nc, section))
		if err != nil {
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) || errors.Is(err, ErrNotFound) {
				return res, err
			}
			res.Skipped = append(res.Skipped, SkippedSection{Section: section, Reason: vErr.Error()})
			continue
		}
		res.Created = append(res.Created, class)
	}
	return res, nil
}

func (svc *Service) UpdateClass(ctx context.Context, id string, uc UpdateClassLevel) (ClassLevel, error) {
	if err := uc.Validate(svc.validate); err != nil {
		return ClassLevel{}, err
	}

	var class ClassLevel
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		var err error
		if class, err = repo.GetClass(ctx, id); err != nil {
			return err
		}
		if uc.Name != "" {
			class.Name = uc.Name
		}
		if uc.Section != nil {
			class.Section = *uc.Section
		}
		if uc.AcademicYearID != "" && uc.AcademicYearID != class.AcademicYearID {
			if err = checkMovable(ctx, repo, class); err != nil {
				return err
			}
			class.AcademicYearID = uc.AcademicYearID
		}
		class.UpdatedAt = svc.timestamp()

		year, err := getYear(ctx, repo, class.AcademicYearID, "academic_year_id")
		if err != nil {
			return err
		}
		if err = validateClass(ctx, repo, &class, year, svc.today()); err != nil {
			return err
		}
		return errors.Wrap(repo.UpdateClass(ctx, class), "updating class")
	})
	if err != nil {
		return ClassLevel{}, err
	}
	return class, nil
}

// checkMovable refuses a year change for a class which subjects, assignments or enrollments already refer to.
func checkMovable(ctx context.Context, repo Repository, class ClassLevel) error {
	subjects, err := repo.ListSubjects(ctx, SubjectFilter{ClassLevelIDs: []string{class.ID}})
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	assignments, err := repo.ListAssignments(ctx, AssignmentFilter{ClassLevelID: class.ID})
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	enrollments, err := repo.ListEnrollments(ctx, EnrollmentFilter{ClassLevelID: class.ID})
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if len(subjects)+len(assignments)+len(enrollments) > 0 {
		return newError(ErrMismatchedYear, "academic_year_id",
			fmt.Sprintf("%s has subjects, assignments or enrollments and cannot change academic year.", class))
	}
	return nil
}

func (svc *Service) GetClass(ctx context.Context, id string) (ClassLevel, error) {
	return svc.repo.GetClass(ctx, id)
}

// ListClasses filters classes by year and name; filter.Name is normalized first.
func (svc *Service) ListClasses(ctx context.Context, filter ClassFilter) ([]ClassLevel, error) {
	if filter.Name != "" {
		name, _, err := NormalizeClassName(filter.Name)
		if err != nil {
			return nil, err
		}
		filter.Name = name
	}
	return svc.repo.ListClasses(ctx, filter)
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}
