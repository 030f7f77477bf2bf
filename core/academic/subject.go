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

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name         string `json:"name" validate:"notblank,max=64"`
	Code         string `json:"code" validate:"max=16"`
	ClassLevelID string `json:"class_level_id" validate:"required,uuid"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	return validate.Struct(ns)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// An empty name or nil code keeps the original value.
type UpdateSubject struct {
	Name string  `json:"name" validate:"omitempty,max=64"`
	Code *string `json:"code" validate:"omitempty,max=16"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	if us.Code != nil {
		code := core.CleanString(*us.Code)
		us.Code = &code
	}
	return validate.Struct(us)
}

// ReuseSubjectRequest attaches a subject of a sibling section to another class.
type ReuseSubjectRequest struct {
	SubjectID    string `json:"subject_id" validate:"required,uuid"`
	ClassLevelID string `json:"class_level_id" validate:"required,uuid"`
}

// validateSubject checks the subject's class accepts writes and does not already hold its name.
func validateSubject(ctx context.Context, repo Repository, subj Subject, class ClassLevel, today time.Time) error {
	var fe fieldErrors

	year, err := getYear(ctx, repo, class.AcademicYearID, "class_level_id")
	if err != nil {
		return err
	}
	checkOpenYear(year, today, "class_level_id", &fe)

	dup, err := repo.FindSubject(ctx, class.ID, subj.Name)
	switch {
	case err == nil && dup.ID != subj.ID:
		fe.add(ErrDuplicateSubject, "name", fmt.Sprintf("%s already has a subject named %q.", class.Label(year), subj.Name))
	case err != nil && !errors.Is(err, ErrNotFound):
		return errors.Wrap(err, "finding subject")
	}
	return fe.err()
}

func (svc *Service) insertSubject(ctx context.Context, repo Repository, subj Subject) error {
	class, err := getClass(ctx, repo, subj.ClassLevelID, "class_level_id")
	if err != nil {
		return err
	}
	if err = validateSubject(ctx, repo, subj, class, svc.today()); err != nil {
		return err
	}
	return errors.Wrap(repo.InsertSubject(ctx, subj), "inserting subject")
}

func (svc *Service) newSubject(name, code, classID string) Subject {
	now := svc.timestamp()
	return Subject{
		ID:           uuid.New().String(),
		Name:         name,
		Code:         code,
		ClassLevelID: classID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Subject{}, err
	}

	subj := svc.newSubject(ns.Name, ns.Code, ns.ClassLevelID)
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		return svc.insertSubject(ctx, repo, subj)
	})
	if err != nil {
		return Subject{}, err
	}
	return subj, nil
}

func (svc *Service) UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	if err := us.Validate(svc.validate); err != nil {
		return Subject{}, err
	}

	var subj Subject
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		var err error
		if subj, err = repo.GetSubject(ctx, id); err != nil {
			return err
		}
		if us.Name != "" {
			subj.Name = us.Name
		}
		if us.Code != nil {
			subj.Code = *us.Code
		}
		subj.UpdatedAt = svc.timestamp()

		class, err := getClass(ctx, repo, subj.ClassLevelID, "class_level_id")
		if err != nil {
			return err
		}
		if err = validateSubject(ctx, repo, subj, class, svc.today()); err != nil {
			return err
		}
		return errors.Wrap(repo.UpdateSubject(ctx, subj), "updating subject")
	})
	if err != nil {
		return Subject{}, err
	}
	return subj, nil
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) ListSubjects(ctx context.Context, classID string) ([]Subject, error) {
	return svc.repo.ListSubjects(ctx, SubjectFilter{ClassLevelIDs: []string{classID}})
}

func (svc *Service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}

// family returns the classes sharing the name and year of class, class included.
func family(ctx context.Context, repo Repository, class ClassLevel) ([]ClassLevel, error) {
	classes, err := repo.ListClasses(ctx, ClassFilter{AcademicYearID: class.AcademicYearID, Name: class.Name})
	if err != nil {
		return nil, errors.Wrap(err, "listing class family")
	}
	return classes, nil
}

// FamilySubjects returns the subjects of the class's sibling sections it does not hold yet,
// one per name.
func (svc *Service) FamilySubjects(ctx context.Context, classID string) ([]Subject, error) {
	class, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	classes, err := family(ctx, svc.repo, class)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, c.ID)
	}
	subjects, err := svc.repo.ListSubjects(ctx, SubjectFilter{ClassLevelIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "listing family subjects")
	}

	seen := make(map[string]bool)
	for _, s := range subjects {
		if s.ClassLevelID == class.ID {
			seen[s.Name] = true
		}
	}
	var picks []Subject
	for _, s := range subjects {
		if !seen[s.Name] {
			seen[s.Name] = true
			picks = append(picks, s)
		}
	}
	return picks, nil
}

// ReuseSubject copies the name and code of a subject onto another section of its class family.
func (svc *Service) ReuseSubject(ctx context.Context, req ReuseSubjectRequest) (Subject, error) {
	if err := svc.validate.Struct(req); err != nil {
		return Subject{}, err
	}

	var subj Subject
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		src, err := getSubject(ctx, repo, req.SubjectID, "subject_id")
		if err != nil {
			return err
		}
		srcClass, err := getClass(ctx, repo, src.ClassLevelID, "subject_id")
		if err != nil {
			return err
		}
		target, err := getClass(ctx, repo, req.ClassLevelID, "class_level_id")
		if err != nil {
			return err
		}
		if srcClass.Name != target.Name || srcClass.AcademicYearID != target.AcademicYearID {
			return newError(ErrNotInFamily, "subject_id",
				fmt.Sprintf("Only subjects of other %s sections of the same academic year can be reused.", target.Name))
		}

		subj = svc.newSubject(src.Name, src.Code, target.ID)
		return svc.insertSubject(ctx, repo, subj)
	})
	if err != nil {
		return Subject{}, err
	}
	return subj, nil
}
