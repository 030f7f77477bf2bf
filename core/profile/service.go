package profile

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
)

var (
	// errors
	ErrNotFound           = errors.New("profile not found")
	ErrEmployeeCodeExists = errors.New("a teacher with this employee code already exists")
	ErrRollNumberExists   = errors.New("a student with this roll number already exists")
)

type (
	Repository interface {
		InsertTeacher(ctx context.Context, tp TeacherProfile) error
		GetTeacher(ctx context.Context, id string) (TeacherProfile, error)
		ListTeachers(ctx context.Context) ([]TeacherProfile, error)
		// EmployeeCodeExists reports whether a teacher other than excludedID holds code.
		EmployeeCodeExists(ctx context.Context, code, excludedID string) (bool, error)
		// DeleteTeacher also deletes the teacher's assignments.
		DeleteTeacher(ctx context.Context, id string) error

		InsertStudent(ctx context.Context, sp StudentProfile) error
		GetStudent(ctx context.Context, id string) (StudentProfile, error)
		ListStudents(ctx context.Context) ([]StudentProfile, error)
		// RollNumberExists reports whether a student other than excludedID holds roll.
		RollNumberExists(ctx context.Context, roll int, excludedID string) (bool, error)
		SetStudentRollNumber(ctx context.Context, id string, roll null.Int, updatedAt time.Time) error
		// DeleteStudent also deletes the student's enrollments.
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (TeacherProfile, error) {
	if err := nt.Validate(svc.validate); err != nil {
		return TeacherProfile{}, err
	}
	if nt.EmployeeCode.Valid {
		exists, err := svc.repo.EmployeeCodeExists(ctx, nt.EmployeeCode.String, "")
		if err != nil {
			return TeacherProfile{}, errors.Wrap(err, "checking employee code")
		}
		if exists {
			return TeacherProfile{}, core.NewValidationError(ErrEmployeeCodeExists,
				core.FieldError{Field: "employee_code", Error: ErrEmployeeCodeExists.Error()})
		}
	}

	now := time.Now().UTC()
	tp := TeacherProfile{
		ID:           uuid.New().String(),
		Name:         nt.Name,
		Email:        nt.Email,
		EmployeeCode: nt.EmployeeCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := svc.repo.InsertTeacher(ctx, tp); err != nil {
		return TeacherProfile{}, errors.Wrap(err, "inserting teacher")
	}
	return tp, nil
}

func (svc *Service) GetTeacher(ctx context.Context, id string) (TeacherProfile, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *Service) ListTeachers(ctx context.Context) ([]TeacherProfile, error) {
	return svc.repo.ListTeachers(ctx)
}

func (svc *Service) DeleteTeacher(ctx context.Context, id string) error {
	return svc.repo.DeleteTeacher(ctx, id)
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (StudentProfile, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return StudentProfile{}, err
	}
	if ns.RollNumber.Valid {
		if err := svc.checkRollNumber(ctx, ns.RollNumber.Int, ""); err != nil {
			return StudentProfile{}, err
		}
	}

	now := time.Now().UTC()
	sp := StudentProfile{
		ID:         uuid.New().String(),
		Name:       ns.Name,
		Email:      ns.Email,
		RollNumber: ns.RollNumber,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := svc.repo.InsertStudent(ctx, sp); err != nil {
		return StudentProfile{}, errors.Wrap(err, "inserting student")
	}
	return sp, nil
}

func (svc *Service) GetStudent(ctx context.Context, id string) (StudentProfile, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) ListStudents(ctx context.Context) ([]StudentProfile, error) {
	return svc.repo.ListStudents(ctx)
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// SetStudentRollNumber records roll as the student's roll number.
// Roll numbers are unique across students.
func (svc *Service) SetStudentRollNumber(ctx context.Context, id string, roll int) error {
	if roll < 1 {
		return invalidRollNumber()
	}
	if err := svc.checkRollNumber(ctx, roll, id); err != nil {
		return err
	}
	if err := svc.repo.SetStudentRollNumber(ctx, id, null.IntFrom(roll), time.Now().UTC()); err != nil {
		return errors.Wrap(err, "setting roll number")
	}
	return nil
}

func (svc *Service) checkRollNumber(ctx context.Context, roll int, excludedID string) error {
	exists, err := svc.repo.RollNumberExists(ctx, roll, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking roll number")
	}
	if exists {
		return core.NewValidationError(ErrRollNumberExists,
			core.FieldError{Field: "roll_number", Error: ErrRollNumberExists.Error()})
	}
	return nil
}
