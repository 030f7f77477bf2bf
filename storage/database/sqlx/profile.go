package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core/profile"
)

const (
	teacherColumns = "id, name, email, employee_code, created_at, updated_at"
	studentColumns = "id, name, email, roll_number, created_at, updated_at"
)

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *sqlx.DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	err := repo.db.GetContext(ctx, &found, "SELECT EXISTS ("+query+")", args...)
	return found, dbError(err, profile.ErrNotFound)
}

func (repo *profileRepository) delete(ctx context.Context, table, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err = dbError(err, profile.ErrNotFound); errors.Is(err, profile.ErrNotFound) {
		return nil
	}
	return err
}

// Teachers

func (repo *profileRepository) InsertTeacher(ctx context.Context, tp profile.TeacherProfile) error {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO teacher_profile (id, name, email, employee_code, created_at, updated_at)
		VALUES (:id, :name, :email, :employee_code, :created_at, :updated_at)`, tp)
	return dbError(err, profile.ErrNotFound)
}

func (repo *profileRepository) GetTeacher(ctx context.Context, id string) (profile.TeacherProfile, error) {
	var tp profile.TeacherProfile
	err := repo.db.GetContext(ctx, &tp, "SELECT "+teacherColumns+" FROM teacher_profile WHERE id = $1", id)
	return tp, dbError(err, profile.ErrNotFound)
}

func (repo *profileRepository) ListTeachers(ctx context.Context) ([]profile.TeacherProfile, error) {
	teachers := make([]profile.TeacherProfile, 0)
	err := repo.db.SelectContext(ctx, &teachers, "SELECT "+teacherColumns+" FROM teacher_profile ORDER BY name, id")
	return teachers, dbError(err, profile.ErrNotFound)
}

func (repo *profileRepository) EmployeeCodeExists(ctx context.Context, code, excludedID string) (bool, error) {
	return repo.exists(ctx, "SELECT 1 FROM teacher_profile WHERE employee_code = $1 AND id::text <> $2", code, excludedID)
}

func (repo *profileRepository) DeleteTeacher(ctx context.Context, id string) error {
	return repo.delete(ctx, "teacher_profile", id)
}

// Students

func (repo *profileRepository) InsertStudent(ctx context.Context, sp profile.StudentProfile) error {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO student_profile (id, name, email, roll_number, created_at, updated_at)
		VALUES (:id, :name, :email, :roll_number, :created_at, :updated_at)`, sp)
	return dbError(err, profile.ErrNotFound)
}

func (repo *profileRepository) GetStudent(ctx context.Context, id string) (profile.StudentProfile, error) {
	var sp profile.StudentProfile
	err := repo.db.GetContext(ctx, &sp, "SELECT "+studentColumns+" FROM student_profile WHERE id = $1", id)
	return sp, dbError(err, profile.ErrNotFound)
}

func (repo *profileRepository) ListStudents(ctx context.Context) ([]profile.StudentProfile, error) {
	students := make([]profile.StudentProfile, 0)
	err := repo.db.SelectContext(ctx, &students, "SELECT "+studentColumns+" FROM student_profile ORDER BY name, id")
	return students, dbError(err, profile.ErrNotFound)
}

func (repo *profileRepository) RollNumberExists(ctx context.Context, roll int, excludedID string) (bool, error) {
	return repo.exists(ctx, "SELECT 1 FROM student_profile WHERE roll_number = $1 AND id::text <> $2", roll, excludedID)
}

func (repo *profileRepository) SetStudentRollNumber(ctx context.Context, id string, roll null.Int, updatedAt time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE student_profile SET roll_number = $2, updated_at = $3 WHERE id = $1", id, roll, updatedAt)
	if err != nil {
		return dbError(err, profile.ErrNotFound)
	}
	return affected(res, profile.ErrNotFound)
}

func (repo *profileRepository) DeleteStudent(ctx context.Context, id string) error {
	return repo.delete(ctx, "student_profile", id)
}
