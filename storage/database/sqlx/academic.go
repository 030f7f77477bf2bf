package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
)

const (
	yearColumns       = "y.id, y.name, y.start_date, y.end_date, y.is_current, y.created_at, y.updated_at"
	classColumns      = "c.id, c.name, c.number, c.section, c.academic_year_id, c.created_at, c.updated_at"
	subjectColumns    = "s.id, s.name, s.code, s.class_level_id, s.created_at, s.updated_at"
	assignmentColumns = "a.id, a.teacher_id, a.class_level_id, a.subject_id, a.academic_year_id, a.created_at, a.updated_at"
	enrollmentColumns = "e.id, e.student_id, e.class_level_id, e.academic_year_id, e.status, e.roll_number, " +
		"e.enrolled_on, e.created_at, e.updated_at"

	classOrder = ", c.number, c.section, c.id"
)

var defaultYearOrderings = []core.DBOrdering{{Field: "start_date"}, {Field: "created_at"}}

func yearOrder(orderings []core.DBOrdering) string {
	order := orderBy("y", orderings, "name", "start_date", "end_date", "created_at")
	if order == "" {
		order = orderBy("y", defaultYearOrderings, "start_date", "created_at")
	}
	return order + ", y.id"
}

type academicRepository struct {
	db  *sqlx.DB // nil within a transaction
	ext sqlx.ExtContext
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *sqlx.DB) academic.Repository {
	return &academicRepository{db: db, ext: db}
}

func (repo *academicRepository) Atomic(ctx context.Context, fn func(academic.Repository) error) error {
	if repo.db == nil {
		return fn(repo)
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	return core.FinishTx(tx, fn(&academicRepository{ext: tx}))
}

func (repo *academicRepository) exec(ctx context.Context, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, repo.ext, query, arg)
	return dbError(err, academic.ErrNotFound)
}

func (repo *academicRepository) update(ctx context.Context, query string, arg interface{}) error {
	res, err := sqlx.NamedExecContext(ctx, repo.ext, query, arg)
	if err != nil {
		return dbError(err, academic.ErrNotFound)
	}
	return affected(res, academic.ErrNotFound)
}

func (repo *academicRepository) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return dbError(sqlx.GetContext(ctx, repo.ext, dest, query, args...), academic.ErrNotFound)
}

func (repo *academicRepository) delete(ctx context.Context, table, id string) error {
	_, err := repo.ext.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err = dbError(err, academic.ErrNotFound); errors.Is(err, academic.ErrNotFound) {
		return nil // nothing to delete
	}
	return err
}

// Years

func (repo *academicRepository) InsertYear(ctx context.Context, y academic.AcademicYear) error {
	return repo.exec(ctx, `
		INSERT INTO academic_year (id, name, start_date, end_date, is_current, created_at, updated_at)
		VALUES (:id, :name, :start_date, :end_date, :is_current, :created_at, :updated_at)`, y)
}

func (repo *academicRepository) UpdateYear(ctx context.Context, y academic.AcademicYear) error {
	return repo.update(ctx, `
		UPDATE academic_year
		SET name = :name, start_date = :start_date, end_date = :end_date, is_current = :is_current,
			updated_at = :updated_at
		WHERE id = :id`, y)
}

func (repo *academicRepository) GetYear(ctx context.Context, id string) (academic.AcademicYear, error) {
	var y academic.AcademicYear
	err := repo.get(ctx, &y, "SELECT "+yearColumns+" FROM academic_year y WHERE y.id = $1", id)
	return y, err
}

func (repo *academicRepository) ListYears(ctx context.Context, orderings ...core.DBOrdering) ([]academic.AcademicYear, error) {
	years := make([]academic.AcademicYear, 0)
	err := sqlx.SelectContext(ctx, repo.ext, &years,
		"SELECT "+yearColumns+" FROM academic_year y ORDER BY "+yearOrder(orderings))
	return years, dbError(err, academic.ErrNotFound)
}

func (repo *academicRepository) DeleteYear(ctx context.Context, id string) error {
	return repo.delete(ctx, "academic_year", id)
}

// Classes

func (repo *academicRepository) InsertClass(ctx context.Context, c academic.ClassLevel) error {
	return repo.exec(ctx, `
		INSERT INTO class_level (id, name, number, section, academic_year_id, created_at, updated_at)
		VALUES (:id, :name, :number, :section, :academic_year_id, :created_at, :updated_at)`, c)
}

func (repo *academicRepository) UpdateClass(ctx context.Context, c academic.ClassLevel) error {
	return repo.update(ctx, `
		UPDATE class_level
		SET name = :name, number = :number, section = :section, academic_year_id = :academic_year_id,
			updated_at = :updated_at
		WHERE id = :id`, c)
}

func (repo *academicRepository) GetClass(ctx context.Context, id string) (academic.ClassLevel, error) {
	var c academic.ClassLevel
	err := repo.get(ctx, &c, "SELECT "+classColumns+" FROM class_level c WHERE c.id = $1", id)
	return c, err
}

func (repo *academicRepository) FindClass(ctx context.Context, name, section, yearID string) (academic.ClassLevel, error) {
	var c academic.ClassLevel
	err := repo.get(ctx, &c, `
		SELECT `+classColumns+` FROM class_level c
		WHERE lower(c.name) = lower($1) AND c.section = $2 AND c.academic_year_id = $3`,
		name, section, yearID)
	return c, err
}

func (repo *academicRepository) ListClasses(ctx context.Context, filter academic.ClassFilter) ([]academic.ClassLevel, error) {
	var w where
	if filter.AcademicYearID != "" {
		w.add("c.academic_year_id = ?", filter.AcademicYearID)
	}
	if filter.Name != "" {
		w.add("lower(c.name) = lower(?)", filter.Name)
	}

	classes := make([]academic.ClassLevel, 0)
	err := sqlx.SelectContext(ctx, repo.ext, &classes, `
		SELECT `+classColumns+` FROM class_level c
		JOIN academic_year y ON y.id = c.academic_year_id`+w.String()+`
		ORDER BY `+yearOrder(nil)+classOrder, w.args...)
	return classes, dbError(err, academic.ErrNotFound)
}

func (repo *academicRepository) DeleteClass(ctx context.Context, id string) error {
	return repo.delete(ctx, "class_level", id)
}

// Subjects

func (repo *academicRepository) InsertSubject(ctx context.Context, s academic.Subject) error {
	return repo.exec(ctx, `
		INSERT INTO subject (id, name, code, class_level_id, created_at, updated_at)
		VALUES (:id, :name, :code, :class_level_id, :created_at, :updated_at)`, s)
}

func (repo *academicRepository) UpdateSubject(ctx context.Context, s academic.Subject) error {
	return repo.update(ctx, `
		UPDATE subject
		SET name = :name, code = :code, class_level_id = :class_level_id, updated_at = :updated_at
		WHERE id = :id`, s)
}

func (repo *academicRepository) GetSubject(ctx context.Context, id string) (academic.Subject, error) {
	var s academic.Subject
	err := repo.get(ctx, &s, "SELECT "+subjectColumns+" FROM subject s WHERE s.id = $1", id)
	return s, err
}

func (repo *academicRepository) FindSubject(ctx context.Context, classID, name string) (academic.Subject, error) {
	var s academic.Subject
	err := repo.get(ctx, &s, `
		SELECT `+subjectColumns+` FROM subject s
		WHERE s.class_level_id = $1 AND lower(s.name) = lower($2)`, classID, name)
	return s, err
}

func (repo *academicRepository) ListSubjects(ctx context.Context, filter academic.SubjectFilter) ([]academic.Subject, error) {
	var w where
	if len(filter.ClassLevelIDs) > 0 {
		w.add("s.class_level_id = ANY(?::uuid[])", pq.Array(filter.ClassLevelIDs))
	}

	subjects := make([]academic.Subject, 0)
	err := sqlx.SelectContext(ctx, repo.ext, &subjects, `
		SELECT `+subjectColumns+` FROM subject s
		JOIN class_level c ON c.id = s.class_level_id
		JOIN academic_year y ON y.id = c.academic_year_id`+w.String()+`
		ORDER BY `+yearOrder(nil)+classOrder+", s.name, s.id", w.args...)
	return subjects, dbError(err, academic.ErrNotFound)
}

func (repo *academicRepository) DeleteSubject(ctx context.Context, id string) error {
	return repo.delete(ctx, "subject", id)
}

// Assignments

func (repo *academicRepository) InsertAssignment(ctx context.Context, a academic.TeacherAssignment) error {
	return repo.exec(ctx, `
		INSERT INTO teacher_assignment (id, teacher_id, class_level_id, subject_id, academic_year_id, created_at, updated_at)
		VALUES (:id, :teacher_id, :class_level_id, :subject_id, :academic_year_id, :created_at, :updated_at)`, a)
}

func (repo *academicRepository) UpdateAssignment(ctx context.Context, a academic.TeacherAssignment) error {
	return repo.update(ctx, `
		UPDATE teacher_assignment
		SET teacher_id = :teacher_id, class_level_id = :class_level_id, subject_id = :subject_id,
			academic_year_id = :academic_year_id, updated_at = :updated_at
		WHERE id = :id`, a)
}

func (repo *academicRepository) GetAssignment(ctx context.Context, id string) (academic.TeacherAssignment, error) {
	var a academic.TeacherAssignment
	err := repo.get(ctx, &a, "SELECT "+assignmentColumns+" FROM teacher_assignment a WHERE a.id = $1", id)
	return a, err
}

func (repo *academicRepository) FindAssignment(ctx context.Context, classID, subjectID, yearID string) (academic.TeacherAssignment, error) {
	var a academic.TeacherAssignment
	err := repo.get(ctx, &a, `
		SELECT `+assignmentColumns+` FROM teacher_assignment a
		WHERE a.class_level_id = $1 AND a.subject_id = $2 AND a.academic_year_id = $3`,
		classID, subjectID, yearID)
	return a, err
}

func (repo *academicRepository) ListAssignments(ctx context.Context, filter academic.AssignmentFilter) ([]academic.TeacherAssignment, error) {
	var w where
	if filter.TeacherID != "" {
		w.add("a.teacher_id = ?", filter.TeacherID)
	}
	if filter.ClassLevelID != "" {
		w.add("a.class_level_id = ?", filter.ClassLevelID)
	}
	if filter.AcademicYearID != "" {
		w.add("a.academic_year_id = ?", filter.AcademicYearID)
	}

	assignments := make([]academic.TeacherAssignment, 0)
	err := sqlx.SelectContext(ctx, repo.ext, &assignments, `
		SELECT `+assignmentColumns+` FROM teacher_assignment a
		JOIN subject s ON s.id = a.subject_id
		JOIN class_level c ON c.id = a.class_level_id
		JOIN academic_year y ON y.id = c.academic_year_id`+w.String()+`
		ORDER BY `+yearOrder(nil)+classOrder+", s.name, a.id", w.args...)
	return assignments, dbError(err, academic.ErrNotFound)
}

func (repo *academicRepository) DeleteAssignment(ctx context.Context, id string) error {
	return repo.delete(ctx, "teacher_assignment", id)
}

// Enrollments

func (repo *academicRepository) InsertEnrollment(ctx context.Context, e academic.StudentEnrollment) error {
	return repo.exec(ctx, `
		INSERT INTO student_enrollment (
			id, student_id, class_level_id, academic_year_id, status, roll_number, enrolled_on, created_at, updated_at
		)
		VALUES (
			:id, :student_id, :class_level_id, :academic_year_id, :status, :roll_number, :enrolled_on, :created_at,
			:updated_at
		)`, e)
}

func (repo *academicRepository) UpdateEnrollment(ctx context.Context, e academic.StudentEnrollment) error {
	return repo.update(ctx, `
		UPDATE student_enrollment
		SET class_level_id = :class_level_id, academic_year_id = :academic_year_id, status = :status,
			roll_number = :roll_number, enrolled_on = :enrolled_on, updated_at = :updated_at
		WHERE id = :id`, e)
}

func (repo *academicRepository) SetEnrollmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	res, err := repo.ext.ExecContext(ctx,
		"UPDATE student_enrollment SET status = $2, updated_at = $3 WHERE id = $1", id, status, updatedAt)
	if err != nil {
		return dbError(err, academic.ErrNotFound)
	}
	return affected(res, academic.ErrNotFound)
}

func (repo *academicRepository) GetEnrollment(ctx context.Context, id string) (academic.StudentEnrollment, error) {
	var e academic.StudentEnrollment
	err := repo.get(ctx, &e, "SELECT "+enrollmentColumns+" FROM student_enrollment e WHERE e.id = $1", id)
	return e, err
}

func (repo *academicRepository) FindEnrollment(ctx context.Context, studentID, classID, yearID string) (academic.StudentEnrollment, error) {
	var e academic.StudentEnrollment
	err := repo.get(ctx, &e, `
		SELECT `+enrollmentColumns+` FROM student_enrollment e
		WHERE e.student_id = $1 AND e.class_level_id = $2 AND e.academic_year_id = $3`,
		studentID, classID, yearID)
	return e, err
}

func enrollmentWhere(filter academic.EnrollmentFilter) *where {
	w := new(where)
	if len(filter.IDs) > 0 {
		w.add("e.id = ANY(?::uuid[])", pq.Array(filter.IDs))
	}
	if filter.StudentID != "" {
		w.add("e.student_id = ?", filter.StudentID)
	}
	if filter.ClassLevelID != "" {
		w.add("e.class_level_id = ?", filter.ClassLevelID)
	}
	if filter.AcademicYearID != "" {
		w.add("e.academic_year_id = ?", filter.AcademicYearID)
	}
	if filter.Status != "" {
		w.add("e.status = ?", filter.Status)
	}
	return w
}

func (repo *academicRepository) ListEnrollments(ctx context.Context, filter academic.EnrollmentFilter) ([]academic.StudentEnrollment, error) {
	w := enrollmentWhere(filter)
	enrollments := make([]academic.StudentEnrollment, 0)
	err := sqlx.SelectContext(ctx, repo.ext, &enrollments,
		"SELECT "+enrollmentColumns+" FROM student_enrollment e"+w.String()+
			" ORDER BY e.roll_number ASC NULLS LAST, e.student_id, e.id", w.args...)
	return enrollments, dbError(err, academic.ErrNotFound)
}

func (repo *academicRepository) RollNumberTaken(ctx context.Context, classID, yearID string, roll int, excludedID string) (bool, error) {
	var taken bool
	err := sqlx.GetContext(ctx, repo.ext, &taken, `
		SELECT EXISTS (
			SELECT 1 FROM student_enrollment
			WHERE class_level_id = $1 AND academic_year_id = $2 AND roll_number = $3 AND id::text <> $4
		)`, classID, yearID, roll, excludedID)
	return taken, dbError(err, academic.ErrNotFound)
}

func (repo *academicRepository) AllocateRollNumber(ctx context.Context, classID, yearID string) (int, error) {
	// the class row lock serializes allocations until the end of the transaction
	var id string
	if err := repo.get(ctx, &id, "SELECT id FROM class_level WHERE id = $1 FOR UPDATE", classID); err != nil {
		return 0, err
	}
	var roll int
	err := repo.get(ctx, &roll, `
		SELECT COALESCE(MAX(roll_number), 0) + 1 FROM student_enrollment
		WHERE class_level_id = $1 AND academic_year_id = $2`, classID, yearID)
	return roll, err
}

func (repo *academicRepository) DeleteEnrollment(ctx context.Context, id string) error {
	return repo.delete(ctx, "student_enrollment", id)
}
