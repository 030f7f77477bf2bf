package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/core/profile"
)

var ctx = context.Background()

func newDB(t *testing.T) (*DB, academic.Repository) {
	t.Helper()
	db, err := Open()
	require.NoError(t, err)
	return db, NewAcademicRepository(db)
}

func year(name string, start null.Time, created time.Time) academic.AcademicYear {
	return academic.AcademicYear{ID: uuid.New().String(), Name: name, StartDate: start, CreatedAt: created}
}

func TestAcademicRepository_ListYears(t *testing.T) {
	_, repo := newDB(t)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	undated := year("undated", null.Time{}, t0.Add(time.Hour))
	y24 := year("2024", null.TimeFrom(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)), t0)
	y25 := year("2025", null.TimeFrom(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)), t0)
	for _, y := range []academic.AcademicYear{undated, y24, y25} {
		require.NoError(t, repo.InsertYear(ctx, y))
	}

	got, err := repo.ListYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []academic.AcademicYear{y25, y24, undated}, got)

	// nulls stay last when ascending
	got, err = repo.ListYears(ctx, core.ParseOrderings("start_date")...)
	require.NoError(t, err)
	assert.Equal(t, []academic.AcademicYear{y24, y25, undated}, got)

	got, err = repo.ListYears(ctx, core.ParseOrderings("name")...)
	require.NoError(t, err)
	assert.Equal(t, []academic.AcademicYear{y24, y25, undated}, got)
}

func TestAcademicRepository_conflicts(t *testing.T) {
	db, repo := newDB(t)
	y := year("2025", null.Time{}, time.Now().UTC())
	require.NoError(t, repo.InsertYear(ctx, y))

	err := repo.InsertYear(ctx, year("2025", null.Time{}, time.Now().UTC()))
	assert.True(t, core.IsRetryable(err), "err = %v", err)
	assert.Contains(t, err.Error(), "academic_year_name_key")

	class := academic.ClassLevel{ID: uuid.New().String(), Name: "Class 4", Number: 4, Section: "A", AcademicYearID: y.ID}
	require.NoError(t, repo.InsertClass(ctx, class))
	student := profile.StudentProfile{ID: uuid.New().String(), Name: "Amani"}
	db.student[student.ID] = student
	other := profile.StudentProfile{ID: uuid.New().String(), Name: "Baraka"}
	db.student[other.ID] = other

	e := academic.StudentEnrollment{
		ID: uuid.New().String(), StudentID: student.ID, ClassLevelID: class.ID, AcademicYearID: y.ID,
		Status: academic.StatusCurrent, RollNumber: null.IntFrom(1),
	}
	require.NoError(t, repo.InsertEnrollment(ctx, e))

	dup := e
	dup.ID = uuid.New().String()
	err = repo.InsertEnrollment(ctx, dup)
	assert.True(t, errors.Is(err, core.ErrConflict), "err = %v", err)

	dup.StudentID = other.ID
	err = repo.InsertEnrollment(ctx, dup)
	assert.True(t, errors.Is(err, core.ErrConflict), "err = %v", err)
	assert.Contains(t, err.Error(), "unique_roll_per_class_year")

	dup.RollNumber = null.IntFrom(2)
	require.NoError(t, repo.InsertEnrollment(ctx, dup))

	roll, err := repo.AllocateRollNumber(ctx, class.ID, y.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, roll)

	dup.StudentID = uuid.New().String()
	dup.ID = uuid.New().String()
	err = repo.InsertEnrollment(ctx, dup)
	assert.True(t, errors.Is(err, academic.ErrNotFound), "err = %v", err)
}

func TestAcademicRepository_Atomic(t *testing.T) {
	_, repo := newDB(t)
	boom := errors.New("boom")
	y := year("2025", null.Time{}, time.Now().UTC())

	err := repo.Atomic(ctx, func(tx academic.Repository) error {
		require.NoError(t, tx.InsertYear(ctx, y))
		// nested calls join the transaction
		return tx.Atomic(ctx, func(tx academic.Repository) error {
			_, err := tx.GetYear(ctx, y.ID)
			require.NoError(t, err)
			return boom
		})
	})
	assert.Equal(t, boom, err)
	_, err = repo.GetYear(ctx, y.ID)
	assert.Equal(t, academic.ErrNotFound, err)

	require.NoError(t, repo.Atomic(ctx, func(tx academic.Repository) error {
		return tx.InsertYear(ctx, y)
	}))
	_, err = repo.GetYear(ctx, y.ID)
	assert.NoError(t, err)
}

func TestAcademicRepository_DeleteYearCascades(t *testing.T) {
	db, repo := newDB(t)
	y := year("2025", null.Time{}, time.Now().UTC())
	require.NoError(t, repo.InsertYear(ctx, y))
	class := academic.ClassLevel{ID: uuid.New().String(), Name: "Class 4", Number: 4, AcademicYearID: y.ID}
	require.NoError(t, repo.InsertClass(ctx, class))
	subj := academic.Subject{ID: uuid.New().String(), Name: "Math", ClassLevelID: class.ID}
	require.NoError(t, repo.InsertSubject(ctx, subj))
	teacher := profile.TeacherProfile{ID: uuid.New().String(), Name: "Neema"}
	db.teacher[teacher.ID] = teacher
	require.NoError(t, repo.InsertAssignment(ctx, academic.TeacherAssignment{
		ID: uuid.New().String(), TeacherID: teacher.ID, ClassLevelID: class.ID, SubjectID: subj.ID, AcademicYearID: y.ID,
	}))

	require.NoError(t, repo.DeleteYear(ctx, y.ID))
	assert.Empty(t, db.class)
	assert.Empty(t, db.subject)
	assert.Empty(t, db.assignment)
	assert.Len(t, db.teacher, 1)
}
