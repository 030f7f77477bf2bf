package academic_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/tests"
)

func TestService_Enroll(t *testing.T) {
	sc := newSchool(t)
	class := testutil.CreateClass(t, sc.Academics, 4, "A", sc.curr.ID)
	pastClass := testutil.CreateClass(t, sc.Academics, 4, "A", sc.past.ID)
	amani := testutil.CreateStudent(t, sc.Profiles, "Amani")
	baraka := testutil.CreateStudent(t, sc.Profiles, "Baraka")
	chausiku := testutil.CreateStudent(t, sc.Profiles, "Chausiku")
	dalia := testutil.CreateStudent(t, sc.Profiles, "Dalia")

	// allocated roll numbers
	e, err := sc.svc.Enroll(ctx, academic.NewEnrollment{StudentID: amani.ID, ClassLevelID: class.ID, AcademicYearID: sc.curr.ID})
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(1), e.RollNumber)
	assert.Equal(t, academic.StatusCurrent, e.Status)

	e, err = sc.svc.Enroll(ctx, academic.NewEnrollment{
		StudentID: baraka.ID, ClassLevelID: class.ID, AcademicYearID: sc.curr.ID, RollNumber: null.IntFrom(7),
	})
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(7), e.RollNumber)

	e, err = sc.svc.Enroll(ctx, academic.NewEnrollment{
		StudentID: chausiku.ID, ClassLevelID: class.ID, AcademicYearID: sc.curr.ID, Status: " Archived ",
	})
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(8), e.RollNumber)
	assert.Equal(t, academic.StatusArchived, e.Status)

	// roll numbers are mirrored on profiles
	sp, err := sc.ProfileSvc.GetStudent(ctx, chausiku.ID)
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(8), sp.RollNumber)

	tests := []struct {
		name     string
		ne       academic.NewEnrollment
		wantKind error
		wantErrs map[string]string
	}{
		{
			name:     "already enrolled",
			ne:       academic.NewEnrollment{StudentID: amani.ID, ClassLevelID: class.ID, AcademicYearID: sc.curr.ID},
			wantKind: academic.ErrAlreadyEnrolled,
			wantErrs: map[string]string{core.NonFieldErrors: "The student is already enrolled in Class 4 - A (2025)."},
		},
		{
			name:     "roll number taken",
			ne:       academic.NewEnrollment{StudentID: dalia.ID, ClassLevelID: class.ID, AcademicYearID: sc.curr.ID, RollNumber: null.IntFrom(7)},
			wantKind: academic.ErrDuplicateRoll,
			wantErrs: map[string]string{"roll_number": "Roll number 7 is already used in Class 4 - A (2025)."},
		},
		{
			name:     "zero roll number",
			ne:       academic.NewEnrollment{StudentID: dalia.ID, ClassLevelID: class.ID, AcademicYearID: sc.curr.ID, RollNumber: null.IntFrom(0)},
			wantKind: academic.ErrInvalidRoll,
			wantErrs: map[string]string{"roll_number": "Roll number must be greater than 0."},
		},
		{
			name:     "class of another year",
			ne:       academic.NewEnrollment{StudentID: dalia.ID, ClassLevelID: pastClass.ID, AcademicYearID: sc.curr.ID},
			wantKind: academic.ErrMismatchedYear,
			wantErrs: map[string]string{"academic_year_id": "Class 4 - A does not belong to academic year 2025."},
		},
		{
			name:     "year not current",
			ne:       academic.NewEnrollment{StudentID: dalia.ID, ClassLevelID: pastClass.ID, AcademicYearID: sc.past.ID},
			wantKind: academic.ErrYearNotCurrent,
			wantErrs: map[string]string{"academic_year_id": "Academic year 2024 is not marked current."},
		},
		{
			name:     "unknown student",
			ne:       academic.NewEnrollment{StudentID: uuid.New().String(), ClassLevelID: class.ID, AcademicYearID: sc.curr.ID},
			wantKind: academic.ErrNotFound,
			wantErrs: map[string]string{"student_id": "Student not found."},
		},
		{
			name:     "unknown class",
			ne:       academic.NewEnrollment{StudentID: dalia.ID, ClassLevelID: uuid.New().String(), AcademicYearID: sc.curr.ID},
			wantKind: academic.ErrNotFound,
			wantErrs: map[string]string{"class_level_id": "Class not found."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sc.svc.Enroll(ctx, tt.ne)
			assert.True(t, errors.Is(err, tt.wantKind), "err = %v; want %v", err, tt.wantKind)
			assert.Equal(t, tt.wantErrs, fieldErrors(t, err))
		})
	}
}

func TestService_Enroll_invalidStatus(t *testing.T) {
	sc := newSchool(t)
	class := testutil.CreateClass(t, sc.Academics, 4, "A", sc.curr.ID)
	amani := testutil.CreateStudent(t, sc.Profiles, "Amani")

	_, err := sc.svc.Enroll(ctx, academic.NewEnrollment{
		StudentID: amani.ID, ClassLevelID: class.ID, AcademicYearID: sc.curr.ID, Status: "graduated",
	})
	var vErrs validator.ValidationErrors
	require.True(t, errors.As(err, &vErrs), "err = %v", err)
	assert.Equal(t, map[string]string{
		"status": "status must be one of current, promoted, archived",
	}, core.TranslateErrors(vErrs, sc.Translator))
}

func TestService_Enroll_mirroringFailureIsLogged(t *testing.T) {
	sc := newSchool(t)
	a := testutil.CreateClass(t, sc.Academics, 4, "A", sc.curr.ID)
	b := testutil.CreateClass(t, sc.Academics, 4, "B", sc.curr.ID)
	amani := testutil.CreateStudent(t, sc.Profiles, "Amani")
	baraka := testutil.CreateStudent(t, sc.Profiles, "Baraka")

	_, err := sc.svc.Enroll(ctx, academic.NewEnrollment{StudentID: amani.ID, ClassLevelID: a.ID, AcademicYearID: sc.curr.ID})
	require.NoError(t, err)

	// roll 1 of another class: profile roll numbers collide
	e, err := sc.svc.Enroll(ctx, academic.NewEnrollment{StudentID: baraka.ID, ClassLevelID: b.ID, AcademicYearID: sc.curr.ID})
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(1), e.RollNumber)

	_, err = sc.svc.GetEnrollment(ctx, e.ID)
	assert.NoError(t, err)
	sp, err := sc.ProfileSvc.GetStudent(ctx, baraka.ID)
	require.NoError(t, err)
	assert.False(t, sp.RollNumber.Valid)
	require.Len(t, sc.logger.Logged("warn"), 1)
	assert.Contains(t, sc.logger.Logged("warn")[0], "mirroring roll number 1 of enrollment "+e.ID)
}

func TestService_UpdateEnrollment(t *testing.T) {
	sc := newSchool(t)
	class := testutil.CreateClass(t, sc.Academics, 4, "A", sc.curr.ID)
	other := testutil.CreateClass(t, sc.Academics, 4, "B", sc.curr.ID)
	pastClass := testutil.CreateClass(t, sc.Academics, 4, "A", sc.past.ID)
	pastOther := testutil.CreateClass(t, sc.Academics, 4, "B", sc.past.ID)
	amani := testutil.CreateStudent(t, sc.Profiles, "Amani")
	baraka := testutil.CreateStudent(t, sc.Profiles, "Baraka")

	testutil.CreateEnrollment(t, sc.Academics, baraka.ID, other, 1, academic.StatusCurrent)
	e := testutil.CreateEnrollment(t, sc.Academics, amani.ID, class, 3, academic.StatusCurrent)
	historical := testutil.CreateEnrollment(t, sc.Academics, amani.ID, pastClass, 5, academic.StatusCurrent)

	t.Run("historical enrollments stay editable", func(t *testing.T) {
		got, err := sc.svc.UpdateEnrollment(ctx, historical.ID, academic.UpdateEnrollment{
			Status: academic.StatusPromoted, EnrolledOn: date(2024, 1, 8),
		})
		require.NoError(t, err)
		assert.Equal(t, academic.StatusPromoted, got.Status)
		assert.Equal(t, null.IntFrom(5), got.RollNumber)
		assert.Equal(t, date(2024, 1, 8), got.EnrolledOn)
	})

	t.Run("moving into a closed year", func(t *testing.T) {
		_, err := sc.svc.UpdateEnrollment(ctx, historical.ID, academic.UpdateEnrollment{ClassLevelID: pastOther.ID})
		assert.True(t, errors.Is(err, academic.ErrYearNotCurrent), "err = %v", err)
	})

	t.Run("explicit roll taken", func(t *testing.T) {
		_, err := sc.svc.UpdateEnrollment(ctx, e.ID, academic.UpdateEnrollment{ClassLevelID: other.ID, RollNumber: null.IntFrom(1)})
		assert.True(t, errors.Is(err, academic.ErrDuplicateRoll), "err = %v", err)
	})

	t.Run("moving reallocates the roll number", func(t *testing.T) {
		got, err := sc.svc.UpdateEnrollment(ctx, e.ID, academic.UpdateEnrollment{ClassLevelID: other.ID})
		require.NoError(t, err)
		assert.Equal(t, other.ID, got.ClassLevelID)
		assert.Equal(t, null.IntFrom(2), got.RollNumber)
	})

	t.Run("keeping its own roll number", func(t *testing.T) {
		got, err := sc.svc.UpdateEnrollment(ctx, e.ID, academic.UpdateEnrollment{RollNumber: null.IntFrom(2)})
		require.NoError(t, err)
		assert.Equal(t, null.IntFrom(2), got.RollNumber)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := sc.svc.UpdateEnrollment(ctx, uuid.New().String(), academic.UpdateEnrollment{Status: academic.StatusArchived})
		assert.True(t, errors.Is(err, academic.ErrNotFound), "err = %v", err)
	})
}

func TestService_ListEnrollments(t *testing.T) {
	sc := newSchool(t)
	class := testutil.CreateClass(t, sc.Academics, 4, "A", sc.curr.ID)
	amani := testutil.CreateStudent(t, sc.Profiles, "Amani")
	baraka := testutil.CreateStudent(t, sc.Profiles, "Baraka")
	chausiku := testutil.CreateStudent(t, sc.Profiles, "Chausiku")

	unrolled := testutil.CreateEnrollment(t, sc.Academics, amani.ID, class, 0, academic.StatusCurrent)
	second := testutil.CreateEnrollment(t, sc.Academics, baraka.ID, class, 2, academic.StatusArchived)
	first := testutil.CreateEnrollment(t, sc.Academics, chausiku.ID, class, 1, academic.StatusCurrent)

	got, err := sc.svc.ListEnrollments(ctx, academic.EnrollmentFilter{ClassLevelID: class.ID})
	require.NoError(t, err)
	assert.Equal(t, []academic.StudentEnrollment{first, second, unrolled}, got)

	got, err = sc.svc.ListEnrollments(ctx, academic.EnrollmentFilter{Status: academic.StatusCurrent})
	require.NoError(t, err)
	assert.Equal(t, []academic.StudentEnrollment{first, unrolled}, got)

	got, err = sc.svc.ListEnrollments(ctx, academic.EnrollmentFilter{StudentID: baraka.ID})
	require.NoError(t, err)
	assert.Equal(t, []academic.StudentEnrollment{second}, got)
}
