package academic_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/tests"
)

var ctx = context.Background()

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "err = %v; want a *core.ValidationError", err)
	return vErr.FieldMap()
}

func date(year int, month time.Month, day int) null.Time {
	return null.TimeFrom(core.NewDate(year, month, day))
}

// fixture of a school running its 2025 academic year (testutil.Today falls in it).
type school struct {
	*testutil.Store
	svc    *academic.Service
	logger *testutil.Logger
	past   academic.AcademicYear // 2024
	curr   academic.AcademicYear // 2025, current
	future academic.AcademicYear // 2026, current but not started
}

func newSchool(t *testing.T, opts ...academic.Option) *school {
	s := testutil.NewStore(t)
	logger := new(testutil.Logger)
	return &school{
		Store:  s,
		svc:    s.AcademicService(logger, opts...),
		logger: logger,
		past: testutil.CreateYear(t, s.Academics, "2024",
			core.NewDate(2024, time.January, 8), core.NewDate(2024, time.December, 13), false),
		curr: testutil.CreateYear(t, s.Academics, "2025",
			core.NewDate(2025, time.January, 6), core.NewDate(2025, time.December, 12), true),
		future: testutil.CreateYear(t, s.Academics, "2026",
			core.NewDate(2026, time.January, 5), core.NewDate(2026, time.December, 11), true),
	}
}

func TestService_CreateYear(t *testing.T) {
	s := testutil.NewStore(t)
	svc := s.AcademicService(nil)
	testutil.CreateYear(t, s.Academics, "2024-25", core.NewDate(2024, time.June, 1), core.NewDate(2025, time.May, 31), false)
	testutil.CreateYear(t, s.Academics, "Undated", time.Time{}, time.Time{}, false)

	tests := []struct {
		name     string
		ny       academic.NewAcademicYear
		wantKind error
		wantErrs map[string]string
	}{
		{
			name: "dated",
			ny:   academic.NewAcademicYear{Name: " 2026-27 ", StartDate: date(2026, time.June, 1), EndDate: date(2027, time.May, 31)},
		},
		{name: "undated", ny: academic.NewAcademicYear{Name: "Bridge"}},
		{name: "start only", ny: academic.NewAcademicYear{Name: "2030", StartDate: date(2030, time.January, 1)}},
		{
			name: "same start and end", ny: academic.NewAcademicYear{Name: "2031", StartDate: date(2031, time.March, 3), EndDate: date(2031, time.March, 3)},
		},
		{
			name:     "end before start",
			ny:       academic.NewAcademicYear{Name: "2040", StartDate: date(2040, time.June, 1), EndDate: date(2040, time.May, 31)},
			wantKind: academic.ErrInvalidDateRange,
			wantErrs: map[string]string{"end_date": "End date must be on or after the start date."},
		},
		{
			name:     "duplicate name",
			ny:       academic.NewAcademicYear{Name: "Undated"},
			wantKind: academic.ErrDuplicateYearName,
			wantErrs: map[string]string{"name": "An academic year with this name already exists."},
		},
		{
			name:     "overlapping calendar year",
			ny:       academic.NewAcademicYear{Name: "2025", StartDate: date(2025, time.June, 1), EndDate: date(2025, time.December, 31)},
			wantKind: academic.ErrOverlappingYear,
			wantErrs: map[string]string{
				core.NonFieldErrors: "Academic year overlaps calendar year(s) 2025 already covered by 2024-25.",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, err := svc.CreateYear(ctx, tt.ny)
			if tt.wantKind != nil {
				assert.True(t, errors.Is(err, tt.wantKind), "err = %v; want %v", err, tt.wantKind)
				assert.Equal(t, tt.wantErrs, fieldErrors(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, core.CleanString(tt.ny.Name), year.Name)

			got, err := svc.GetYear(ctx, year.ID)
			require.NoError(t, err)
			assert.Equal(t, year, got)
		})
	}
}

func TestService_CreateYear_blankName(t *testing.T) {
	svc := testutil.NewStore(t).AcademicService(nil)

	_, err := svc.CreateYear(ctx, academic.NewAcademicYear{Name: "  "})
	assert.Error(t, err)
	assert.False(t, core.IsValidationError(err)) // shape errors come from the validator
}

func TestService_CreateYear_truncatesDates(t *testing.T) {
	svc := testutil.NewStore(t).AcademicService(nil)

	start := time.Date(2025, time.January, 6, 23, 30, 0, 0, time.UTC)
	year, err := svc.CreateYear(ctx, academic.NewAcademicYear{Name: "2025", StartDate: null.TimeFrom(start)})
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2025, time.January, 6), year.StartDate.Time)
	assert.False(t, year.EndDate.Valid)
}

func TestService_UpdateYear(t *testing.T) {
	s := testutil.NewStore(t)
	svc := s.AcademicService(nil)
	y24 := testutil.CreateYear(t, s.Academics, "2024", core.NewDate(2024, time.January, 8), core.NewDate(2024, time.December, 13), false)
	y25 := testutil.CreateYear(t, s.Academics, "2025", core.NewDate(2025, time.January, 6), core.NewDate(2025, time.December, 12), false)

	current := true
	year, err := svc.UpdateYear(ctx, y25.ID, academic.UpdateAcademicYear{IsCurrent: &current})
	require.NoError(t, err)
	assert.True(t, year.IsCurrent)
	assert.Equal(t, "2025", year.Name)
	assert.Equal(t, y25.StartDate, year.StartDate)
	assert.Equal(t, y25.EndDate, year.EndDate)

	// a single date keeps the other one
	year, err = svc.UpdateYear(ctx, y25.ID, academic.UpdateAcademicYear{EndDate: date(2025, time.December, 19)})
	require.NoError(t, err)
	assert.Equal(t, y25.StartDate, year.StartDate)
	assert.Equal(t, date(2025, time.December, 19), year.EndDate)

	// a year does not overlap itself, but does its neighbours
	_, err = svc.UpdateYear(ctx, y25.ID, academic.UpdateAcademicYear{StartDate: date(2024, time.September, 1), EndDate: y25.EndDate})
	assert.True(t, errors.Is(err, academic.ErrOverlappingYear), "err = %v", err)

	year, err = svc.UpdateYear(ctx, y24.ID, academic.UpdateAcademicYear{Name: "Archive"})
	require.NoError(t, err)
	assert.Equal(t, "Archive", year.Name)
	assert.Equal(t, y24.StartDate, year.StartDate)

	year, err = svc.UpdateYear(ctx, y24.ID, academic.UpdateAcademicYear{ClearDates: true})
	require.NoError(t, err)
	assert.Equal(t, "Archive", year.Name)
	assert.False(t, year.StartDate.Valid)
	assert.False(t, year.EndDate.Valid)

	_, err = svc.UpdateYear(ctx, y24.ID, academic.UpdateAcademicYear{Name: "2025"})
	assert.True(t, errors.Is(err, academic.ErrDuplicateYearName), "err = %v", err)

	_, err = svc.UpdateYear(ctx, "8f0b3a4e-15f7-4be4-a0c5-3e9e1fb9a0d1", academic.UpdateAcademicYear{Name: "Nope"})
	assert.True(t, errors.Is(err, academic.ErrNotFound), "err = %v", err)
}

func TestService_ListYears(t *testing.T) {
	s := testutil.NewStore(t)
	svc := s.AcademicService(nil)
	undated := testutil.CreateYear(t, s.Academics, "Bridge", time.Time{}, time.Time{}, false)
	y24 := testutil.CreateYear(t, s.Academics, "2024", core.NewDate(2024, time.January, 8), core.NewDate(2024, time.December, 13), false)
	y25 := testutil.CreateYear(t, s.Academics, "2025", core.NewDate(2025, time.January, 6), core.NewDate(2025, time.December, 12), false)

	tests := []struct {
		name      string
		orderings string
		want      []academic.AcademicYear
	}{
		{name: "default", want: []academic.AcademicYear{y25, y24, undated}},
		{name: "start_date", orderings: "start_date", want: []academic.AcademicYear{y24, y25, undated}},
		{name: "name", orderings: "name", want: []academic.AcademicYear{y24, y25, undated}},
		{name: "-name", orderings: "-name", want: []academic.AcademicYear{undated, y25, y24}},
		{name: "unknown field", orderings: "lol", want: []academic.AcademicYear{y25, y24, undated}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListYears(ctx, core.ParseOrderings(tt.orderings)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_CurrentYear(t *testing.T) {
	s := testutil.NewStore(t)
	svc := s.AcademicService(nil)

	_, err := svc.CurrentYear(ctx)
	assert.True(t, errors.Is(err, academic.ErrNotFound), "err = %v", err)

	testutil.CreateYear(t, s.Academics, "Bridge", time.Time{}, time.Time{}, true)
	testutil.CreateYear(t, s.Academics, "2024", core.NewDate(2024, time.January, 8), time.Time{}, true)
	y25 := testutil.CreateYear(t, s.Academics, "2025", core.NewDate(2025, time.January, 6), time.Time{}, true)
	testutil.CreateYear(t, s.Academics, "2026", core.NewDate(2026, time.January, 5), time.Time{}, false)

	got, err := svc.CurrentYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, y25, got)
}

func TestService_DeleteYear(t *testing.T) {
	sc := newSchool(t)
	class := testutil.CreateClass(t, sc.Academics, 4, "A", sc.curr.ID)
	subj := testutil.CreateSubject(t, sc.Academics, "Math", "", class.ID)
	student := testutil.CreateStudent(t, sc.Profiles, "Amani")
	e := testutil.CreateEnrollment(t, sc.Academics, student.ID, class, 1, academic.StatusCurrent)

	require.NoError(t, sc.svc.DeleteYear(ctx, sc.curr.ID))

	_, err := sc.svc.GetClass(ctx, class.ID)
	assert.True(t, errors.Is(err, academic.ErrNotFound))
	_, err = sc.svc.GetSubject(ctx, subj.ID)
	assert.True(t, errors.Is(err, academic.ErrNotFound))
	_, err = sc.svc.GetEnrollment(ctx, e.ID)
	assert.True(t, errors.Is(err, academic.ErrNotFound))

	// profiles survive
	_, err = sc.ProfileSvc.GetStudent(ctx, student.ID)
	assert.NoError(t, err)
}
