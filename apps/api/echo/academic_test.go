package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/tests"
)

func TestAcademicApi_years(t *testing.T) {
	a := newApp(t, nil)
	y24 := testutil.CreateYear(t, a.Academics, "2024", core.NewDate(2024, time.January, 8), core.NewDate(2024, time.December, 13), false)
	y25 := testutil.CreateYear(t, a.Academics, "2025", core.NewDate(2025, time.January, 6), core.NewDate(2025, time.December, 12), true)

	runHTTPTests(t, a, []httpTest{
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/v1/years",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []academic.AcademicYear{y25, y24}),
		},
		{
			name:     "list ordered",
			method:   http.MethodGet,
			path:     "/v1/years?ordering=name,password",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []academic.AcademicYear{y24, y25}),
		},
		{
			name:     "current",
			method:   http.MethodGet,
			path:     "/v1/years/current",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, y25),
		},
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     "/v1/years/" + y24.ID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, y24),
		},
		{
			name:     "not found",
			method:   http.MethodGet,
			path:     "/v1/years/" + uuid.New().String(),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "blank name",
			method:   http.MethodPost,
			path:     "/v1/years",
			body:     []byte(`{"name": "  "}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field cannot be blank"}),
		},
		{
			name:     "overlapping",
			method:   http.MethodPost,
			path:     "/v1/years",
			body:     []byte(`{"name": "2025 bis", "start_date": "2025-09-01T00:00:00Z", "end_date": "2025-12-31T00:00:00Z"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				core.NonFieldErrors: "Academic year overlaps calendar year(s) 2025 already covered by 2025.",
			}),
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/v1/years",
			body:     []byte(`{"name": `),
			wantCode: http.StatusBadRequest,
		},
	})

	rec := a.do(http.MethodPost, "/v1/years",
		[]byte(`{"name": " 2026 ", "start_date": "2026-01-05T00:00:00Z", "end_date": "2026-12-11T00:00:00Z"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created academic.AcademicYear
	unmarshall(t, rec, &created)
	assert.Equal(t, "2026", created.Name)
	assert.Equal(t, core.NewDate(2026, time.January, 5), created.StartDate.Time)

	rec = a.do(http.MethodPut, "/v1/years/"+created.ID, []byte(`{"is_current": true}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated academic.AcademicYear
	unmarshall(t, rec, &updated)
	assert.True(t, updated.IsCurrent)
	assert.Equal(t, "2026", updated.Name)
	assert.Equal(t, core.NewDate(2026, time.January, 5), updated.StartDate.Time)
	assert.Equal(t, core.NewDate(2026, time.December, 11), updated.EndDate.Time)

	rec = a.do(http.MethodDelete, "/v1/years/"+created.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, "/v1/years/"+created.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcademicApi_createClasses(t *testing.T) {
	a := newApp(t, nil)
	y := testutil.CreateYear(t, a.Academics, "2025", core.NewDate(2025, time.January, 6), core.NewDate(2025, time.December, 12), true)
	testutil.CreateClass(t, a.Academics, 4, "A", y.ID)

	rec := a.do(http.MethodPost, "/v1/classes", marchallObj(t, academic.NewClassLevel{
		Name: "class 4", Section: "a, b, c", AcademicYearID: y.ID,
	}))
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	var res academic.ClassBatchResult
	unmarshall(t, rec, &res)
	require.Len(t, res.Created, 2)
	assert.Equal(t, "Class 4 - B", res.Created[0].String())
	assert.Equal(t, "Class 4 - C", res.Created[1].String())
	assert.Equal(t, []academic.SkippedSection{{Section: "a", Reason: "Class 4 - A (2025) already exists."}}, res.Skipped)

	rec = a.do(http.MethodPost, "/v1/classes", marchallObj(t, academic.NewClassLevel{
		Name: "Class 5", AcademicYearID: y.ID,
	}))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/v1/classes?year="+y.ID+"&name=class+4")
	require.Equal(t, http.StatusOK, rec.Code)
	var classes []academic.ClassLevel
	unmarshall(t, rec, &classes)
	assert.Len(t, classes, 3)

	rec = a.do(http.MethodPost, "/v1/classes", []byte(`{"name": "Clas 4", "academic_year_id": "`+y.ID+`"}`))
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	res = academic.ClassBatchResult{}
	unmarshall(t, rec, &res)
	assert.Empty(t, res.Created)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, `Did you mean "Class 4"?`)
}

func TestAcademicApi_enrollments(t *testing.T) {
	a := newApp(t, nil)
	y := testutil.CreateYear(t, a.Academics, "2025", core.NewDate(2025, time.January, 6), core.NewDate(2025, time.December, 12), true)
	class := testutil.CreateClass(t, a.Academics, 4, "A", y.ID)
	amani := testutil.CreateStudent(t, a.Profiles, "Amani")

	invalid := academic.NewEnrollment{StudentID: amani.ID, ClassLevelID: class.ID, AcademicYearID: y.ID, Status: "graduated"}
	ne := academic.NewEnrollment{StudentID: amani.ID, ClassLevelID: class.ID, AcademicYearID: y.ID}
	runHTTPTests(t, a, []httpTest{
		{
			name:     "invalid status",
			method:   http.MethodPost,
			path:     "/v1/enrollments",
			body:     marchallObj(t, invalid),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "status must be one of current, promoted, archived"}),
		},
		{
			name:     "invalid ids",
			method:   http.MethodPost,
			path:     "/v1/enrollments",
			body:     []byte(`{"student_id": "lol", "class_level_id": "` + class.ID + `", "academic_year_id": "` + y.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": "student_id must be a valid ID"}),
		},
		{name: "created", method: http.MethodPost, path: "/v1/enrollments", body: marchallObj(t, ne), wantCode: http.StatusCreated},
		{
			name:     "already enrolled",
			method:   http.MethodPost,
			path:     "/v1/enrollments",
			body:     marchallObj(t, ne),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				core.NonFieldErrors: "The student is already enrolled in Class 4 - A (2025).",
			}),
		},
	})

	rec := a.do(http.MethodGet, "/v1/classes/"+class.ID+"/roster")
	require.Equal(t, http.StatusOK, rec.Code)
	var roster []academic.StudentEnrollment
	unmarshall(t, rec, &roster)
	require.Len(t, roster, 1)
	assert.Equal(t, 1, roster[0].RollNumber.Int)

	rec = a.do(http.MethodGet, "/v1/enrollments?student="+amani.ID+"&status=archived")
	require.Equal(t, http.StatusOK, rec.Code)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
}

func TestAcademicApi_promote(t *testing.T) {
	a := newApp(t, nil)
	past := testutil.CreateYear(t, a.Academics, "2024", core.NewDate(2024, time.January, 8), core.NewDate(2024, time.December, 13), false)
	curr := testutil.CreateYear(t, a.Academics, "2025", core.NewDate(2025, time.January, 6), core.NewDate(2025, time.December, 12), true)
	source := testutil.CreateClass(t, a.Academics, 4, "A", past.ID)
	testutil.CreateClass(t, a.Academics, 5, "A", curr.ID)
	amani := testutil.CreateStudent(t, a.Profiles, "Amani")
	e := testutil.CreateEnrollment(t, a.Academics, amani.ID, source, 1, academic.StatusCurrent)

	rec := a.do(http.MethodPost, "/v1/promotions", marchallObj(t, academic.PromotionRequest{
		EnrollmentIDs: []string{e.ID}, TargetYearID: curr.ID,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res academic.PromotionResult
	unmarshall(t, rec, &res)
	assert.Equal(t, 1, res.Created)
	require.NotNil(t, res.TargetClass)
	assert.Equal(t, "Class 5 - A", res.TargetClass.String())

	// idempotent
	rec = a.do(http.MethodPost, "/v1/classes/"+source.ID+"/promote", []byte(`{"target_year_id": "`+curr.ID+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshall(t, rec, &res)
	assert.Equal(t, 0, res.Created)
}

// conflictingRepository simulates rows written concurrently by another transaction.
type conflictingRepository struct {
	academic.Repository
}

func (repo *conflictingRepository) Atomic(ctx context.Context, fn func(academic.Repository) error) error {
	return repo.Repository.Atomic(ctx, func(tx academic.Repository) error {
		return fn(&conflictingRepository{tx})
	})
}

func (repo *conflictingRepository) InsertYear(context.Context, academic.AcademicYear) error {
	return errors.WithMessage(core.ErrConflict, "academic_year_name_key")
}

func (repo *conflictingRepository) GetClass(context.Context, string) (academic.ClassLevel, error) {
	return academic.ClassLevel{}, core.NewShutdownError("integrity failure")
}

func TestAppHTTPErrorHandler(t *testing.T) {
	a := newApp(t, nil, func(repo academic.Repository) academic.Repository {
		return &conflictingRepository{repo}
	})

	runHTTPTests(t, a, []httpTest{
		{
			name:     "conflict",
			method:   http.MethodPost,
			path:     "/v1/years",
			body:     []byte(`{"name": "2025"}`),
			wantCode: http.StatusConflict,
			wantData: []byte(`{"error": "conflicting write, please retry", "retryable": true}`),
		},
		{
			name:     "unknown route",
			method:   http.MethodGet,
			path:     "/v1/lol",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Not Found"}),
		},
	})

	rec := a.do(http.MethodGet, "/v1/classes/"+uuid.New().String())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: marchallObj(t, httpErr{Error: "Internal Server Error"}),
	}, rec)
	assert.Len(t, a.logger.Logged("error"), 1)

	select {
	case <-a.server.ShutdownSignal():
	case <-time.After(time.Second):
		t.Fatal("shutdown not signaled")
	}
}
