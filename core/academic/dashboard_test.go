package academic_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/tests"
)

func TestService_TeacherDashboard(t *testing.T) {
	sc := newSchool(t)
	c5 := testutil.CreateClass(t, sc.Academics, 5, "A", sc.curr.ID)
	c4b := testutil.CreateClass(t, sc.Academics, 4, "B", sc.curr.ID)
	c4a := testutil.CreateClass(t, sc.Academics, 4, "A", sc.curr.ID)
	science := testutil.CreateSubject(t, sc.Academics, "Science", "", c5.ID)
	math := testutil.CreateSubject(t, sc.Academics, "Math", "", c4a.ID)
	english := testutil.CreateSubject(t, sc.Academics, "English", "", c4a.ID)
	art := testutil.CreateSubject(t, sc.Academics, "Art", "", c4b.ID)

	teacher := testutil.CreateTeacher(t, sc.Profiles, "Baraka", "T-01")
	colleague := testutil.CreateTeacher(t, sc.Profiles, "Neema", "T-02")
	idle := testutil.CreateTeacher(t, sc.Profiles, "Zawadi", "")
	testutil.CreateAssignment(t, sc.Academics, teacher.ID, science, c5)
	testutil.CreateAssignment(t, sc.Academics, teacher.ID, math, c4a)
	testutil.CreateAssignment(t, sc.Academics, teacher.ID, english, c4a)
	testutil.CreateAssignment(t, sc.Academics, colleague.ID, art, c4b)

	for i, name := range []string{"Amani", "Chausiku", "Dalia"} {
		student := testutil.CreateStudent(t, sc.Profiles, name)
		testutil.CreateEnrollment(t, sc.Academics, student.ID, c4a, i+1, academic.StatusCurrent)
	}
	student := testutil.CreateStudent(t, sc.Profiles, "Eshe")
	testutil.CreateEnrollment(t, sc.Academics, student.ID, c5, 1, academic.StatusCurrent)

	dash, err := sc.svc.TeacherDashboard(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, teacher, dash.Teacher)
	assert.Equal(t, 2, dash.ClassCount)
	assert.Equal(t, 3, dash.SubjectCount)
	assert.Equal(t, 4, dash.StudentCount)
	assert.Equal(t, []academic.DashboardClass{
		{Class: c4a, Year: sc.curr, Subjects: []academic.Subject{english, math}, StudentCount: 3},
		{Class: c5, Year: sc.curr, Subjects: []academic.Subject{science}, StudentCount: 1},
	}, dash.Classes)

	dash, err = sc.svc.TeacherDashboard(ctx, idle.ID)
	require.NoError(t, err)
	assert.Empty(t, dash.Classes)
	assert.Equal(t, 0, dash.StudentCount)

	_, err = sc.svc.TeacherDashboard(ctx, uuid.New().String())
	assert.True(t, errors.Is(err, academic.ErrNotFound), "err = %v", err)

	subjects, err := sc.svc.TeacherClassSubjects(ctx, teacher.ID, c4a.ID)
	require.NoError(t, err)
	assert.Equal(t, []academic.Subject{english, math}, subjects)

	roster, err := sc.svc.TeacherClassRoster(ctx, teacher.ID, c4a.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 3)

	_, err = sc.svc.TeacherClassRoster(ctx, teacher.ID, c4b.ID)
	assert.True(t, errors.Is(err, academic.ErrNotFound), "err = %v", err)
	_, err = sc.svc.TeacherClassSubjects(ctx, colleague.ID, c4a.ID)
	assert.True(t, errors.Is(err, academic.ErrNotFound), "err = %v", err)
}
