package academic

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/cems/core/profile"
)

type (
	DashboardClass struct {
		Class        ClassLevel   `json:"class"`
		Year         AcademicYear `json:"academic_year"`
		Subjects     []Subject    `json:"subjects"` // assigned to the teacher
		StudentCount int          `json:"student_count"`
	}

	Dashboard struct {
		Teacher      profile.TeacherProfile `json:"teacher"`
		Classes      []DashboardClass       `json:"classes"`
		ClassCount   int                    `json:"class_count"`
		SubjectCount int                    `json:"subject_count"`
		StudentCount int                    `json:"student_count"`
	}
)

// teacherClasses returns the classes a teacher is assigned to, along with the assigned subjects,
// ordered by class (number, section) then subject name.
func (svc *Service) teacherClasses(ctx context.Context, teacherID string) ([]DashboardClass, int, error) {
	assignments, err := svc.repo.ListAssignments(ctx, AssignmentFilter{TeacherID: teacherID})
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing assignments")
	}

	byClass := make(map[string]*DashboardClass)
	var classes []*DashboardClass
	for _, a := range assignments {
		dc, ok := byClass[a.ClassLevelID]
		if !ok {
			class, err := svc.repo.GetClass(ctx, a.ClassLevelID)
			if err != nil {
				return nil, 0, errors.Wrap(err, "getting class")
			}
			year, err := svc.repo.GetYear(ctx, class.AcademicYearID)
			if err != nil {
				return nil, 0, errors.Wrap(err, "getting academic year")
			}
			dc = &DashboardClass{Class: class, Year: year}
			byClass[a.ClassLevelID] = dc
			classes = append(classes, dc)
		}
		subj, err := svc.repo.GetSubject(ctx, a.SubjectID)
		if err != nil {
			return nil, 0, errors.Wrap(err, "getting subject")
		}
		dc.Subjects = append(dc.Subjects, subj)
	}

	sort.SliceStable(classes, func(i, j int) bool {
		ci, cj := classes[i].Class, classes[j].Class
		if ci.Number != cj.Number {
			return ci.Number < cj.Number
		}
		if ci.Section != cj.Section {
			return ci.Section < cj.Section
		}
		return classes[i].Year.Name < classes[j].Year.Name
	})
	res := make([]DashboardClass, 0, len(classes))
	for _, dc := range classes {
		sort.SliceStable(dc.Subjects, func(i, j int) bool { return dc.Subjects[i].Name < dc.Subjects[j].Name })
		res = append(res, *dc)
	}
	return res, len(assignments), nil
}

// TeacherDashboard summarizes the classes, subjects and students of a teacher.
func (svc *Service) TeacherDashboard(ctx context.Context, teacherID string) (Dashboard, error) {
	teacher, err := svc.profiles.GetTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return Dashboard{}, ErrNotFound
		}
		return Dashboard{}, errors.Wrap(err, "getting teacher")
	}

	classes, subjectCount, err := svc.teacherClasses(ctx, teacherID)
	if err != nil {
		return Dashboard{}, err
	}
	dash := Dashboard{Teacher: teacher, Classes: classes, ClassCount: len(classes), SubjectCount: subjectCount}
	for i, dc := range dash.Classes {
		enrollments, err := svc.repo.ListEnrollments(ctx, EnrollmentFilter{
			ClassLevelID:   dc.Class.ID,
			AcademicYearID: dc.Class.AcademicYearID,
		})
		if err != nil {
			return Dashboard{}, errors.Wrap(err, "listing enrollments")
		}
		dash.Classes[i].StudentCount = len(enrollments)
		dash.StudentCount += len(enrollments)
	}
	return dash, nil
}

// ClassRoster returns the enrollments of a class in its own academic year, by roll number.
func (svc *Service) ClassRoster(ctx context.Context, classID string) ([]StudentEnrollment, error) {
	class, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	return svc.repo.ListEnrollments(ctx, EnrollmentFilter{ClassLevelID: class.ID, AcademicYearID: class.AcademicYearID})
}

// TeacherClassRoster is ClassRoster restricted to the classes the teacher is assigned to.
func (svc *Service) TeacherClassRoster(ctx context.Context, teacherID, classID string) ([]StudentEnrollment, error) {
	if _, err := svc.teacherClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	return svc.ClassRoster(ctx, classID)
}

// TeacherClassSubjects returns the subjects of a class assigned to the teacher.
func (svc *Service) TeacherClassSubjects(ctx context.Context, teacherID, classID string) ([]Subject, error) {
	dc, err := svc.teacherClass(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}
	return dc.Subjects, nil
}

func (svc *Service) teacherClass(ctx context.Context, teacherID, classID string) (DashboardClass, error) {
	classes, _, err := svc.teacherClasses(ctx, teacherID)
	if err != nil {
		return DashboardClass{}, err
	}
	for _, dc := range classes {
		if dc.Class.ID == classID {
			return dc, nil
		}
	}
	return DashboardClass{}, ErrNotFound
}
