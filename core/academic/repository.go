package academic

import (
	"context"
	"time"

	"github.com/trezcool/cems/core"
)

type (
	ClassFilter struct {
		AcademicYearID string `query:"year"`
		Name           string `query:"name"` // canonical class name
	}

	SubjectFilter struct {
		ClassLevelIDs []string
	}

	AssignmentFilter struct {
		TeacherID      string `query:"teacher"`
		ClassLevelID   string `query:"class"`
		AcademicYearID string `query:"year"`
	}

	EnrollmentFilter struct {
		IDs            []string
		StudentID      string `query:"student"`
		ClassLevelID   string `query:"class"`
		AcademicYearID string `query:"year"`
		Status         string `query:"status"`
	}

	// Repository is the persistence of the academics core.
	// Lookups of missing rows return ErrNotFound; unique constraint violations return core.ErrConflict.
	Repository interface {
		// Atomic runs fn in a single transaction, the one of repo if it is already transactional.
		// The transaction is rolled back when fn returns an error.
		Atomic(ctx context.Context, fn func(repo Repository) error) error

		InsertYear(ctx context.Context, y AcademicYear) error
		UpdateYear(ctx context.Context, y AcademicYear) error
		GetYear(ctx context.Context, id string) (AcademicYear, error)
		// ListYears defaults to the "-start_date,-created_at" ordering. Undated years sort last.
		ListYears(ctx context.Context, orderings ...core.DBOrdering) ([]AcademicYear, error)
		// DeleteYear also deletes the classes, subjects, assignments and enrollments of the year.
		DeleteYear(ctx context.Context, id string) error

		InsertClass(ctx context.Context, c ClassLevel) error
		UpdateClass(ctx context.Context, c ClassLevel) error
		GetClass(ctx context.Context, id string) (ClassLevel, error)
		// FindClass looks up a class by (case-insensitive) name, section and year.
		FindClass(ctx context.Context, name, section, yearID string) (ClassLevel, error)
		// ListClasses orders classes by year (as ListYears), number, then section.
		ListClasses(ctx context.Context, filter ClassFilter) ([]ClassLevel, error)
		// DeleteClass also deletes the subjects, assignments and enrollments of the class.
		DeleteClass(ctx context.Context, id string) error

		InsertSubject(ctx context.Context, s Subject) error
		UpdateSubject(ctx context.Context, s Subject) error
		GetSubject(ctx context.Context, id string) (Subject, error)
		// FindSubject looks up a subject of a class by name.
		FindSubject(ctx context.Context, classID, name string) (Subject, error)
		// ListSubjects orders subjects by class (as ListClasses), then name.
		ListSubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error)
		// DeleteSubject also deletes the assignments of the subject.
		DeleteSubject(ctx context.Context, id string) error

		InsertAssignment(ctx context.Context, a TeacherAssignment) error
		UpdateAssignment(ctx context.Context, a TeacherAssignment) error
		GetAssignment(ctx context.Context, id string) (TeacherAssignment, error)
		// FindAssignment looks up the assignment of a (class, subject, year), whoever the teacher.
		FindAssignment(ctx context.Context, classID, subjectID, yearID string) (TeacherAssignment, error)
		ListAssignments(ctx context.Context, filter AssignmentFilter) ([]TeacherAssignment, error)
		DeleteAssignment(ctx context.Context, id string) error

		InsertEnrollment(ctx context.Context, e StudentEnrollment) error
		UpdateEnrollment(ctx context.Context, e StudentEnrollment) error
		// SetEnrollmentStatus only updates the status (and update time) of an enrollment.
		SetEnrollmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error
		GetEnrollment(ctx context.Context, id string) (StudentEnrollment, error)
		// FindEnrollment looks up the enrollment of a student in a (class, year).
		FindEnrollment(ctx context.Context, studentID, classID, yearID string) (StudentEnrollment, error)
		// ListEnrollments orders enrollments by roll number (unset last), then student.
		ListEnrollments(ctx context.Context, filter EnrollmentFilter) ([]StudentEnrollment, error)
		// RollNumberTaken reports whether an enrollment other than excludedID holds roll in the (class, year).
		RollNumberTaken(ctx context.Context, classID, yearID string, roll int, excludedID string) (bool, error)
		// AllocateRollNumber returns 1 + the highest roll number of the (class, year), 1 if there is none.
		// Allocations of a same class are serialized until the end of the transaction.
		AllocateRollNumber(ctx context.Context, classID, yearID string) (int, error)
		DeleteEnrollment(ctx context.Context, id string) error
	}
)
