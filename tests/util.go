package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/core/profile"
	"github.com/trezcool/cems/storage/database/dummy"
)

// Today is the date fixed by Clock.
var Today = core.NewDate(2025, time.October, 15)

// Clock returns noon of Today.
func Clock() time.Time { return Today.Add(12 * time.Hour) }

// Store is an in-memory store with its repositories.
type Store struct {
	DB         *dummydb.DB
	Academics  academic.Repository
	Profiles   profile.Repository
	ProfileSvc *profile.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewValidator returns a validator ready to check the DTOs of all the cores.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	return validate, translator
}

// NewStore returns an empty in-memory store.
func NewStore(t *testing.T) *Store {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	validate, translator := NewValidator()
	s := &Store{
		DB:         db,
		Academics:  dummydb.NewAcademicRepository(db),
		Profiles:   dummydb.NewProfileRepository(db),
		Validate:   validate,
		Translator: translator,
	}
	s.ProfileSvc = profile.NewService(s.Profiles, validate)
	return s
}

// AcademicService returns an academics service on s, reading "today" from Clock.
func (s *Store) AcademicService(logger core.Logger, opts ...academic.Option) *academic.Service {
	if logger == nil {
		logger = new(Logger)
	}
	opts = append([]academic.Option{academic.WithClock(Clock)}, opts...)
	return academic.NewService(s.Academics, s.ProfileSvc, s.Validate, logger, opts...)
}

func nullDate(t time.Time) null.Time {
	if t.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(core.Date(t))
}

// CreateYear inserts an academic year; zero dates are left unset.
func CreateYear(t *testing.T, repo academic.Repository, name string, start, end time.Time, current bool) academic.AcademicYear {
	now := time.Now().UTC()
	y := academic.AcademicYear{
		ID:        uuid.New().String(),
		Name:      name,
		StartDate: nullDate(start),
		EndDate:   nullDate(end),
		IsCurrent: current,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.InsertYear(context.Background(), y); err != nil {
		t.Fatalf("CreateYear() failed: %v", err)
	}
	return y
}

// CreateClass inserts "Class number" (with section) in year.
func CreateClass(t *testing.T, repo academic.Repository, number int, section, yearID string) academic.ClassLevel {
	now := time.Now().UTC()
	c := academic.ClassLevel{
		ID:             uuid.New().String(),
		Name:           academic.ClassName(number),
		Number:         number,
		Section:        section,
		AcademicYearID: yearID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.InsertClass(context.Background(), c); err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

func CreateSubject(t *testing.T, repo academic.Repository, name, code, classID string) academic.Subject {
	now := time.Now().UTC()
	s := academic.Subject{
		ID:           uuid.New().String(),
		Name:         name,
		Code:         code,
		ClassLevelID: classID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.InsertSubject(context.Background(), s); err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

func CreateAssignment(t *testing.T, repo academic.Repository, teacherID string, subj academic.Subject, class academic.ClassLevel) academic.TeacherAssignment {
	now := time.Now().UTC()
	a := academic.TeacherAssignment{
		ID:             uuid.New().String(),
		TeacherID:      teacherID,
		ClassLevelID:   class.ID,
		SubjectID:      subj.ID,
		AcademicYearID: class.AcademicYearID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.InsertAssignment(context.Background(), a); err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

// CreateEnrollment enrolls a student in class; a roll of 0 is left unset.
func CreateEnrollment(t *testing.T, repo academic.Repository, studentID string, class academic.ClassLevel, roll int, status string) academic.StudentEnrollment {
	now := time.Now().UTC()
	e := academic.StudentEnrollment{
		ID:             uuid.New().String(),
		StudentID:      studentID,
		ClassLevelID:   class.ID,
		AcademicYearID: class.AcademicYearID,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if roll > 0 {
		e.RollNumber = null.IntFrom(roll)
	}
	if err := repo.InsertEnrollment(context.Background(), e); err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return e
}

func CreateTeacher(t *testing.T, repo profile.Repository, name, code string) profile.TeacherProfile {
	now := time.Now().UTC()
	tp := profile.TeacherProfile{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if code != "" {
		tp.EmployeeCode = null.StringFrom(code)
	}
	if err := repo.InsertTeacher(context.Background(), tp); err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tp
}

func CreateStudent(t *testing.T, repo profile.Repository, name string) profile.StudentProfile {
	now := time.Now().UTC()
	sp := profile.StudentProfile{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.InsertStudent(context.Background(), sp); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return sp
}

// Logger records what is logged.
type Logger struct {
	mu       sync.Mutex
	Messages map[string][]string // by level
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Messages == nil {
		l.Messages = make(map[string][]string)
	}
	l.Messages[level] = append(l.Messages[level], msg)
}

func (l *Logger) Logged(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Messages[level]...)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { panic(fmt.Sprintf("fatal: %s", msg)) }
