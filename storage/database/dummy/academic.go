package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
)

var defaultYearOrderings = []core.DBOrdering{{Field: "start_date"}, {Field: "created_at"}}

type academicRepository struct {
	db *DB
	tx bool // the write lock is held by the enclosing Atomic
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

func conflict(constraint string) error {
	return errors.WithMessage(core.ErrConflict, constraint)
}

func (repo *academicRepository) rlock() func() {
	if repo.tx {
		return func() {}
	}
	repo.db.RLock()
	return repo.db.RUnlock
}

func (repo *academicRepository) lock() func() {
	if repo.tx {
		return func() {}
	}
	repo.db.Lock()
	return repo.db.Unlock
}

func (repo *academicRepository) Atomic(ctx context.Context, fn func(academic.Repository) error) error {
	if repo.tx {
		return fn(repo)
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	snap := repo.db.tables.snapshot()
	if err := fn(&academicRepository{db: repo.db, tx: true}); err != nil {
		repo.db.tables = snap // rollback
		return err
	}
	return nil
}

// Years

func (repo *academicRepository) checkYear(y academic.AcademicYear) error {
	for _, other := range repo.db.year {
		if other.ID != y.ID && other.Name == y.Name {
			return conflict("academic_year_name_key")
		}
	}
	return nil
}

func (repo *academicRepository) InsertYear(_ context.Context, y academic.AcademicYear) error {
	defer repo.lock()()
	if err := repo.checkYear(y); err != nil {
		return err
	}
	repo.db.year[y.ID] = y
	return nil
}

func (repo *academicRepository) UpdateYear(_ context.Context, y academic.AcademicYear) error {
	defer repo.lock()()
	if _, ok := repo.db.year[y.ID]; !ok {
		return academic.ErrNotFound
	}
	if err := repo.checkYear(y); err != nil {
		return err
	}
	repo.db.year[y.ID] = y
	return nil
}

func (repo *academicRepository) GetYear(_ context.Context, id string) (academic.AcademicYear, error) {
	defer repo.rlock()()
	if y, ok := repo.db.year[id]; ok {
		return y, nil
	}
	return academic.AcademicYear{}, academic.ErrNotFound
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// yearLess orders years by orderings, null dates last whatever the direction.
func yearLess(a, b academic.AcademicYear, orderings []core.DBOrdering) bool {
	for _, ord := range orderings {
		var c int
		switch ord.Field {
		case "name":
			c = strings.Compare(a.Name, b.Name)
		case "created_at":
			c = compareTimes(a.CreatedAt, b.CreatedAt)
		case "start_date", "end_date":
			ta, tb := a.StartDate, b.StartDate
			if ord.Field == "end_date" {
				ta, tb = a.EndDate, b.EndDate
			}
			if ta.Valid != tb.Valid {
				return ta.Valid
			}
			if ta.Valid {
				c = compareTimes(ta.Time, tb.Time)
			}
		}
		if c != 0 {
			return (c < 0) == ord.Ascending
		}
	}
	return a.ID < b.ID
}

func (repo *academicRepository) sortedYears(orderings []core.DBOrdering) []academic.AcademicYear {
	if len(orderings) == 0 {
		orderings = defaultYearOrderings
	}
	years := make([]academic.AcademicYear, 0, len(repo.db.year))
	for _, y := range repo.db.year {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool { return yearLess(years[i], years[j], orderings) })
	return years
}

func (repo *academicRepository) ListYears(_ context.Context, orderings ...core.DBOrdering) ([]academic.AcademicYear, error) {
	defer repo.rlock()()
	return repo.sortedYears(orderings), nil
}

func (repo *academicRepository) DeleteYear(_ context.Context, id string) error {
	defer repo.lock()()
	repo.db.deleteYear(id)
	return nil
}

// Classes

func (repo *academicRepository) checkClass(c academic.ClassLevel) error {
	if _, ok := repo.db.year[c.AcademicYearID]; !ok {
		return academic.ErrNotFound
	}
	for _, other := range repo.db.class {
		if other.ID != c.ID && other.Name == c.Name && other.Section == c.Section && other.AcademicYearID == c.AcademicYearID {
			return conflict("class_level_name_section_academic_year_id_key")
		}
	}
	return nil
}

func (repo *academicRepository) InsertClass(_ context.Context, c academic.ClassLevel) error {
	defer repo.lock()()
	if err := repo.checkClass(c); err != nil {
		return err
	}
	repo.db.class[c.ID] = c
	return nil
}

func (repo *academicRepository) UpdateClass(_ context.Context, c academic.ClassLevel) error {
	defer repo.lock()()
	if _, ok := repo.db.class[c.ID]; !ok {
		return academic.ErrNotFound
	}
	if err := repo.checkClass(c); err != nil {
		return err
	}
	repo.db.class[c.ID] = c
	return nil
}

func (repo *academicRepository) GetClass(_ context.Context, id string) (academic.ClassLevel, error) {
	defer repo.rlock()()
	if c, ok := repo.db.class[id]; ok {
		return c, nil
	}
	return academic.ClassLevel{}, academic.ErrNotFound
}

func (repo *academicRepository) FindClass(_ context.Context, name, section, yearID string) (academic.ClassLevel, error) {
	defer repo.rlock()()
	for _, c := range repo.db.class {
		if strings.EqualFold(c.Name, name) && c.Section == section && c.AcademicYearID == yearID {
			return c, nil
		}
	}
	return academic.ClassLevel{}, academic.ErrNotFound
}

// sortedClasses returns the classes ordered by year, number, then section.
func (repo *academicRepository) sortedClasses(keep func(academic.ClassLevel) bool) []academic.ClassLevel {
	yearRank := make(map[string]int, len(repo.db.year))
	for i, y := range repo.sortedYears(nil) {
		yearRank[y.ID] = i
	}

	classes := make([]academic.ClassLevel, 0)
	for _, c := range repo.db.class {
		if keep == nil || keep(c) {
			classes = append(classes, c)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		ci, cj := classes[i], classes[j]
		if yi, yj := yearRank[ci.AcademicYearID], yearRank[cj.AcademicYearID]; yi != yj {
			return yi < yj
		}
		if ci.Number != cj.Number {
			return ci.Number < cj.Number
		}
		if ci.Section != cj.Section {
			return ci.Section < cj.Section
		}
		return ci.ID < cj.ID
	})
	return classes
}

func (repo *academicRepository) ListClasses(_ context.Context, filter academic.ClassFilter) ([]academic.ClassLevel, error) {
	defer repo.rlock()()
	return repo.sortedClasses(func(c academic.ClassLevel) bool {
		return (filter.AcademicYearID == "" || c.AcademicYearID == filter.AcademicYearID) &&
			(filter.Name == "" || strings.EqualFold(c.Name, filter.Name))
	}), nil
}

func (repo *academicRepository) DeleteClass(_ context.Context, id string) error {
	defer repo.lock()()
	repo.db.deleteClass(id)
	return nil
}

// Subjects

func (repo *academicRepository) checkSubject(s academic.Subject) error {
	if _, ok := repo.db.class[s.ClassLevelID]; !ok {
		return academic.ErrNotFound
	}
	for _, other := range repo.db.subject {
		if other.ID != s.ID && other.Name == s.Name && other.ClassLevelID == s.ClassLevelID {
			return conflict("subject_name_class_level_id_key")
		}
	}
	return nil
}

func (repo *academicRepository) InsertSubject(_ context.Context, s academic.Subject) error {
	defer repo.lock()()
	if err := repo.checkSubject(s); err != nil {
		return err
	}
	repo.db.subject[s.ID] = s
	return nil
}

func (repo *academicRepository) UpdateSubject(_ context.Context, s academic.Subject) error {
	defer repo.lock()()
	if _, ok := repo.db.subject[s.ID]; !ok {
		return academic.ErrNotFound
	}
	if err := repo.checkSubject(s); err != nil {
		return err
	}
	repo.db.subject[s.ID] = s
	return nil
}

func (repo *academicRepository) GetSubject(_ context.Context, id string) (academic.Subject, error) {
	defer repo.rlock()()
	if s, ok := repo.db.subject[id]; ok {
		return s, nil
	}
	return academic.Subject{}, academic.ErrNotFound
}

func (repo *academicRepository) FindSubject(_ context.Context, classID, name string) (academic.Subject, error) {
	defer repo.rlock()()
	for _, s := range repo.db.subject {
		if s.ClassLevelID == classID && strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return academic.Subject{}, academic.ErrNotFound
}

func (repo *academicRepository) ListSubjects(_ context.Context, filter academic.SubjectFilter) ([]academic.Subject, error) {
	defer repo.rlock()()

	classRank := make(map[string]int, len(repo.db.class))
	for i, c := range repo.sortedClasses(nil) {
		classRank[c.ID] = i
	}
	keep := make(map[string]bool, len(filter.ClassLevelIDs))
	for _, id := range filter.ClassLevelIDs {
		keep[id] = true
	}

	subjects := make([]academic.Subject, 0)
	for _, s := range repo.db.subject {
		if len(keep) == 0 || keep[s.ClassLevelID] {
			subjects = append(subjects, s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		si, sj := subjects[i], subjects[j]
		if ci, cj := classRank[si.ClassLevelID], classRank[sj.ClassLevelID]; ci != cj {
			return ci < cj
		}
		if si.Name != sj.Name {
			return si.Name < sj.Name
		}
		return si.ID < sj.ID
	})
	return subjects, nil
}

func (repo *academicRepository) DeleteSubject(_ context.Context, id string) error {
	defer repo.lock()()
	repo.db.deleteSubject(id)
	return nil
}

// Assignments

func (repo *academicRepository) checkAssignment(a academic.TeacherAssignment) error {
	_, okTeacher := repo.db.teacher[a.TeacherID]
	_, okClass := repo.db.class[a.ClassLevelID]
	_, okSubject := repo.db.subject[a.SubjectID]
	_, okYear := repo.db.year[a.AcademicYearID]
	if !okTeacher || !okClass || !okSubject || !okYear {
		return academic.ErrNotFound
	}
	for _, other := range repo.db.assignment {
		if other.ID != a.ID && other.ClassLevelID == a.ClassLevelID && other.SubjectID == a.SubjectID &&
			other.AcademicYearID == a.AcademicYearID {
			return conflict("unique_subject_teacher_per_class_year")
		}
	}
	return nil
}

func (repo *academicRepository) InsertAssignment(_ context.Context, a academic.TeacherAssignment) error {
	defer repo.lock()()
	if err := repo.checkAssignment(a); err != nil {
		return err
	}
	repo.db.assignment[a.ID] = a
	return nil
}

func (repo *academicRepository) UpdateAssignment(_ context.Context, a academic.TeacherAssignment) error {
	defer repo.lock()()
	if _, ok := repo.db.assignment[a.ID]; !ok {
		return academic.ErrNotFound
	}
	if err := repo.checkAssignment(a); err != nil {
		return err
	}
	repo.db.assignment[a.ID] = a
	return nil
}

func (repo *academicRepository) GetAssignment(_ context.Context, id string) (academic.TeacherAssignment, error) {
	defer repo.rlock()()
	if a, ok := repo.db.assignment[id]; ok {
		return a, nil
	}
	return academic.TeacherAssignment{}, academic.ErrNotFound
}

func (repo *academicRepository) FindAssignment(_ context.Context, classID, subjectID, yearID string) (academic.TeacherAssignment, error) {
	defer repo.rlock()()
	for _, a := range repo.db.assignment {
		if a.ClassLevelID == classID && a.SubjectID == subjectID && a.AcademicYearID == yearID {
			return a, nil
		}
	}
	return academic.TeacherAssignment{}, academic.ErrNotFound
}

func (repo *academicRepository) ListAssignments(_ context.Context, filter academic.AssignmentFilter) ([]academic.TeacherAssignment, error) {
	defer repo.rlock()()

	classRank := make(map[string]int, len(repo.db.class))
	for i, c := range repo.sortedClasses(nil) {
		classRank[c.ID] = i
	}

	assignments := make([]academic.TeacherAssignment, 0)
	for _, a := range repo.db.assignment {
		if (filter.TeacherID == "" || a.TeacherID == filter.TeacherID) &&
			(filter.ClassLevelID == "" || a.ClassLevelID == filter.ClassLevelID) &&
			(filter.AcademicYearID == "" || a.AcademicYearID == filter.AcademicYearID) {
			assignments = append(assignments, a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		ai, aj := assignments[i], assignments[j]
		if ci, cj := classRank[ai.ClassLevelID], classRank[aj.ClassLevelID]; ci != cj {
			return ci < cj
		}
		if si, sj := repo.db.subject[ai.SubjectID].Name, repo.db.subject[aj.SubjectID].Name; si != sj {
			return si < sj
		}
		return ai.ID < aj.ID
	})
	return assignments, nil
}

func (repo *academicRepository) DeleteAssignment(_ context.Context, id string) error {
	defer repo.lock()()
	delete(repo.db.assignment, id)
	return nil
}

// Enrollments

func (repo *academicRepository) checkEnrollment(e academic.StudentEnrollment) error {
	_, okStudent := repo.db.student[e.StudentID]
	_, okClass := repo.db.class[e.ClassLevelID]
	_, okYear := repo.db.year[e.AcademicYearID]
	if !okStudent || !okClass || !okYear {
		return academic.ErrNotFound
	}
	for _, other := range repo.db.enrollment {
		if other.ID == e.ID || other.ClassLevelID != e.ClassLevelID || other.AcademicYearID != e.AcademicYearID {
			continue
		}
		if other.StudentID == e.StudentID {
			return conflict("student_enrollment_student_id_class_level_id_academic_year_id_key")
		}
		if e.RollNumber.Valid && other.RollNumber.Valid && other.RollNumber.Int == e.RollNumber.Int {
			return conflict("unique_roll_per_class_year")
		}
	}
	return nil
}

func (repo *academicRepository) InsertEnrollment(_ context.Context, e academic.StudentEnrollment) error {
	defer repo.lock()()
	if err := repo.checkEnrollment(e); err != nil {
		return err
	}
	repo.db.enrollment[e.ID] = e
	return nil
}

func (repo *academicRepository) UpdateEnrollment(_ context.Context, e academic.StudentEnrollment) error {
	defer repo.lock()()
	if _, ok := repo.db.enrollment[e.ID]; !ok {
		return academic.ErrNotFound
	}
	if err := repo.checkEnrollment(e); err != nil {
		return err
	}
	repo.db.enrollment[e.ID] = e
	return nil
}

func (repo *academicRepository) SetEnrollmentStatus(_ context.Context, id, status string, updatedAt time.Time) error {
	defer repo.lock()()
	e, ok := repo.db.enrollment[id]
	if !ok {
		return academic.ErrNotFound
	}
	e.Status = status
	e.UpdatedAt = updatedAt
	repo.db.enrollment[id] = e
	return nil
}

func (repo *academicRepository) GetEnrollment(_ context.Context, id string) (academic.StudentEnrollment, error) {
	defer repo.rlock()()
	if e, ok := repo.db.enrollment[id]; ok {
		return e, nil
	}
	return academic.StudentEnrollment{}, academic.ErrNotFound
}

func (repo *academicRepository) FindEnrollment(_ context.Context, studentID, classID, yearID string) (academic.StudentEnrollment, error) {
	defer repo.rlock()()
	for _, e := range repo.db.enrollment {
		if e.StudentID == studentID && e.ClassLevelID == classID && e.AcademicYearID == yearID {
			return e, nil
		}
	}
	return academic.StudentEnrollment{}, academic.ErrNotFound
}

func (repo *academicRepository) ListEnrollments(_ context.Context, filter academic.EnrollmentFilter) ([]academic.StudentEnrollment, error) {
	defer repo.rlock()()

	ids := make(map[string]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = true
	}
	enrollments := make([]academic.StudentEnrollment, 0)
	for _, e := range repo.db.enrollment {
		if (len(ids) == 0 || ids[e.ID]) &&
			(filter.StudentID == "" || e.StudentID == filter.StudentID) &&
			(filter.ClassLevelID == "" || e.ClassLevelID == filter.ClassLevelID) &&
			(filter.AcademicYearID == "" || e.AcademicYearID == filter.AcademicYearID) &&
			(filter.Status == "" || e.Status == filter.Status) {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		ei, ej := enrollments[i], enrollments[j]
		if ei.RollNumber.Valid != ej.RollNumber.Valid {
			return ei.RollNumber.Valid
		}
		if ei.RollNumber.Int != ej.RollNumber.Int {
			return ei.RollNumber.Int < ej.RollNumber.Int
		}
		if ei.StudentID != ej.StudentID {
			return ei.StudentID < ej.StudentID
		}
		return ei.ID < ej.ID
	})
	return enrollments, nil
}

func (repo *academicRepository) RollNumberTaken(_ context.Context, classID, yearID string, roll int, excludedID string) (bool, error) {
	defer repo.rlock()()
	for _, e := range repo.db.enrollment {
		if e.ID != excludedID && e.ClassLevelID == classID && e.AcademicYearID == yearID &&
			e.RollNumber == null.IntFrom(roll) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *academicRepository) AllocateRollNumber(_ context.Context, classID, yearID string) (int, error) {
	defer repo.rlock()()
	if _, ok := repo.db.class[classID]; !ok {
		return 0, academic.ErrNotFound
	}
	highest := 0
	for _, e := range repo.db.enrollment {
		if e.ClassLevelID == classID && e.AcademicYearID == yearID && e.RollNumber.Valid && e.RollNumber.Int > highest {
			highest = e.RollNumber.Int
		}
	}
	return highest + 1, nil
}

func (repo *academicRepository) DeleteEnrollment(_ context.Context, id string) error {
	defer repo.lock()()
	delete(repo.db.enrollment, id)
	return nil
}
