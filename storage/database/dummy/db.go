package dummydb

import (
	"sync"

	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/core/profile"
)

type (
	// DB is an in-memory store. Writes hold the lock for the whole transaction,
	// so transactions are serialized.
	DB struct {
		sync.RWMutex
		tables
	}

	tables struct {
		year       map[string]academic.AcademicYear
		class      map[string]academic.ClassLevel
		subject    map[string]academic.Subject
		assignment map[string]academic.TeacherAssignment
		enrollment map[string]academic.StudentEnrollment
		teacher    map[string]profile.TeacherProfile
		student    map[string]profile.StudentProfile
	}
)

func Open() (*DB, error) {
	db := &DB{
		tables: tables{
			year:       make(map[string]academic.AcademicYear),
			class:      make(map[string]academic.ClassLevel),
			subject:    make(map[string]academic.Subject),
			assignment: make(map[string]academic.TeacherAssignment),
			enrollment: make(map[string]academic.StudentEnrollment),
			teacher:    make(map[string]profile.TeacherProfile),
			student:    make(map[string]profile.StudentProfile),
		},
	}
	return db, nil
}

// snapshot copies all tables; rows are values, so a shallow copy of each map suffices.
func (t tables) snapshot() tables {
	snap := tables{
		year:       make(map[string]academic.AcademicYear, len(t.year)),
		class:      make(map[string]academic.ClassLevel, len(t.class)),
		subject:    make(map[string]academic.Subject, len(t.subject)),
		assignment: make(map[string]academic.TeacherAssignment, len(t.assignment)),
		enrollment: make(map[string]academic.StudentEnrollment, len(t.enrollment)),
		teacher:    make(map[string]profile.TeacherProfile, len(t.teacher)),
		student:    make(map[string]profile.StudentProfile, len(t.student)),
	}
	for k, v := range t.year {
		snap.year[k] = v
	}
	for k, v := range t.class {
		snap.class[k] = v
	}
	for k, v := range t.subject {
		snap.subject[k] = v
	}
	for k, v := range t.assignment {
		snap.assignment[k] = v
	}
	for k, v := range t.enrollment {
		snap.enrollment[k] = v
	}
	for k, v := range t.teacher {
		snap.teacher[k] = v
	}
	for k, v := range t.student {
		snap.student[k] = v
	}
	return snap
}

// deleteClass deletes a class and everything hanging on it.
func (t tables) deleteClass(id string) {
	delete(t.class, id)
	for sid, s := range t.subject {
		if s.ClassLevelID == id {
			t.deleteSubject(sid)
		}
	}
	for aid, a := range t.assignment {
		if a.ClassLevelID == id {
			delete(t.assignment, aid)
		}
	}
	for eid, e := range t.enrollment {
		if e.ClassLevelID == id {
			delete(t.enrollment, eid)
		}
	}
}

func (t tables) deleteSubject(id string) {
	delete(t.subject, id)
	for aid, a := range t.assignment {
		if a.SubjectID == id {
			delete(t.assignment, aid)
		}
	}
}

func (t tables) deleteYear(id string) {
	delete(t.year, id)
	for cid, c := range t.class {
		if c.AcademicYearID == id {
			t.deleteClass(cid)
		}
	}
	for aid, a := range t.assignment {
		if a.AcademicYearID == id {
			delete(t.assignment, aid)
		}
	}
	for eid, e := range t.enrollment {
		if e.AcademicYearID == id {
			delete(t.enrollment, eid)
		}
	}
}
