package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) InsertTeacher(_ context.Context, tp profile.TeacherProfile) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if tp.EmployeeCode.Valid {
		for _, t := range repo.db.teacher {
			if t.EmployeeCode == tp.EmployeeCode {
				return conflict("teacher_profile_employee_code_key")
			}
		}
	}
	repo.db.teacher[tp.ID] = tp
	return nil
}

func (repo *profileRepository) GetTeacher(_ context.Context, id string) (profile.TeacherProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tp, ok := repo.db.teacher[id]; ok {
		return tp, nil
	}
	return profile.TeacherProfile{}, profile.ErrNotFound
}

func (repo *profileRepository) ListTeachers(_ context.Context) ([]profile.TeacherProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := make([]profile.TeacherProfile, 0, len(repo.db.teacher))
	for _, tp := range repo.db.teacher {
		teachers = append(teachers, tp)
	}
	sort.Slice(teachers, func(i, j int) bool {
		if teachers[i].Name != teachers[j].Name {
			return teachers[i].Name < teachers[j].Name
		}
		return teachers[i].ID < teachers[j].ID
	})
	return teachers, nil
}

func (repo *profileRepository) EmployeeCodeExists(_ context.Context, code, excludedID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, tp := range repo.db.teacher {
		if tp.ID != excludedID && tp.EmployeeCode.Valid && tp.EmployeeCode.String == code {
			return true, nil
		}
	}
	return false, nil
}

func (repo *profileRepository) DeleteTeacher(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.teacher, id)
	for aid, a := range repo.db.assignment {
		if a.TeacherID == id {
			delete(repo.db.assignment, aid)
		}
	}
	return nil
}

func (repo *profileRepository) InsertStudent(_ context.Context, sp profile.StudentProfile) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if sp.RollNumber.Valid {
		for _, s := range repo.db.student {
			if s.RollNumber == sp.RollNumber {
				return conflict("student_profile_roll_number_key")
			}
		}
	}
	repo.db.student[sp.ID] = sp
	return nil
}

func (repo *profileRepository) GetStudent(_ context.Context, id string) (profile.StudentProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sp, ok := repo.db.student[id]; ok {
		return sp, nil
	}
	return profile.StudentProfile{}, profile.ErrNotFound
}

func (repo *profileRepository) ListStudents(_ context.Context) ([]profile.StudentProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]profile.StudentProfile, 0, len(repo.db.student))
	for _, sp := range repo.db.student {
		students = append(students, sp)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (repo *profileRepository) RollNumberExists(_ context.Context, roll int, excludedID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sp := range repo.db.student {
		if sp.ID != excludedID && sp.RollNumber == null.IntFrom(roll) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *profileRepository) SetStudentRollNumber(_ context.Context, id string, roll null.Int, updatedAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sp, ok := repo.db.student[id]
	if !ok {
		return profile.ErrNotFound
	}
	if roll.Valid {
		for _, other := range repo.db.student {
			if other.ID != id && other.RollNumber == roll {
				return conflict("student_profile_roll_number_key")
			}
		}
	}
	sp.RollNumber = roll
	sp.UpdatedAt = updatedAt
	repo.db.student[id] = sp
	return nil
}

func (repo *profileRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.student, id)
	for eid, e := range repo.db.enrollment {
		if e.StudentID == id {
			delete(repo.db.enrollment, eid)
		}
	}
	return nil
}
