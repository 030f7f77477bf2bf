package academic

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
)

// Enrollment statuses
const (
	StatusCurrent  = "current"
	StatusPromoted = "promoted"
	StatusArchived = "archived"
)

var Statuses = []string{StatusCurrent, StatusPromoted, StatusArchived}

type AcademicYear struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate null.Time `json:"start_date" db:"start_date"`
	EndDate   null.Time `json:"end_date" db:"end_date"`
	IsCurrent bool      `json:"is_current" db:"is_current"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (y AcademicYear) String() string { return y.Name }

// CalendarYears returns the calendar years spanned by the year's dates.
// A single date spans its own calendar year; no date spans nothing.
func (y AcademicYear) CalendarYears() []int {
	switch {
	case y.StartDate.Valid && y.EndDate.Valid:
		from, to := y.StartDate.Time.Year(), y.EndDate.Time.Year()
		if from > to {
			return nil
		}
		years := make([]int, 0, to-from+1)
		for cy := from; cy <= to; cy++ {
			years = append(years, cy)
		}
		return years
	case y.StartDate.Valid:
		return []int{y.StartDate.Time.Year()}
	case y.EndDate.Valid:
		return []int{y.EndDate.Time.Year()}
	}
	return nil
}

// HasStarted reports whether the year started on or before today. Undated years have.
func (y AcademicYear) HasStarted(today time.Time) bool {
	return !y.StartDate.Valid || !y.StartDate.Time.After(today)
}

// HasEnded reports whether the year ended before today. Years without end date never do.
func (y AcademicYear) HasEnded(today time.Time) bool {
	return y.EndDate.Valid && y.EndDate.Time.Before(today)
}

type ClassLevel struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`     // "Class N"
	Number         int       `json:"number" db:"number"` // N
	Section        string    `json:"section" db:"section"`
	AcademicYearID string    `json:"academic_year_id" db:"academic_year_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// String returns "Class 4 - B", or "Class 4" for classes without section.
func (c ClassLevel) String() string {
	if c.Section == "" {
		return c.Name
	}
	return c.Name + " - " + c.Section
}

// Label returns "Class 4 - B (2025-26)".
func (c ClassLevel) Label(year AcademicYear) string {
	return fmt.Sprintf("%s (%s)", c, year)
}

type Subject struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Code         string    `json:"code" db:"code"`
	ClassLevelID string    `json:"class_level_id" db:"class_level_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type TeacherAssignment struct {
	ID             string    `json:"id" db:"id"`
	TeacherID      string    `json:"teacher_id" db:"teacher_id"`
	ClassLevelID   string    `json:"class_level_id" db:"class_level_id"`
	SubjectID      string    `json:"subject_id" db:"subject_id"`
	AcademicYearID string    `json:"academic_year_id" db:"academic_year_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type StudentEnrollment struct {
	ID             string    `json:"id" db:"id"`
	StudentID      string    `json:"student_id" db:"student_id"`
	ClassLevelID   string    `json:"class_level_id" db:"class_level_id"`
	AcademicYearID string    `json:"academic_year_id" db:"academic_year_id"`
	Status         string    `json:"status" db:"status"`
	RollNumber     null.Int  `json:"roll_number" db:"roll_number"`
	EnrolledOn     null.Time `json:"enrolled_on" db:"enrolled_on"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
}
