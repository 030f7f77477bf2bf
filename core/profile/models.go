package profile

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
)

type TeacherProfile struct {
	ID           string      `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Email        string      `json:"email" db:"email"`
	EmployeeCode null.String `json:"employee_code" db:"employee_code"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (tp TeacherProfile) String() string { return "Teacher: " + tp.Name }

type StudentProfile struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	RollNumber null.Int  `json:"roll_number" db:"roll_number"` // last roll number assigned by an enrollment
	CreatedAt  time.Time `json:"created_at" db:"created_at"`   // UTC
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`   // UTC
}

func (sp StudentProfile) String() string { return "Student: " + sp.Name }

// NewTeacher contains information needed to create a new TeacherProfile.
type NewTeacher struct {
	Name         string      `json:"name" validate:"notblank,max=128"`
	Email        string      `json:"email" validate:"omitempty,email,max=254"`
	EmployeeCode null.String `json:"employee_code" validate:"omitempty,max=32"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	if nt.EmployeeCode.Valid {
		nt.EmployeeCode.String = core.CleanString(nt.EmployeeCode.String)
		if nt.EmployeeCode.String == "" {
			nt.EmployeeCode.Valid = false
		}
	}
	return validate.Struct(nt)
}

// NewStudent contains information needed to create a new StudentProfile.
type NewStudent struct {
	Name       string   `json:"name" validate:"notblank,max=128"`
	Email      string   `json:"email" validate:"omitempty,email,max=254"`
	RollNumber null.Int `json:"roll_number" validate:"omitempty,min=1"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.RollNumber.Valid && ns.RollNumber.Int < 1 { // omitempty lets 0 through
		return invalidRollNumber()
	}
	return nil
}

func invalidRollNumber() error {
	return core.NewValidationError(nil, core.FieldError{Field: "roll_number", Error: "roll number must be greater than 0"})
}
