package academic

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
)

// YearOrderings are the fields academic years can be ordered by.
var YearOrderings = []string{"name", "start_date", "end_date", "created_at"}

// NewAcademicYear contains information needed to create a new AcademicYear.
type NewAcademicYear struct {
	Name      string    `json:"name" validate:"notblank,max=32"`
	StartDate null.Time `json:"start_date"`
	EndDate   null.Time `json:"end_date"`
	IsCurrent bool      `json:"is_current"`
}

func (ny *NewAcademicYear) Validate(validate *validator.Validate) error {
	ny.Name = core.CleanString(ny.Name)
	ny.StartDate = nullDate(ny.StartDate)
	ny.EndDate = nullDate(ny.EndDate)
	return validate.Struct(ny)
}

// UpdateAcademicYear defines what information may be provided to modify an existing AcademicYear.
// Empty fields (empty name, null dates, nil IsCurrent) keep their original value; ClearDates unsets the dates not provided.
type UpdateAcademicYear struct {
	Name       string    `json:"name" validate:"omitempty,max=32"`
	StartDate  null.Time `json:"start_date"`
	EndDate    null.Time `json:"end_date"`
	ClearDates bool      `json:"clear_dates"`
	IsCurrent  *bool     `json:"is_current"`
}

func (uy *UpdateAcademicYear) Validate(validate *validator.Validate) error {
	uy.Name = core.CleanString(uy.Name)
	uy.StartDate = nullDate(uy.StartDate)
	uy.EndDate = nullDate(uy.EndDate)
	return validate.Struct(uy)
}

// nullDate truncates a valid time to its date.
func nullDate(t null.Time) null.Time {
	if !t.Valid || t.Time.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(core.Date(t.Time))
}

// validateYear checks the dates of year and that no other year holds its name or calendar years.
func validateYear(ctx context.Context, repo Repository, year AcademicYear) error {
	var fe fieldErrors

	if year.StartDate.Valid && year.EndDate.Valid && year.StartDate.Time.After(year.EndDate.Time) {
		fe.add(ErrInvalidDateRange, "end_date", "End date must be on or after the start date.")
	}

	years, err := repo.ListYears(ctx)
	if err != nil {
		return errors.Wrap(err, "listing academic years")
	}

	spanned := make(map[int]bool)
	for _, cy := range year.CalendarYears() {
		spanned[cy] = true
	}
	var (
		overlaps []int
		holders  []string
	)
	for _, other := range years {
		if other.ID == year.ID {
			continue
		}
		if other.Name == year.Name {
			fe.add(ErrDuplicateYearName, "name", "An academic year with this name already exists.")
		}
		var held bool
		for _, cy := range other.CalendarYears() {
			if spanned[cy] {
				overlaps = append(overlaps, cy)
				held = true
			}
		}
		if held {
			holders = append(holders, other.Name)
		}
	}
	if len(overlaps) > 0 {
		sort.Ints(overlaps)
		cys := make([]string, 0, len(overlaps))
		for _, cy := range overlaps {
			cys = append(cys, strconv.Itoa(cy))
		}
		fe.add(ErrOverlappingYear, core.NonFieldErrors, fmt.Sprintf(
			"Academic year overlaps calendar year(s) %s already covered by %s.",
			strings.Join(cys, ", "), strings.Join(holders, ", "),
		))
	}
	return fe.err()
}

func (svc *Service) CreateYear(ctx context.Context, ny NewAcademicYear) (AcademicYear, error) {
	if err := ny.Validate(svc.validate); err != nil {
		return AcademicYear{}, err
	}

	now := svc.timestamp()
	year := AcademicYear{
		ID:        uuid.New().String(),
		Name:      ny.Name,
		StartDate: ny.StartDate,
		EndDate:   ny.EndDate,
		IsCurrent: ny.IsCurrent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		if err := validateYear(ctx, repo, year); err != nil {
			return err
		}
		return errors.Wrap(repo.InsertYear(ctx, year), "inserting academic year")
	})
	if err != nil {
		return AcademicYear{}, err
	}
	return year, nil
}

func (svc *Service) UpdateYear(ctx context.Context, id string, uy UpdateAcademicYear) (AcademicYear, error) {
	if err := uy.Validate(svc.validate); err != nil {
		return AcademicYear{}, err
	}

	var year AcademicYear
	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		var err error
		if year, err = repo.GetYear(ctx, id); err != nil {
			return err
		}
		if uy.Name != "" {
			year.Name = uy.Name
		}
		if uy.IsCurrent != nil {
			year.IsCurrent = *uy.IsCurrent
		}
		if uy.ClearDates {
			year.StartDate, year.EndDate = null.Time{}, null.Time{}
		}
		if uy.StartDate.Valid {
			year.StartDate = uy.StartDate
		}
		if uy.EndDate.Valid {
			year.EndDate = uy.EndDate
		}
		year.UpdatedAt = svc.timestamp()

		if err = validateYear(ctx, repo, year); err != nil {
			return err
		}
		return errors.Wrap(repo.UpdateYear(ctx, year), "updating academic year")
	})
	if err != nil {
		return AcademicYear{}, err
	}
	return year, nil
}

func (svc *Service) GetYear(ctx context.Context, id string) (AcademicYear, error) {
	return svc.repo.GetYear(ctx, id)
}

// ListYears orders years by orderings (fields of YearOrderings), "-start_date,-created_at" by default.
func (svc *Service) ListYears(ctx context.Context, orderings ...core.DBOrdering) ([]AcademicYear, error) {
	var ords []core.DBOrdering
	for _, ord := range orderings {
		for _, field := range YearOrderings {
			if ord.Field == field {
				ords = append(ords, ord)
				break
			}
		}
	}
	return svc.repo.ListYears(ctx, ords...)
}

func (svc *Service) DeleteYear(ctx context.Context, id string) error {
	return svc.repo.DeleteYear(ctx, id)
}

// CurrentYear returns the year marked current. When several are,
// the one starting last wins (undated years lose), then the one created last.
func (svc *Service) CurrentYear(ctx context.Context) (AcademicYear, error) {
	years, err := svc.repo.ListYears(ctx)
	if err != nil {
		return AcademicYear{}, errors.Wrap(err, "listing academic years")
	}
	for _, y := range years {
		if y.IsCurrent {
			return y, nil
		}
	}
	return AcademicYear{}, ErrNotFound
}
