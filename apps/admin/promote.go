package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/cems/core/academic"
)

// promote promotes the current students of a class into the next class of a year (the current one by default).
func (cli *commandLine) promote(classID, yearID string, yes bool) error {
	ctx := context.Background()

	class, err := cli.academics.GetClass(ctx, classID)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	var year academic.AcademicYear
	if yearID == "" {
		year, err = cli.academics.CurrentYear(ctx)
	} else {
		year, err = cli.academics.GetYear(ctx, yearID)
	}
	if err != nil {
		return errors.Wrap(err, "getting target academic year")
	}

	if !yes && cli.interactive() {
		enrollments, err := cli.academics.ListEnrollments(ctx, academic.EnrollmentFilter{
			ClassLevelID:   class.ID,
			AcademicYearID: class.AcademicYearID,
			Status:         academic.StatusCurrent,
		})
		if err != nil {
			return errors.Wrap(err, "listing enrollments")
		}
		question := fmt.Sprintf("Promote the %d current student(s) of %s into %s?", len(enrollments), class, year)
		if !cli.confirm(question) {
			return errAborted
		}
	}

	res, err := cli.academics.PromoteClass(ctx, class.ID, year.ID)
	if err != nil {
		return err
	}
	if res.TargetClass == nil {
		fmt.Fprintf(cli.out, "No student to promote in %s.\n", class)
		return nil
	}
	fmt.Fprintf(cli.out, "%d promoted, %d skipped into %s.\n", res.Created, res.Skipped, res.TargetClass.Label(year))
	return nil
}

// confirm asks a yes/no question, no being the default.
func (cli *commandLine) confirm(question string) bool {
	fmt.Fprintf(cli.out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(cli.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
