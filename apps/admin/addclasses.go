package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
)

// addClasses creates one class per section, reporting the sections skipped.
func (cli *commandLine) addClasses(yearID, name, sections string) error {
	res, err := cli.academics.CreateClasses(context.Background(), academic.NewClassLevel{
		Name:           name,
		Section:        sections,
		AcademicYearID: yearID,
	})
	if err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			for field, msg := range core.TranslateErrors(vErrs, cli.translator) {
				fmt.Fprintf(cli.out, "%s: %s\n", field, msg)
			}
		}
		return err
	}

	for _, class := range res.Created {
		fmt.Fprintf(cli.out, "created: %s (%s)\n", class, class.ID)
	}
	for _, skipped := range res.Skipped {
		section := skipped.Section
		if section == "" {
			section = "-"
		}
		fmt.Fprintf(cli.out, "skipped: %s: %s\n", section, skipped.Reason)
	}
	return nil
}
