package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/kat-co/vala"
	"golang.org/x/term"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	migrator   func(command string, args ...string) error
	academics  *academic.Service
	mailer     core.EmailService // flushed before a command returns
	translator ut.Translator
	in         io.Reader
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo|status - run the migrations")
	fmt.Fprintln(cli.out, "  promote -class ID [-year ID] [-yes] - promote the current students of a class")
	fmt.Fprintln(cli.out, "  addclasses -year ID -name NAME [-sections A,B] - create the sections of a class")
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	defer core.FlushEmails(cli.mailer)

	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	promoteCmd := cli.flagSet("promote")
	promoteClass := promoteCmd.String("class", "", "The ID of the class to promote.")
	promoteYear := promoteCmd.String("year", "", "The ID of the target academic year. Defaults to the current one.")
	promoteYes := promoteCmd.Bool("yes", false, "Do not ask for confirmation.")

	addClassesCmd := cli.flagSet("addclasses")
	addClassesYear := addClassesCmd.String("year", "", "The ID of the academic year.")
	addClassesName := addClassesCmd.String("name", "", `The class name, e.g. "Class 4".`)
	addClassesSections := addClassesCmd.String("sections", "", `Comma separated sections, e.g. "A,B".`)

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "promote":
		if err := promoteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := vala.BeginValidation().Validate(
			vala.StringNotEmpty(*promoteClass, "class"),
		).Check(); err != nil {
			fmt.Fprintln(cli.out, err)
			promoteCmd.Usage()
			return errHelp
		}
		return cli.promote(*promoteClass, *promoteYear, *promoteYes)

	case "addclasses":
		if err := addClassesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := vala.BeginValidation().Validate(
			vala.StringNotEmpty(*addClassesYear, "year"),
			vala.StringNotEmpty(*addClassesName, "name"),
		).Check(); err != nil {
			fmt.Fprintln(cli.out, err)
			addClassesCmd.Usage()
			return errHelp
		}
		return cli.addClasses(*addClassesYear, *addClassesName, *addClassesSections)

	default:
		cli.printUsage()
		return errHelp
	}
}

// interactive reports whether the CLI may prompt the user.
func (cli *commandLine) interactive() bool {
	return isTerminalFunc(int(syscall.Stdin))
}
