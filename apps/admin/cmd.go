package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/soma/core/subject"
)

var (
	errHelp       = errors.New("help provided")
	errNoMigrator = errors.New("migrate requires the postgres database engine")
)

type commandLine struct {
	db       *sql.DB // nil unless the postgres engine is used
	subjSvc  subject.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  addsubject -name NAME [-description TEXT] - create a subject")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSubjectCmd := flag.NewFlagSet("addsubject", flag.ContinueOnError)
	addSubjectCmd.SetOutput(cli.out)
	addSubjectName := addSubjectCmd.String("name", "", "The name of the subject.")
	addSubjectDesc := addSubjectCmd.String("description", "", "An optional description.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addsubject":
		if err := addSubjectCmd.Parse(args[2:]); err != nil {
			if err == flag.ErrHelp {
				return errHelp
			}
			return err
		}
		if *addSubjectName == "" {
			addSubjectCmd.Usage()
			return errHelp
		}
		return cli.addSubject(*addSubjectName, *addSubjectDesc)
	default:
		cli.printUsage()
		return errHelp
	}
}
