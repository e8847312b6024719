package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
	"github.com/trezcool/soma/testutil"
)

var subjRepo subject.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	repos := testutil.OpenBoltRepos(t)
	subjRepo = repos.Subjects

	// not connected until used, and the mocked goose never uses it
	db, err := sql.Open(core.EnginePostgres, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// start CLI
	var out bytes.Buffer
	return &commandLine{
		db:       db,
		subjSvc:  subject.NewService(subjRepo),
		validate: validate,
		out:      &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	if err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, want an error")
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	origRunFunc := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRunFunc })
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if _, err := fs.Stat(fsys, dir+"/00001_create_subjects_notes_quizzes.sql"); err != nil {
			return err
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_tags", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("no postgres", func(t *testing.T) {
		cli.db = nil
		cliTest{wantErr: errNoMigrator}.check(t, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addSubject(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"addsubject"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"addsubject", "-lol", "x"}, wantErrStr: "flag provided but not defined: -lol"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("blank name", func(t *testing.T) {
		err := cli.run([]string{"admin", "addsubject", "-name", "  "})
		verrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "cli.run() error = %v, want validation errors", err)
		assert.Equal(t, "name", verrs[0].Field())
	})

	t.Run("create", func(t *testing.T) {
		out.Reset()
		err := cli.run([]string{"admin", "addsubject", "-name", " Maths ", "-description", "numbers"})
		require.NoError(t, err)

		subjects, err := subjRepo.QuerySubjects(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, subjects, 1)
		assert.Equal(t, "Maths", subjects[0].Name)
		assert.Equal(t, "numbers", subjects[0].Description.String)
		assert.Contains(t, out.String(), subjects[0].ID)
	})
}
