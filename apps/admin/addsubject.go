package main

import (
	"context"
	"fmt"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core/subject"
)

// addSubject creates a subject.Subject
func (cli *commandLine) addSubject(name, description string) error {
	data := subject.NewSubject{Name: name}
	if description != "" {
		data.Description = null.StringFrom(description)
	}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}

	subj, err := cli.subjSvc.Create(context.Background(), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "subject %q created: %s\n", subj.Name, subj.ID)
	return nil
}
