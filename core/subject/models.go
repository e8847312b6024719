package subject

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
)

// OrderingFields maps the orderable API fields to their storage names.
var OrderingFields = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
}

type Subject struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description null.String `json:"description"`
	CreatedAt   time.Time   `json:"createdAt"` // UTC
	UpdatedAt   time.Time   `json:"updatedAt"` // UTC
}

func (s Subject) Ref() Ref {
	return Ref{ID: s.ID, Name: s.Name}
}

// Ref is the resolved reference to a Subject embedded in notes, quizzes and progress records.
// Name is empty when the subject no longer exists.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name        string      `json:"name" validate:"notblank"`
	Description null.String `json:"description"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	if ns.Description.Valid {
		ns.Description.String = core.CleanString(ns.Description.String)
	}
	return validate.Struct(ns)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// A null description clears it; a null name is rejected.
type UpdateSubject struct {
	Name        core.OptionalString `json:"name"`
	Description core.OptionalString `json:"description"`
}

func (us *UpdateSubject) Validate() error {
	us.Name.Clean()
	us.Description.Clean()

	if us.Name.Present && (!us.Name.Value.Valid || us.Name.Value.String == "") {
		return core.NewValidationError(
			errors.New("invalid subject"),
			core.FieldError{Field: "name", Error: "this field cannot be blank"},
		)
	}
	return nil
}

// apply returns s updated with the provided fields.
func (us UpdateSubject) apply(s Subject) Subject {
	if us.Name.Present {
		s.Name = us.Name.Value.String
	}
	s.Description = us.Description.Apply(s.Description)
	return s
}
