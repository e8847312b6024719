package note

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
)

var OrderingFields = map[string]string{
	"title":     "title",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type Note struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Subject   subject.Ref `json:"subject"`
	FileKey   null.String `json:"fileKey"`
	FileURL   null.String `json:"fileUrl"`
	CreatedAt time.Time   `json:"createdAt"` // UTC
	UpdatedAt time.Time   `json:"updatedAt"` // UTC
}

// NewNote contains information needed to create a new Note.
type NewNote struct {
	Title   string `json:"title" validate:"notblank"`
	Content string `json:"content" validate:"notblank"`
	Subject string `json:"subject" validate:"required"`
}

func (nn *NewNote) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Content = core.CleanString(nn.Content)
	nn.Subject = core.CleanString(nn.Subject)
	return validate.Struct(nn)
}

// UpdateNote defines what information may be provided to modify an existing Note.
type UpdateNote struct {
	Title   core.OptionalString `json:"title"`
	Content core.OptionalString `json:"content"`
}

func (un *UpdateNote) Validate() error {
	un.Title.Clean()
	un.Content.Clean()

	var fldErrs []core.FieldError
	for _, fld := range []struct {
		name string
		val  core.OptionalString
	}{{"title", un.Title}, {"content", un.Content}} {
		if fld.val.Present && (!fld.val.Value.Valid || fld.val.Value.String == "") {
			fldErrs = append(fldErrs, core.FieldError{Field: fld.name, Error: "this field cannot be blank"})
		}
	}
	if fldErrs != nil {
		return core.NewValidationError(errors.New("invalid note"), fldErrs...)
	}
	return nil
}

func (un UpdateNote) apply(n Note) Note {
	if un.Title.Present {
		n.Title = un.Title.Value.String
	}
	if un.Content.Present {
		n.Content = un.Content.Value.String
	}
	return n
}

// File is an uploaded file to attach to a Note.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// objectKey returns the object store key of a file attached to the note.
func objectKey(noteID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return "notes/" + noteID + "/" + core.NewID() + ext
}
