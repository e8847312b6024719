package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
	"github.com/trezcool/soma/core/subject"
)

const noteSelect = `SELECT n.id, n.title, n.content, n.subject_id, COALESCE(s.name, '') AS subject_name,
		n.file_key, n.file_url, n.created_at, n.updated_at
	FROM notes n LEFT JOIN subjects s ON s.id = n.subject_id`

type noteRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Content     string      `db:"content"`
	SubjectID   string      `db:"subject_id"`
	SubjectName string      `db:"subject_name"`
	FileKey     null.String `db:"file_key"`
	FileURL     null.String `db:"file_url"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func newNoteRow(n note.Note) noteRow {
	return noteRow{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		SubjectID:   n.Subject.ID,
		SubjectName: n.Subject.Name,
		FileKey:     n.FileKey,
		FileURL:     n.FileURL,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func (row noteRow) note() note.Note {
	return note.Note{
		ID:        row.ID,
		Title:     row.Title,
		Content:   row.Content,
		Subject:   subject.Ref{ID: row.SubjectID, Name: row.SubjectName},
		FileKey:   row.FileKey,
		FileURL:   row.FileURL,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type noteRepository struct {
	db *sqlx.DB
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(db *sqlx.DB) *noteRepository {
	return &noteRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to note.ErrNotFound
func (repo noteRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return note.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo noteRepository) CreateNote(ctx context.Context, n note.Note) (note.Note, error) {
	n.ID = core.NewID()
	q := `INSERT INTO notes (id, title, content, subject_id, file_key, file_url, created_at, updated_at)
		VALUES (:id, :title, :content, :subject_id, :file_key, :file_url, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newNoteRow(n)); err != nil {
		return note.Note{}, errors.Wrap(err, "inserting note")
	}
	return repo.GetNote(ctx, n.ID)
}

func (repo noteRepository) QueryNotes(ctx context.Context, subjectID string, ordering []core.DBOrdering) ([]note.Note, error) {
	if !core.IsValidID(subjectID) {
		return []note.Note{}, nil
	}
	var rows []noteRow
	q := noteSelect + ` WHERE n.subject_id = $1 ORDER BY ` + orderByClause(ordering, "n", "n.created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	notes := make([]note.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.note())
	}
	return notes, nil
}

func (repo noteRepository) GetNote(ctx context.Context, id string) (note.Note, error) {
	if !core.IsValidID(id) {
		return note.Note{}, note.ErrNotFound
	}
	var row noteRow
	if err := repo.db.GetContext(ctx, &row, noteSelect+` WHERE n.id = $1`, id); err != nil {
		return note.Note{}, repo.trapNoRowsErr(err, "finding note by ID")
	}
	return row.note(), nil
}

func (repo noteRepository) UpdateNote(ctx context.Context, n note.Note) (note.Note, error) {
	q := `UPDATE notes SET title = :title, content = :content, file_key = :file_key, file_url = :file_url,
		updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newNoteRow(n))
	if err != nil {
		return note.Note{}, errors.Wrap(err, "updating note")
	}
	if err = affectedOrNotFound(res, note.ErrNotFound); err != nil {
		return note.Note{}, err
	}
	return repo.GetNote(ctx, n.ID)
}

func (repo noteRepository) DeleteNote(ctx context.Context, id string) error {
	if !core.IsValidID(id) {
		return note.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return affectedOrNotFound(res, note.ErrNotFound)
}
