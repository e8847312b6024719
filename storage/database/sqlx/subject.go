package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
)

type subjectRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row subjectRow) subject() subject.Subject {
	return subject.Subject{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to subject.ErrNotFound
func (repo subjectRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return subject.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	s.ID = core.NewID()
	row := subjectRow{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	q := `INSERT INTO subjects (id, name, description, created_at, updated_at)
		VALUES (:id, :name, :description, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return row.subject(), nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, ordering []core.DBOrdering) ([]subject.Subject, error) {
	var rows []subjectRow
	q := `SELECT s.id, s.name, s.description, s.created_at, s.updated_at FROM subjects s
		ORDER BY ` + orderByClause(ordering, "s", "s.name ASC")
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.subject())
	}
	return subjects, nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, id string) (subject.Subject, error) {
	if !core.IsValidID(id) {
		return subject.Subject{}, subject.ErrNotFound
	}
	var row subjectRow
	q := `SELECT id, name, description, created_at, updated_at FROM subjects WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return subject.Subject{}, repo.trapNoRowsErr(err, "finding subject by ID")
	}
	return row.subject(), nil
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	q := `UPDATE subjects SET name = $2, description = $3, updated_at = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, s.ID, s.Name, s.Description, s.UpdatedAt)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if err = affectedOrNotFound(res, subject.ErrNotFound); err != nil {
		return subject.Subject{}, err
	}
	return s, nil
}

func (repo subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	if !core.IsValidID(id) {
		return subject.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return affectedOrNotFound(res, subject.ErrNotFound)
}
