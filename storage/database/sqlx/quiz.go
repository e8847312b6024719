package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/quiz"
	"github.com/trezcool/soma/core/subject"
)

const quizSelect = `SELECT q.id, q.title, q.subject_id, COALESCE(s.name, '') AS subject_name,
		q.questions, q.created_at, q.updated_at
	FROM quizzes q LEFT JOIN subjects s ON s.id = q.subject_id`

// questionsColumn stores the questions of a quiz as a jsonb document.
type questionsColumn []quiz.Question

func (qc questionsColumn) Value() (driver.Value, error) {
	if qc == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(qc)
}

func (qc *questionsColumn) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*qc = questionsColumn{}
		return nil
	default:
		return errors.Errorf("questionsColumn: cannot scan %T", src)
	}
	return json.Unmarshal(data, (*[]quiz.Question)(qc))
}

type quizRow struct {
	ID          string          `db:"id"`
	Title       string          `db:"title"`
	SubjectID   string          `db:"subject_id"`
	SubjectName string          `db:"subject_name"`
	Questions   questionsColumn `db:"questions"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func newQuizRow(q quiz.Quiz) quizRow {
	return quizRow{
		ID:          q.ID,
		Title:       q.Title,
		SubjectID:   q.Subject.ID,
		SubjectName: q.Subject.Name,
		Questions:   questionsColumn(q.Questions),
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func (row quizRow) quiz() quiz.Quiz {
	questions := []quiz.Question(row.Questions)
	if questions == nil {
		questions = []quiz.Question{}
	}
	return quiz.Quiz{
		ID:        row.ID,
		Title:     row.Title,
		Subject:   subject.Ref{ID: row.SubjectID, Name: row.SubjectName},
		Questions: questions,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to quiz.ErrNotFound
func (repo quizRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return quiz.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	q.ID = core.NewID()
	stmt := `INSERT INTO quizzes (id, title, subject_id, questions, created_at, updated_at)
		VALUES (:id, :title, :subject_id, :questions, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, stmt, newQuizRow(q)); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return repo.GetQuiz(ctx, q.ID)
}

func (repo quizRepository) QueryQuizzes(ctx context.Context, subjectID string, ordering []core.DBOrdering) ([]quiz.Quiz, error) {
	if !core.IsValidID(subjectID) {
		return []quiz.Quiz{}, nil
	}
	var rows []quizRow
	stmt := quizSelect + ` WHERE q.subject_id = $1 ORDER BY ` + orderByClause(ordering, "q", "q.created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, stmt, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, row := range rows {
		quizzes = append(quizzes, row.quiz())
	}
	return quizzes, nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	if !core.IsValidID(id) {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	var row quizRow
	if err := repo.db.GetContext(ctx, &row, quizSelect+` WHERE q.id = $1`, id); err != nil {
		return quiz.Quiz{}, repo.trapNoRowsErr(err, "finding quiz by ID")
	}
	return row.quiz(), nil
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	stmt := `UPDATE quizzes SET title = :title, questions = :questions, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, stmt, newQuizRow(q))
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if err = affectedOrNotFound(res, quiz.ErrNotFound); err != nil {
		return quiz.Quiz{}, err
	}
	return repo.GetQuiz(ctx, q.ID)
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id string) error {
	if !core.IsValidID(id) {
		return quiz.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return affectedOrNotFound(res, quiz.ErrNotFound)
}
