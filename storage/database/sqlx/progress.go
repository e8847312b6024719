package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/progress"
	"github.com/trezcool/soma/core/subject"
)

const progressSelect = `SELECT p.id, p.user_id, p.subject_id, COALESCE(s.name, '') AS subject_name,
		p.created_at, p.last_accessed_at
	FROM progress p LEFT JOIN subjects s ON s.id = p.subject_id`

type (
	progressRow struct {
		ID             string    `db:"id"`
		UserID         string    `db:"user_id"`
		SubjectID      string    `db:"subject_id"`
		SubjectName    string    `db:"subject_name"`
		CreatedAt      time.Time `db:"created_at"`
		LastAccessedAt time.Time `db:"last_accessed_at"`
	}

	progressNoteRow struct {
		ProgressID string `db:"progress_id"`
		NoteID     string `db:"note_id"`
		Title      string `db:"title"`
		Position   int    `db:"position"`
	}

	quizResultRow struct {
		ProgressID string    `db:"progress_id"`
		QuizID     string    `db:"quiz_id"`
		Title      string    `db:"title"`
		Score      float64   `db:"score"`
		TakenAt    time.Time `db:"taken_at"`
		Position   int       `db:"position"`
	}
)

func (row progressRow) progress() progress.Progress {
	return progress.Progress{
		ID:             row.ID,
		UserID:         row.UserID,
		Subject:        subject.Ref{ID: row.SubjectID, Name: row.SubjectName},
		NotesCompleted: []progress.NoteRef{},
		QuizResults:    []progress.QuizResult{},
		CreatedAt:      row.CreatedAt.UTC(),
		LastAccessedAt: row.LastAccessedAt.UTC(),
	}
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

// resolve loads the completed notes and the quiz results of the rows, with their titles.
func (repo progressRepository) resolve(ctx context.Context, q sqlx.QueryerContext, rows []progressRow) ([]progress.Progress, error) {
	records := make([]progress.Progress, 0, len(rows))
	if len(rows) == 0 {
		return records, nil
	}
	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		ids = append(ids, row.ID)
		index[row.ID] = i
		records = append(records, row.progress())
	}

	var notes []progressNoteRow
	err := sqlx.SelectContext(ctx, q, &notes, `SELECT pn.progress_id, pn.note_id, COALESCE(n.title, '') AS title, pn.position
		FROM progress_notes pn LEFT JOIN notes n ON n.id = pn.note_id
		WHERE pn.progress_id = ANY($1::uuid[]) ORDER BY pn.position`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "loading completed notes")
	}
	for _, n := range notes {
		p := &records[index[n.ProgressID]]
		p.NotesCompleted = append(p.NotesCompleted, progress.NoteRef{ID: n.NoteID, Title: n.Title})
	}

	var results []quizResultRow
	err = sqlx.SelectContext(ctx, q, &results, `SELECT qr.progress_id, qr.quiz_id, COALESCE(q.title, '') AS title,
			qr.score, qr.taken_at, qr.position
		FROM quiz_results qr LEFT JOIN quizzes q ON q.id = qr.quiz_id
		WHERE qr.progress_id = ANY($1::uuid[]) ORDER BY qr.position`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "loading quiz results")
	}
	for _, r := range results {
		p := &records[index[r.ProgressID]]
		p.QuizResults = append(p.QuizResults, progress.QuizResult{
			Quiz:    progress.QuizRef{ID: r.QuizID, Title: r.Title},
			Score:   r.Score,
			TakenAt: r.TakenAt.UTC(),
		})
	}
	return records, nil
}

func (repo progressRepository) getOne(ctx context.Context, q sqlx.QueryerContext, notFound error, where string, args ...interface{}) (progress.Progress, error) {
	var row progressRow
	if err := sqlx.GetContext(ctx, q, &row, progressSelect+" "+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return progress.Progress{}, notFound
		}
		return progress.Progress{}, errors.Wrap(err, "finding progress")
	}
	records, err := repo.resolve(ctx, q, []progressRow{row})
	if err != nil {
		return progress.Progress{}, err
	}
	return records[0], nil
}

// lockOrCreate inserts an empty progress for key unless one exists, then locks its row until tx ends.
func (repo progressRepository) lockOrCreate(ctx context.Context, tx *sqlx.Tx, key progress.Key) (string, error) {
	now := core.Now()
	_, err := tx.ExecContext(ctx, `INSERT INTO progress (id, user_id, subject_id, created_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $4) ON CONFLICT (user_id, subject_id) DO NOTHING`,
		core.NewID(), key.UserID, key.SubjectID, now)
	if err != nil {
		return "", errors.Wrap(err, "inserting progress")
	}

	var id string
	err = tx.GetContext(ctx, &id, `SELECT id FROM progress WHERE user_id = $1 AND subject_id = $2 FOR UPDATE`,
		key.UserID, key.SubjectID)
	return id, errors.Wrap(err, "locking progress")
}

// save overwrites the stored progress with p.
func (repo progressRepository) save(ctx context.Context, tx *sqlx.Tx, p progress.Progress) error {
	_, err := tx.ExecContext(ctx, `UPDATE progress SET last_accessed_at = $1 WHERE id = $2`, p.LastAccessedAt, p.ID)
	if err != nil {
		return errors.Wrap(err, "updating progress")
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM progress_notes WHERE progress_id = $1`, p.ID); err != nil {
		return errors.Wrap(err, "clearing completed notes")
	}
	if len(p.NotesCompleted) > 0 {
		notes := make([]progressNoteRow, 0, len(p.NotesCompleted))
		for i, n := range p.NotesCompleted {
			notes = append(notes, progressNoteRow{ProgressID: p.ID, NoteID: n.ID, Position: i})
		}
		_, err = tx.NamedExecContext(ctx, `INSERT INTO progress_notes (progress_id, note_id, position)
			VALUES (:progress_id, :note_id, :position)`, notes)
		if err != nil {
			return errors.Wrap(err, "inserting completed notes")
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM quiz_results WHERE progress_id = $1`, p.ID); err != nil {
		return errors.Wrap(err, "clearing quiz results")
	}
	if len(p.QuizResults) > 0 {
		results := make([]quizResultRow, 0, len(p.QuizResults))
		for i, r := range p.QuizResults {
			results = append(results, quizResultRow{
				ProgressID: p.ID,
				QuizID:     r.Quiz.ID,
				Score:      r.Score,
				TakenAt:    r.TakenAt,
				Position:   i,
			})
		}
		_, err = tx.NamedExecContext(ctx, `INSERT INTO quiz_results (progress_id, quiz_id, score, taken_at, position)
			VALUES (:progress_id, :quiz_id, :score, :taken_at, :position)`, results)
		if err != nil {
			return errors.Wrap(err, "inserting quiz results")
		}
	}
	return nil
}

func (repo progressRepository) QueryProgress(ctx context.Context, userID string) ([]progress.Progress, error) {
	var rows []progressRow
	err := repo.db.SelectContext(ctx, &rows, progressSelect+` WHERE p.user_id = $1 ORDER BY p.last_accessed_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	return repo.resolve(ctx, repo.db, rows)
}

func (repo progressRepository) GetProgress(ctx context.Context, key progress.Key) (progress.Progress, error) {
	if !core.IsValidID(key.SubjectID) {
		return progress.Progress{}, progress.ErrNotFound
	}
	return repo.getOne(ctx, repo.db, progress.ErrNotFound,
		`WHERE p.user_id = $1 AND p.subject_id = $2`, key.UserID, key.SubjectID)
}

func (repo progressRepository) GetOrCreateProgress(ctx context.Context, key progress.Key) (progress.Progress, error) {
	var p progress.Progress
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id, err := repo.lockOrCreate(ctx, tx, key)
		if err != nil {
			return err
		}
		p, err = repo.getOne(ctx, tx, progress.ErrNotFound, `WHERE p.id = $1`, id)
		return err
	})
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "getting or creating progress")
	}
	return p, nil
}

func (repo progressRepository) FindProgressByNote(ctx context.Context, userID, noteID string) (progress.Progress, error) {
	if !core.IsValidID(noteID) {
		return progress.Progress{}, progress.ErrNoteNotTracked
	}
	return repo.getOne(ctx, repo.db, progress.ErrNoteNotTracked,
		`JOIN progress_notes pn ON pn.progress_id = p.id WHERE p.user_id = $1 AND pn.note_id = $2 LIMIT 1`,
		userID, noteID)
}

func (repo progressRepository) ModifyProgress(ctx context.Context, key progress.Key, fn progress.MutateFunc) (progress.Progress, error) {
	var p progress.Progress
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id, err := repo.lockOrCreate(ctx, tx, key)
		if err != nil {
			return err
		}
		if p, err = repo.getOne(ctx, tx, progress.ErrNotFound, `WHERE p.id = $1`, id); err != nil {
			return err
		}
		if err = fn(&p); err != nil {
			return err
		}
		if err = repo.save(ctx, tx, p); err != nil {
			return err
		}
		p, err = repo.getOne(ctx, tx, progress.ErrNotFound, `WHERE p.id = $1`, id)
		return err
	})
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "modifying progress")
	}
	return p, nil
}

// RemoveQuizResults locks the progress rows holding a result of the quiz before deleting the results,
// so a concurrent ModifyProgress cannot write back a stale copy of them.
func (repo progressRepository) RemoveQuizResults(ctx context.Context, quizID string) (int, error) {
	if !core.IsValidID(quizID) {
		return 0, nil
	}
	var removed int64
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var ids []string
		err := tx.SelectContext(ctx, &ids, `SELECT p.id FROM progress p
			WHERE EXISTS (SELECT 1 FROM quiz_results qr WHERE qr.progress_id = p.id AND qr.quiz_id = $1)
			ORDER BY p.id FOR UPDATE`, quizID)
		if err != nil {
			return errors.Wrap(err, "locking progress")
		}
		if len(ids) == 0 {
			return nil
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM quiz_results WHERE quiz_id = $1`, quizID)
		if err != nil {
			return errors.Wrap(err, "deleting quiz results")
		}
		removed, err = res.RowsAffected()
		return errors.Wrap(err, "counting removed quiz results")
	})
	if err != nil {
		return 0, errors.Wrap(err, "removing quiz results")
	}
	return int(removed), nil
}
