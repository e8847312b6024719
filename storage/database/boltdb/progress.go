package boltrepos

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/progress"
)

type (
	resultRecord struct {
		QuizID  string    `json:"quizId"`
		Score   float64   `json:"score"`
		TakenAt time.Time `json:"takenAt"`
	}

	progressRecord struct {
		ID             string         `json:"id"`
		UserID         string         `json:"userId"`
		SubjectID      string         `json:"subjectId"`
		NoteIDs        []string       `json:"noteIds"`
		QuizResults    []resultRecord `json:"quizResults"`
		CreatedAt      time.Time      `json:"createdAt"`
		LastAccessedAt time.Time      `json:"lastAccessedAt"`
	}
)

// progressKey is "<len(userID)>:<userID><subjectID>".
// User IDs are opaque token subjects, so no separator byte is safe; the length prefix keeps
// one user's keys from being a prefix of another's.
func progressKey(key progress.Key) string {
	return userPrefix(key.UserID) + key.SubjectID
}

func userPrefix(userID string) string {
	return strconv.Itoa(len(userID)) + ":" + userID
}

type progressRepository struct {
	db *bbolt.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *bbolt.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo progressRepository) toRecord(p progress.Progress) progressRecord {
	rec := progressRecord{
		ID:             p.ID,
		UserID:         p.UserID,
		SubjectID:      p.Subject.ID,
		NoteIDs:        make([]string, 0, len(p.NotesCompleted)),
		QuizResults:    make([]resultRecord, 0, len(p.QuizResults)),
		CreatedAt:      p.CreatedAt,
		LastAccessedAt: p.LastAccessedAt,
	}
	for _, n := range p.NotesCompleted {
		rec.NoteIDs = append(rec.NoteIDs, n.ID)
	}
	for _, r := range p.QuizResults {
		rec.QuizResults = append(rec.QuizResults, resultRecord{QuizID: r.Quiz.ID, Score: r.Score, TakenAt: r.TakenAt})
	}
	return rec
}

// resolve joins the subject name, the note titles and the quiz titles into the record.
func (repo progressRepository) resolve(tx *bbolt.Tx, rec progressRecord) (progress.Progress, error) {
	ref, err := subjectRef(tx, rec.SubjectID)
	if err != nil {
		return progress.Progress{}, err
	}
	p := progress.Progress{
		ID:             rec.ID,
		UserID:         rec.UserID,
		Subject:        ref,
		NotesCompleted: make([]progress.NoteRef, 0, len(rec.NoteIDs)),
		QuizResults:    make([]progress.QuizResult, 0, len(rec.QuizResults)),
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
	}

	notes := tx.Bucket(notesBucket)
	for _, id := range rec.NoteIDs {
		n, _, err := getJSON[noteRecord](notes, id)
		if err != nil {
			return progress.Progress{}, err
		}
		p.NotesCompleted = append(p.NotesCompleted, progress.NoteRef{ID: id, Title: n.Title})
	}

	quizzes := tx.Bucket(quizzesBucket)
	for _, r := range rec.QuizResults {
		q, _, err := getJSON[quizRecord](quizzes, r.QuizID)
		if err != nil {
			return progress.Progress{}, err
		}
		p.QuizResults = append(p.QuizResults, progress.QuizResult{
			Quiz:    progress.QuizRef{ID: r.QuizID, Title: q.Title},
			Score:   r.Score,
			TakenAt: r.TakenAt,
		})
	}
	return p, nil
}

// getOrCreate returns the stored record of key, creating (and storing) an empty one if needed.
func (repo progressRepository) getOrCreate(tx *bbolt.Tx, key progress.Key) (progressRecord, error) {
	b := tx.Bucket(progressBucket)
	k := progressKey(key)
	rec, found, err := getJSON[progressRecord](b, k)
	if err != nil || found {
		return rec, err
	}
	rec = repo.toRecord(progress.New(core.NewID(), key, core.Now()))
	return rec, putJSON(b, k, rec)
}

func (repo progressRepository) QueryProgress(_ context.Context, userID string) ([]progress.Progress, error) {
	var records []progress.Progress
	err := repo.db.View(func(tx *bbolt.Tx) error {
		recs, err := listJSON[progressRecord](tx.Bucket(progressBucket), userPrefix(userID), nil)
		if err != nil {
			return err
		}
		records = make([]progress.Progress, 0, len(recs))
		for _, rec := range recs {
			p, err := repo.resolve(tx, rec)
			if err != nil {
				return err
			}
			records = append(records, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	orderBy(records, []core.DBOrdering{{Field: "last_accessed_at"}}, map[string]comparator[progress.Progress]{
		"last_accessed_at": func(a, b progress.Progress) int { return compareTimes(a.LastAccessedAt, b.LastAccessedAt) },
	})
	return records, nil
}

func (repo progressRepository) GetProgress(_ context.Context, key progress.Key) (progress.Progress, error) {
	if !core.IsValidID(key.SubjectID) {
		return progress.Progress{}, progress.ErrNotFound
	}
	var p progress.Progress
	err := repo.db.View(func(tx *bbolt.Tx) error {
		rec, found, err := getJSON[progressRecord](tx.Bucket(progressBucket), progressKey(key))
		if err != nil {
			return err
		}
		if !found {
			return progress.ErrNotFound
		}
		p, err = repo.resolve(tx, rec)
		return err
	})
	if err != nil {
		if err == progress.ErrNotFound {
			return progress.Progress{}, err
		}
		return progress.Progress{}, errors.Wrap(err, "getting progress")
	}
	return p, nil
}

func (repo progressRepository) GetOrCreateProgress(_ context.Context, key progress.Key) (progress.Progress, error) {
	var p progress.Progress
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		rec, err := repo.getOrCreate(tx, key)
		if err != nil {
			return err
		}
		p, err = repo.resolve(tx, rec)
		return err
	})
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "getting or creating progress")
	}
	return p, nil
}

func (repo progressRepository) FindProgressByNote(_ context.Context, userID, noteID string) (progress.Progress, error) {
	var p progress.Progress
	err := repo.db.View(func(tx *bbolt.Tx) error {
		recs, err := listJSON(tx.Bucket(progressBucket), userPrefix(userID), func(rec progressRecord) bool {
			for _, id := range rec.NoteIDs {
				if id == noteID {
					return true
				}
			}
			return false
		})
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return progress.ErrNoteNotTracked
		}
		p, err = repo.resolve(tx, recs[0])
		return err
	})
	if err != nil {
		if err == progress.ErrNoteNotTracked {
			return progress.Progress{}, err
		}
		return progress.Progress{}, errors.Wrap(err, "finding progress by note")
	}
	return p, nil
}

func (repo progressRepository) ModifyProgress(_ context.Context, key progress.Key, fn progress.MutateFunc) (progress.Progress, error) {
	var p progress.Progress
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		rec, err := repo.getOrCreate(tx, key)
		if err != nil {
			return err
		}
		if p, err = repo.resolve(tx, rec); err != nil {
			return err
		}
		if err = fn(&p); err != nil {
			return err
		}
		rec = repo.toRecord(p)
		if err = putJSON(tx.Bucket(progressBucket), progressKey(key), rec); err != nil {
			return err
		}
		p, err = repo.resolve(tx, rec)
		return err
	})
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "modifying progress")
	}
	return p, nil
}

func (repo progressRepository) RemoveQuizResults(_ context.Context, quizID string) (int, error) {
	var count int
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(progressBucket)
		recs, err := listJSON(b, "", func(rec progressRecord) bool {
			for _, r := range rec.QuizResults {
				if r.QuizID == quizID {
					return true
				}
			}
			return false
		})
		if err != nil {
			return err
		}
		for _, rec := range recs {
			kept := rec.QuizResults[:0]
			for _, r := range rec.QuizResults {
				if r.QuizID != quizID {
					kept = append(kept, r)
				}
			}
			rec.QuizResults = kept
			if err = putJSON(b, progressKey(progress.Key{UserID: rec.UserID, SubjectID: rec.SubjectID}), rec); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "removing quiz results")
	}
	return count, nil
}
