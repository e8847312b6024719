package boltrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/quiz"
)

type quizRecord struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	SubjectID string          `json:"subjectId"`
	Questions []quiz.Question `json:"questions"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

var quizFields = map[string]comparator[quiz.Quiz]{
	"title":      func(a, b quiz.Quiz) int { return compareStrings(a.Title, b.Title) },
	"created_at": func(a, b quiz.Quiz) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b quiz.Quiz) int { return compareTimes(a.UpdatedAt, b.UpdatedAt) },
}

var defaultQuizOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}

type quizRepository struct {
	db *bbolt.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *bbolt.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo quizRepository) toRecord(q quiz.Quiz) quizRecord {
	return quizRecord{
		ID:        q.ID,
		Title:     q.Title,
		SubjectID: q.Subject.ID,
		Questions: q.Questions,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func (repo quizRepository) resolve(tx *bbolt.Tx, rec quizRecord) (quiz.Quiz, error) {
	ref, err := subjectRef(tx, rec.SubjectID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	questions := rec.Questions
	if questions == nil {
		questions = []quiz.Question{}
	}
	return quiz.Quiz{
		ID:        rec.ID,
		Title:     rec.Title,
		Subject:   ref,
		Questions: questions,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (repo quizRepository) save(q quiz.Quiz, mustExist bool) (quiz.Quiz, error) {
	var saved quiz.Quiz
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(quizzesBucket)
		if mustExist && b.Get([]byte(q.ID)) == nil {
			return quiz.ErrNotFound
		}
		rec := repo.toRecord(q)
		if err := putJSON(b, rec.ID, rec); err != nil {
			return err
		}
		var err error
		saved, err = repo.resolve(tx, rec)
		return err
	})
	return saved, err
}

func (repo quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	q.ID = core.NewID()
	q, err := repo.save(q, false)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return q, nil
}

func (repo quizRepository) QueryQuizzes(_ context.Context, subjectID string, ordering []core.DBOrdering) ([]quiz.Quiz, error) {
	var quizzes []quiz.Quiz
	err := repo.db.View(func(tx *bbolt.Tx) error {
		recs, err := listJSON(tx.Bucket(quizzesBucket), "", func(rec quizRecord) bool {
			return rec.SubjectID == subjectID
		})
		if err != nil {
			return err
		}
		quizzes = make([]quiz.Quiz, 0, len(recs))
		for _, rec := range recs {
			q, err := repo.resolve(tx, rec)
			if err != nil {
				return err
			}
			quizzes = append(quizzes, q)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	if len(ordering) == 0 {
		ordering = defaultQuizOrdering
	}
	orderBy(quizzes, ordering, quizFields)
	return quizzes, nil
}

func (repo quizRepository) GetQuiz(_ context.Context, id string) (quiz.Quiz, error) {
	if !core.IsValidID(id) {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	var q quiz.Quiz
	err := repo.db.View(func(tx *bbolt.Tx) error {
		rec, found, err := getJSON[quizRecord](tx.Bucket(quizzesBucket), id)
		if err != nil {
			return err
		}
		if !found {
			return quiz.ErrNotFound
		}
		q, err = repo.resolve(tx, rec)
		return err
	})
	if err != nil {
		if err == quiz.ErrNotFound {
			return quiz.Quiz{}, err
		}
		return quiz.Quiz{}, errors.Wrap(err, "finding quiz by ID")
	}
	return q, nil
}

func (repo quizRepository) UpdateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	q, err := repo.save(q, true)
	if err != nil {
		if err == quiz.ErrNotFound {
			return quiz.Quiz{}, err
		}
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	return q, nil
}

func (repo quizRepository) DeleteQuiz(_ context.Context, id string) error {
	if !core.IsValidID(id) {
		return quiz.ErrNotFound
	}
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(quizzesBucket)
		if b.Get([]byte(id)) == nil {
			return quiz.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
	if err != nil && err != quiz.ErrNotFound {
		return errors.Wrap(err, "deleting quiz")
	}
	return err
}
