package boltrepos

import (
	"context"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
)

var subjectFields = map[string]comparator[subject.Subject]{
	"name":       func(a, b subject.Subject) int { return compareStrings(a.Name, b.Name) },
	"created_at": func(a, b subject.Subject) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

var defaultSubjectOrdering = []core.DBOrdering{{Field: "name", Ascending: true}}

type subjectRepository struct {
	db *bbolt.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *bbolt.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

// subjectRef resolves the reference to a subject; the name stays empty if it was deleted.
func subjectRef(tx *bbolt.Tx, id string) (subject.Ref, error) {
	s, _, err := getJSON[subject.Subject](tx.Bucket(subjectsBucket), id)
	if err != nil {
		return subject.Ref{}, err
	}
	return subject.Ref{ID: id, Name: s.Name}, nil
}

func (repo subjectRepository) CreateSubject(_ context.Context, s subject.Subject) (subject.Subject, error) {
	s.ID = core.NewID()
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(subjectsBucket), s.ID, s)
	})
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo subjectRepository) QuerySubjects(_ context.Context, ordering []core.DBOrdering) ([]subject.Subject, error) {
	var subjects []subject.Subject
	err := repo.db.View(func(tx *bbolt.Tx) error {
		var err error
		subjects, err = listJSON[subject.Subject](tx.Bucket(subjectsBucket), "", nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	if len(ordering) == 0 {
		ordering = defaultSubjectOrdering
	}
	orderBy(subjects, ordering, subjectFields)
	return subjects, nil
}

func (repo subjectRepository) GetSubject(_ context.Context, id string) (subject.Subject, error) {
	if !core.IsValidID(id) {
		return subject.Subject{}, subject.ErrNotFound
	}
	var s subject.Subject
	var found bool
	err := repo.db.View(func(tx *bbolt.Tx) error {
		var err error
		s, found, err = getJSON[subject.Subject](tx.Bucket(subjectsBucket), id)
		return err
	})
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "finding subject by ID")
	}
	if !found {
		return subject.Subject{}, subject.ErrNotFound
	}
	return s, nil
}

func (repo subjectRepository) UpdateSubject(_ context.Context, s subject.Subject) (subject.Subject, error) {
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(subjectsBucket)
		if b.Get([]byte(s.ID)) == nil {
			return subject.ErrNotFound
		}
		return putJSON(b, s.ID, s)
	})
	if err != nil {
		if err == subject.ErrNotFound {
			return subject.Subject{}, err
		}
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	return s, nil
}

func (repo subjectRepository) DeleteSubject(_ context.Context, id string) error {
	if !core.IsValidID(id) {
		return subject.ErrNotFound
	}
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(subjectsBucket)
		if b.Get([]byte(id)) == nil {
			return subject.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
	if err != nil && err != subject.ErrNotFound {
		return errors.Wrap(err, "deleting subject")
	}
	return err
}
