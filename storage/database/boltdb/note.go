package boltrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"go.etcd.io/bbolt"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
)

// noteRecord is the stored form of a note.Note: the subject is referenced by ID only.
type noteRecord struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	SubjectID string      `json:"subjectId"`
	FileKey   null.String `json:"fileKey"`
	FileURL   null.String `json:"fileUrl"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

var noteFields = map[string]comparator[note.Note]{
	"title":      func(a, b note.Note) int { return compareStrings(a.Title, b.Title) },
	"created_at": func(a, b note.Note) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b note.Note) int { return compareTimes(a.UpdatedAt, b.UpdatedAt) },
}

var defaultNoteOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}

type noteRepository struct {
	db *bbolt.DB
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(db *bbolt.DB) *noteRepository {
	return &noteRepository{db: db}
}

func (repo noteRepository) toRecord(n note.Note) noteRecord {
	return noteRecord{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		SubjectID: n.Subject.ID,
		FileKey:   n.FileKey,
		FileURL:   n.FileURL,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (repo noteRepository) resolve(tx *bbolt.Tx, rec noteRecord) (note.Note, error) {
	ref, err := subjectRef(tx, rec.SubjectID)
	if err != nil {
		return note.Note{}, err
	}
	return note.Note{
		ID:        rec.ID,
		Title:     rec.Title,
		Content:   rec.Content,
		Subject:   ref,
		FileKey:   rec.FileKey,
		FileURL:   rec.FileURL,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (repo noteRepository) save(n note.Note, mustExist bool) (note.Note, error) {
	var saved note.Note
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(notesBucket)
		if mustExist && b.Get([]byte(n.ID)) == nil {
			return note.ErrNotFound
		}
		rec := repo.toRecord(n)
		if err := putJSON(b, rec.ID, rec); err != nil {
			return err
		}
		var err error
		saved, err = repo.resolve(tx, rec)
		return err
	})
	return saved, err
}

func (repo noteRepository) CreateNote(_ context.Context, n note.Note) (note.Note, error) {
	n.ID = core.NewID()
	n, err := repo.save(n, false)
	if err != nil {
		return note.Note{}, errors.Wrap(err, "inserting note")
	}
	return n, nil
}

func (repo noteRepository) QueryNotes(_ context.Context, subjectID string, ordering []core.DBOrdering) ([]note.Note, error) {
	var notes []note.Note
	err := repo.db.View(func(tx *bbolt.Tx) error {
		recs, err := listJSON(tx.Bucket(notesBucket), "", func(rec noteRecord) bool {
			return rec.SubjectID == subjectID
		})
		if err != nil {
			return err
		}
		notes = make([]note.Note, 0, len(recs))
		for _, rec := range recs {
			n, err := repo.resolve(tx, rec)
			if err != nil {
				return err
			}
			notes = append(notes, n)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	if len(ordering) == 0 {
		ordering = defaultNoteOrdering
	}
	orderBy(notes, ordering, noteFields)
	return notes, nil
}

func (repo noteRepository) GetNote(_ context.Context, id string) (note.Note, error) {
	if !core.IsValidID(id) {
		return note.Note{}, note.ErrNotFound
	}
	var n note.Note
	err := repo.db.View(func(tx *bbolt.Tx) error {
		rec, found, err := getJSON[noteRecord](tx.Bucket(notesBucket), id)
		if err != nil {
			return err
		}
		if !found {
			return note.ErrNotFound
		}
		n, err = repo.resolve(tx, rec)
		return err
	})
	if err != nil {
		if err == note.ErrNotFound {
			return note.Note{}, err
		}
		return note.Note{}, errors.Wrap(err, "finding note by ID")
	}
	return n, nil
}

func (repo noteRepository) UpdateNote(_ context.Context, n note.Note) (note.Note, error) {
	n, err := repo.save(n, true)
	if err != nil {
		if err == note.ErrNotFound {
			return note.Note{}, err
		}
		return note.Note{}, errors.Wrap(err, "updating note")
	}
	return n, nil
}

func (repo noteRepository) DeleteNote(_ context.Context, id string) error {
	if !core.IsValidID(id) {
		return note.ErrNotFound
	}
	err := repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(notesBucket)
		if b.Get([]byte(id)) == nil {
			return note.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
	if err != nil && err != note.ErrNotFound {
		return errors.Wrap(err, "deleting note")
	}
	return err
}
