package note

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
)

var ErrNotFound = core.NewNotFoundError("Note")

type (
	Repository interface {
		CreateNote(ctx context.Context, n Note) (Note, error)
		// QueryNotes returns the notes of a subject, resolved with the subject name.
		QueryNotes(ctx context.Context, subjectID string, ordering []core.DBOrdering) ([]Note, error)
		// GetNote returns ErrNotFound for unknown or malformed IDs.
		GetNote(ctx context.Context, id string) (Note, error)
		UpdateNote(ctx context.Context, n Note) (Note, error)
		DeleteNote(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, nn NewNote) (Note, error)
		QueryBySubject(ctx context.Context, subjectID string, ordering []core.DBOrdering) ([]Note, error)
		GetByID(ctx context.Context, id string) (Note, error)
		Update(ctx context.Context, id string, un UpdateNote) (Note, error)
		// Delete removes the note record, then its file (best effort).
		// Progress records that completed the note are left untouched.
		Delete(ctx context.Context, id string) error
		// AttachFile stores the file and references it from the note, replacing any previous file.
		AttachFile(ctx context.Context, id string, file File) (Note, error)
	}

	service struct {
		repo     Repository
		subjRepo subject.Repository
		store    core.ObjectStore
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subjRepo subject.Repository, store core.ObjectStore, logger core.Logger) Service {
	return &service{
		repo:     repo,
		subjRepo: subjRepo,
		store:    store,
		logger:   logger,
	}
}

func (svc *service) Create(ctx context.Context, nn NewNote) (Note, error) {
	subj, err := svc.subjRepo.GetSubject(ctx, nn.Subject)
	if err != nil {
		return Note{}, err
	}

	now := core.Now()
	n := Note{
		Title:     nn.Title,
		Content:   nn.Content,
		Subject:   subj.Ref(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	n, err = svc.repo.CreateNote(ctx, n)
	return n, errors.Wrap(err, "creating note")
}

func (svc *service) QueryBySubject(ctx context.Context, subjectID string, ordering []core.DBOrdering) ([]Note, error) {
	notes, err := svc.repo.QueryNotes(ctx, subjectID, core.CleanOrdering(ordering, OrderingFields))
	if err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Note, error) {
	return svc.repo.GetNote(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, un UpdateNote) (Note, error) {
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}
	n = un.apply(n)
	n.UpdatedAt = core.Now()
	n, err = svc.repo.UpdateNote(ctx, n)
	return n, errors.Wrap(err, "updating note")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteNote(ctx, id); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	if n.FileKey.Valid {
		svc.removeFile(ctx, n.FileKey.String)
	}
	return nil
}

func (svc *service) AttachFile(ctx context.Context, id string, file File) (Note, error) {
	if file.Content == nil {
		return Note{}, core.ErrNoFile
	}
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}

	key := objectKey(n.ID, file.Name)
	url, err := svc.store.Put(ctx, key, file.Content, file.Size, file.ContentType)
	if err != nil {
		return Note{}, errors.Wrap(err, "storing file")
	}

	oldKey := n.FileKey
	n.FileKey = null.StringFrom(key)
	n.FileURL = null.StringFrom(url)
	n.UpdatedAt = core.Now()
	updated, err := svc.repo.UpdateNote(ctx, n)
	if err != nil {
		svc.removeFile(ctx, key)
		return Note{}, errors.Wrap(err, "attaching file to note")
	}

	if oldKey.Valid && oldKey.String != key {
		svc.removeFile(ctx, oldKey.String)
	}
	return updated, nil
}

// removeFile deletes the object stored under key; a failure leaves an orphaned object and is only logged.
func (svc *service) removeFile(ctx context.Context, key string) {
	if err := svc.store.Delete(ctx, key); err != nil {
		msg := fmt.Sprintf("deleting file %q", key)
		svc.logger.Error(msg, errors.Wrap(err, msg))
	}
}
