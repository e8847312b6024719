package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
	"github.com/trezcool/soma/core/quiz"
	"github.com/trezcool/soma/core/subject"
)

var (
	ErrNotFound       = core.NewNotFoundError("Progress")
	ErrNoteNotTracked = &core.NotFoundError{Message: "No progress record found with this note"}
)

type (
	// MutateFunc changes a Progress in place. Returning an error aborts the change.
	MutateFunc func(p *Progress) error

	// Repository returns resolved records: subject name, completed-note titles and quiz titles are joined in.
	Repository interface {
		QueryProgress(ctx context.Context, userID string) ([]Progress, error)
		// GetProgress returns ErrNotFound if the user has no progress in the subject.
		GetProgress(ctx context.Context, key Key) (Progress, error)
		// GetOrCreateProgress atomically creates an empty progress if none exists.
		GetOrCreateProgress(ctx context.Context, key Key) (Progress, error)
		// FindProgressByNote returns the user's progress which completed the note, or ErrNoteNotTracked.
		FindProgressByNote(ctx context.Context, userID, noteID string) (Progress, error)
		// ModifyProgress finds or creates the progress, applies fn and saves it, in one transaction.
		ModifyProgress(ctx context.Context, key Key, fn MutateFunc) (Progress, error)
		// RemoveQuizResults drops the quiz results from all progress records and returns the number of records changed.
		RemoveQuizResults(ctx context.Context, quizID string) (int, error)
	}

	Service interface {
		QueryAll(ctx context.Context, userID string) ([]Progress, error)
		// GetForSubject returns the user's progress in the subject, creating it on first access.
		GetForSubject(ctx context.Context, userID, subjectID string) (Progress, error)
		CompleteNote(ctx context.Context, userID, noteID string) (Progress, error)
		UncompleteNote(ctx context.Context, userID, noteID string) (Progress, error)
		RecordQuizResult(ctx context.Context, userID, subjectID, quizID string, score float64) error
		RemoveQuizResults(ctx context.Context, quizID string) (int, error)
	}

	service struct {
		repo     Repository
		subjRepo subject.Repository
		noteRepo note.Repository
	}
)

var (
	_ Service               = (*service)(nil)
	_ quiz.ProgressRecorder = (*service)(nil)
)

func NewService(repo Repository, subjRepo subject.Repository, noteRepo note.Repository) Service {
	return &service{
		repo:     repo,
		subjRepo: subjRepo,
		noteRepo: noteRepo,
	}
}

func (svc *service) QueryAll(ctx context.Context, userID string) ([]Progress, error) {
	records, err := svc.repo.QueryProgress(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	if records == nil {
		records = []Progress{}
	}
	return records, nil
}

func (svc *service) GetForSubject(ctx context.Context, userID, subjectID string) (Progress, error) {
	key := Key{UserID: userID, SubjectID: subjectID}
	p, err := svc.repo.GetProgress(ctx, key)
	if err == nil {
		return p, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Progress{}, errors.Wrap(err, "getting progress")
	}

	if _, err = svc.subjRepo.GetSubject(ctx, subjectID); err != nil {
		return Progress{}, err
	}
	p, err = svc.repo.GetOrCreateProgress(ctx, key)
	return p, errors.Wrap(err, "creating progress")
}

func (svc *service) CompleteNote(ctx context.Context, userID, noteID string) (Progress, error) {
	n, err := svc.noteRepo.GetNote(ctx, noteID)
	if err != nil {
		return Progress{}, err
	}

	key := Key{UserID: userID, SubjectID: n.Subject.ID}
	p, err := svc.repo.ModifyProgress(ctx, key, func(p *Progress) error {
		p.CompleteNote(n.ID)
		p.Touch(core.Now())
		return nil
	})
	return p, errors.Wrap(err, "completing note")
}

func (svc *service) UncompleteNote(ctx context.Context, userID, noteID string) (Progress, error) {
	found, err := svc.repo.FindProgressByNote(ctx, userID, noteID)
	if err != nil {
		return Progress{}, err
	}

	p, err := svc.repo.ModifyProgress(ctx, found.Key(), func(p *Progress) error {
		if !p.UncompleteNote(noteID) {
			return ErrNoteNotTracked
		}
		p.Touch(core.Now())
		return nil
	})
	return p, errors.Wrap(err, "uncompleting note")
}

func (svc *service) RecordQuizResult(ctx context.Context, userID, subjectID, quizID string, score float64) error {
	key := Key{UserID: userID, SubjectID: subjectID}
	_, err := svc.repo.ModifyProgress(ctx, key, func(p *Progress) error {
		now := core.Now()
		p.RecordQuizResult(quizID, score, now)
		p.Touch(now)
		return nil
	})
	return errors.Wrap(err, "recording quiz result")
}

func (svc *service) RemoveQuizResults(ctx context.Context, quizID string) (int, error) {
	return svc.repo.RemoveQuizResults(ctx, quizID)
}
