package quiz

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
)

var ErrNotFound = core.NewNotFoundError("Quiz")

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		QueryQuizzes(ctx context.Context, subjectID string, ordering []core.DBOrdering) ([]Quiz, error)
		// GetQuiz returns ErrNotFound for unknown or malformed IDs.
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		DeleteQuiz(ctx context.Context, id string) error
	}

	// ProgressRecorder keeps the users' quiz results.
	ProgressRecorder interface {
		RecordQuizResult(ctx context.Context, userID, subjectID, quizID string, score float64) error
		RemoveQuizResults(ctx context.Context, quizID string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nq NewQuiz) (Quiz, error)
		QueryBySubject(ctx context.Context, subjectID string, ordering []core.DBOrdering) ([]Quiz, error)
		GetByID(ctx context.Context, id string) (Quiz, error)
		Update(ctx context.Context, id string, uq UpdateQuiz) (Quiz, error)
		// Delete removes the quiz, then its results from every progress record.
		Delete(ctx context.Context, id string) error
		// Submit grades the answers and records the score in the user's progress.
		Submit(ctx context.Context, userID, id string, sub Submission) (Result, error)
	}

	service struct {
		repo     Repository
		subjRepo subject.Repository
		progress ProgressRecorder
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subjRepo subject.Repository, progress ProgressRecorder) Service {
	return &service{
		repo:     repo,
		subjRepo: subjRepo,
		progress: progress,
	}
}

func (svc *service) Create(ctx context.Context, nq NewQuiz) (Quiz, error) {
	subj, err := svc.subjRepo.GetSubject(ctx, nq.Subject)
	if err != nil {
		return Quiz{}, err
	}

	now := core.Now()
	q := Quiz{
		Title:     nq.Title,
		Subject:   subj.Ref(),
		Questions: nq.Questions,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q, err = svc.repo.CreateQuiz(ctx, q)
	return q, errors.Wrap(err, "creating quiz")
}

func (svc *service) QueryBySubject(ctx context.Context, subjectID string, ordering []core.DBOrdering) ([]Quiz, error) {
	quizzes, err := svc.repo.QueryQuizzes(ctx, subjectID, core.CleanOrdering(ordering, OrderingFields))
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	if quizzes == nil {
		quizzes = []Quiz{}
	}
	return quizzes, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, uq UpdateQuiz) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	q = uq.apply(q)
	q.UpdatedAt = core.Now()
	q, err = svc.repo.UpdateQuiz(ctx, q)
	return q, errors.Wrap(err, "updating quiz")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	if _, err := svc.progress.RemoveQuizResults(ctx, id); err != nil {
		return errors.Wrap(err, "removing quiz results")
	}
	return nil
}

func (svc *service) Submit(ctx context.Context, userID, id string, sub Submission) (Result, error) {
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Result{}, err
	}

	res := q.Grade(sub.Answers)
	if err = svc.progress.RecordQuizResult(ctx, userID, q.Subject.ID, q.ID, res.Score); err != nil {
		return Result{}, errors.Wrap(err, "recording quiz result")
	}
	return res, nil
}
