package subject

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
)

var ErrNotFound = core.NewNotFoundError("Subject")

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		QuerySubjects(ctx context.Context, ordering []core.DBOrdering) ([]Subject, error)
		// GetSubject returns ErrNotFound for unknown or malformed IDs.
		GetSubject(ctx context.Context, id string) (Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, ns NewSubject) (Subject, error)
		Query(ctx context.Context, ordering []core.DBOrdering) ([]Subject, error)
		GetByID(ctx context.Context, id string) (Subject, error)
		Update(ctx context.Context, id string, us UpdateSubject) (Subject, error)
		// Delete removes the subject only; its notes, quizzes and progress records are kept.
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := core.Now()
	s := Subject{
		Name:        ns.Name,
		Description: ns.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s, err := svc.repo.CreateSubject(ctx, s)
	return s, errors.Wrap(err, "creating subject")
}

func (svc *service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Subject, error) {
	subjects, err := svc.repo.QuerySubjects(ctx, core.CleanOrdering(ordering, OrderingFields))
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []Subject{}
	}
	return subjects, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	s, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	s = us.apply(s)
	s.UpdatedAt = core.Now()
	s, err = svc.repo.UpdateSubject(ctx, s)
	return s, errors.Wrap(err, "updating subject")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}
