package service

import (
	"context"

	"github.com/taskvault/taskvault/internal/apperr"
	"github.com/taskvault/taskvault/internal/repository"
)

// ReferenceService is the pass-through CRUD service shared by the simple
// archive entities (subjects, academic years, task types, authors, tags,
// roles). Every mutation validates before touching the unit of work, so a
// failed call never leaves a partial write behind.
type ReferenceService[T any] struct {
	uow  *repository.UnitOfWork
	name string
}

func NewReferenceService[T any](uow *repository.UnitOfWork, name string) *ReferenceService[T] {
	return &ReferenceService[T]{uow: uow, name: name}
}

func (s *ReferenceService[T]) GetAll(ctx context.Context) ([]T, error) {
	return repository.EntitiesOf[T](s.uow.Registry()).FindAll(ctx)
}

func (s *ReferenceService[T]) GetByID(ctx context.Context, id int) (*T, error) {
	if id <= 0 {
		return nil, apperr.Argument("id must be positive")
	}
	e, err := repository.EntitiesOf[T](s.uow.Registry()).FindByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound("%s %d not found", s.name, id)
	}
	return e, nil
}

func (s *ReferenceService[T]) Create(ctx context.Context, e *T) error {
	if e == nil {
		return apperr.Argument("%s is required", s.name)
	}
	return s.uow.Do(ctx, func(r *repository.Registry) error {
		return repository.EntitiesOf[T](r).Create(ctx, e)
	})
}

// Update writes the payload onto the row addressed by the path id. The id
// inside the payload is ignored, so a body without one cannot turn into an
// insert and a body with a foreign one cannot overwrite another row.
func (s *ReferenceService[T]) Update(ctx context.Context, id int, e *T) (*T, error) {
	if e == nil {
		return nil, apperr.Argument("%s is required", s.name)
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	err := s.uow.Do(ctx, func(r *repository.Registry) error {
		return repository.EntitiesOf[T](r).Update(ctx, uint(id), e)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *ReferenceService[T]) Delete(ctx context.Context, id int) error {
	// detect missing records before any write; save is never reached
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return s.uow.Do(ctx, func(r *repository.Registry) error {
		return repository.EntitiesOf[T](r).Delete(ctx, uint(id))
	})
}
