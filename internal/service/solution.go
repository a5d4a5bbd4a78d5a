package service

import (
	"context"

	"github.com/taskvault/taskvault/internal/apperr"
	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
)

type SolutionInput struct {
	TaskID      uint   `json:"task_id"`
	AuthorID    uint   `json:"author_id"`
	Description string `json:"description"`
}

// SolutionService is plain pass-through CRUD; the task and author
// references are re-checked by id on every write.
type SolutionService struct {
	uow *repository.UnitOfWork
}

func NewSolutionService(uow *repository.UnitOfWork) *SolutionService {
	return &SolutionService{uow: uow}
}

func (s *SolutionService) GetAll(ctx context.Context) ([]models.Solution, error) {
	return s.uow.Registry().Solutions().FindAll(ctx)
}

func (s *SolutionService) GetByID(ctx context.Context, id int) (*models.Solution, error) {
	if id <= 0 {
		return nil, apperr.Argument("id must be positive")
	}
	sol, err := s.uow.Registry().Solutions().FindByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if sol == nil {
		return nil, apperr.NotFound("solution %d not found", id)
	}
	return sol, nil
}

func (s *SolutionService) Create(ctx context.Context, in *SolutionInput) (*models.Solution, error) {
	if in == nil {
		return nil, apperr.Argument("solution is required")
	}
	if err := s.checkRefs(ctx, in); err != nil {
		return nil, err
	}

	sol := &models.Solution{
		TaskID:      in.TaskID,
		AuthorID:    in.AuthorID,
		Description: in.Description,
	}
	err := s.uow.Do(ctx, func(r *repository.Registry) error {
		return r.Solutions().Create(ctx, sol)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, int(sol.ID))
}

func (s *SolutionService) Update(ctx context.Context, id int, in *SolutionInput) (*models.Solution, error) {
	if in == nil {
		return nil, apperr.Argument("solution is required")
	}
	sol, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, in); err != nil {
		return nil, err
	}

	sol.TaskID = in.TaskID
	sol.AuthorID = in.AuthorID
	sol.Description = in.Description
	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		return r.Solutions().Save(ctx, sol)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *SolutionService) Delete(ctx context.Context, id int) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return s.uow.Do(ctx, func(r *repository.Registry) error {
		return r.Solutions().Delete(ctx, uint(id))
	})
}

func (s *SolutionService) checkRefs(ctx context.Context, in *SolutionInput) error {
	reg := s.uow.Registry()
	t, err := repository.EntitiesOf[models.Task](reg).FindByID(ctx, in.TaskID)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("task %d not found", in.TaskID)
	}
	a, err := repository.EntitiesOf[models.Author](reg).FindByID(ctx, in.AuthorID)
	if err != nil {
		return err
	}
	if a == nil {
		return apperr.NotFound("author %d not found", in.AuthorID)
	}
	return nil
}
