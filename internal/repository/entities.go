package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/taskvault/taskvault/internal/models"
)

// EntityRepository is the gorm-backed CRUD repository shared by the simple
// archive entities (subjects, years, types, authors, tags, roles, solutions,
// files). Missing records come back as (nil, nil).
type EntityRepository[T any] struct {
	db *gorm.DB
}

func EntitiesOf[T any](r *Registry) *EntityRepository[T] {
	return &EntityRepository[T]{db: r.db}
}

func (r *EntityRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var e T
	err := r.db.WithContext(ctx).First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntityRepository[T]) FindAll(ctx context.Context) ([]T, error) {
	var es []T
	err := r.db.WithContext(ctx).Order("id ASC").Find(&es).Error
	return es, err
}

func (r *EntityRepository[T]) Create(ctx context.Context, e *T) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EntityRepository[T]) Save(ctx context.Context, e *T) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// Update applies the payload's non-zero columns to the addressed row. The
// primary key comes from the caller, never from the payload, so a client
// cannot redirect the write to another row or slip in an insert.
func (r *EntityRepository[T]) Update(ctx context.Context, id uint, e *T) error {
	return r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Omit("id").Updates(e).Error
}

func (r *EntityRepository[T]) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(new(T), id).Error
}

// SolutionRepository eagerly loads the author the solution JSON exposes.
type SolutionRepository struct {
	db *gorm.DB
}

func (r *SolutionRepository) loaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Author")
}

func (r *SolutionRepository) FindByID(ctx context.Context, id uint) (*models.Solution, error) {
	var s models.Solution
	err := r.loaded(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SolutionRepository) FindAll(ctx context.Context) ([]models.Solution, error) {
	var ss []models.Solution
	err := r.loaded(ctx).Order("id ASC").Find(&ss).Error
	return ss, err
}

func (r *SolutionRepository) Create(ctx context.Context, s *models.Solution) error {
	return r.db.WithContext(ctx).Omit("Task", "Author").Create(s).Error
}

func (r *SolutionRepository) Save(ctx context.Context, s *models.Solution) error {
	return r.db.WithContext(ctx).Omit("Task", "Author").Save(s).Error
}

func (r *SolutionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Solution{}, id).Error
}

// TaskRepository adds the association handling tasks need on top of plain
// CRUD: authors and tags are many-to-many and always eagerly loaded.
type TaskRepository struct {
	db *gorm.DB
}

func (r *TaskRepository) loaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Subject").
		Preload("AcademicYear").
		Preload("TaskType").
		Preload("Authors").
		Preload("Tags")
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	err := r.loaded(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) FindAll(ctx context.Context) ([]models.Task, error) {
	var ts []models.Task
	err := r.loaded(ctx).Order("id ASC").Find(&ts).Error
	return ts, err
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	return r.db.WithContext(ctx).
		Omit("Subject", "AcademicYear", "TaskType").
		Create(t).Error
}

// Save writes the task's own columns and replaces the author/tag links with
// the resolved sets on the model.
func (r *TaskRepository) Save(ctx context.Context, t *models.Task) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Omit("Subject", "AcademicYear", "TaskType", "Authors", "Tags").Save(t).Error; err != nil {
		return err
	}
	if err := tx.Model(t).Association("Authors").Replace(t.Authors); err != nil {
		return err
	}
	return tx.Model(t).Association("Tags").Replace(t.Tags)
}

func (r *TaskRepository) Delete(ctx context.Context, t *models.Task) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Model(t).Association("Authors").Clear(); err != nil {
		return err
	}
	if err := tx.Model(t).Association("Tags").Clear(); err != nil {
		return err
	}
	return tx.Delete(t).Error
}
