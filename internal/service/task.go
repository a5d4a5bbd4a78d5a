package service

import (
	"context"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/taskvault/taskvault/internal/apperr"
	"github.com/taskvault/taskvault/internal/events"
	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
	"github.com/taskvault/taskvault/internal/search"
)

// EntityRef carries nothing but an id. Relationship fields on task input
// are references, never full entities, so clients cannot smuggle nested
// entity data through an association.
type EntityRef struct {
	ID uint `json:"id"`
}

type TaskInput struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	SubjectID      uint        `json:"subject_id"`
	AcademicYearID uint        `json:"academic_year_id"`
	TaskTypeID     uint        `json:"task_type_id"`
	Authors        []EntityRef `json:"authors"`
	Tags           []EntityRef `json:"tags"`
}

// TaskFilter matches tasks on the intersection of its criteria. Zero-value
// fields are ignored; author and tag sets require every listed id.
type TaskFilter struct {
	SubjectID      uint
	AcademicYearID uint
	TaskTypeID     uint
	AuthorIDs      []uint
	TagIDs         []uint
}

type TaskService struct {
	uow      *repository.UnitOfWork
	es       *elasticsearch.Client
	index    string
	producer *events.Producer
}

func NewTaskService(uow *repository.UnitOfWork, es *elasticsearch.Client, index string, producer *events.Producer) *TaskService {
	return &TaskService{uow: uow, es: es, index: index, producer: producer}
}

func (s *TaskService) GetAll(ctx context.Context) ([]models.Task, error) {
	return s.uow.Registry().Tasks().FindAll(ctx)
}

func (s *TaskService) GetByID(ctx context.Context, id int) (*models.Task, error) {
	if id <= 0 {
		return nil, apperr.Argument("id must be positive")
	}
	t, err := s.uow.Registry().Tasks().FindByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("task %d not found", id)
	}
	return t, nil
}

// GetByFilter loads the archive and filters in memory; per-archive task
// counts are small enough that no query planning is worth it.
func (s *TaskService) GetByFilter(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Task, 0, len(all))
	for _, t := range all {
		if matches(&t, f) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func matches(t *models.Task, f TaskFilter) bool {
	if f.SubjectID != 0 && t.SubjectID != f.SubjectID {
		return false
	}
	if f.AcademicYearID != 0 && t.AcademicYearID != f.AcademicYearID {
		return false
	}
	if f.TaskTypeID != 0 && t.TaskTypeID != f.TaskTypeID {
		return false
	}
	for _, want := range f.AuthorIDs {
		if !containsAuthor(t.Authors, want) {
			return false
		}
	}
	for _, want := range f.TagIDs {
		if !containsTag(t.Tags, want) {
			return false
		}
	}
	return true
}

func containsAuthor(authors []models.Author, id uint) bool {
	for _, a := range authors {
		if a.ID == id {
			return true
		}
	}
	return false
}

func containsTag(tags []models.Tag, id uint) bool {
	for _, t := range tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (s *TaskService) Create(ctx context.Context, in *TaskInput) (*models.Task, error) {
	if in == nil {
		return nil, apperr.Argument("task is required")
	}
	t, err := s.resolve(ctx, in, &models.Task{})
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		return r.Tasks().Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.sideEffects(ctx, "task_created", t)
	return s.GetByID(ctx, int(t.ID))
}

func (s *TaskService) Update(ctx context.Context, id int, in *TaskInput) (*models.Task, error) {
	if in == nil {
		return nil, apperr.Argument("task is required")
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.resolve(ctx, in, existing)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		return r.Tasks().Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.sideEffects(ctx, "task_updated", t)
	return s.GetByID(ctx, id)
}

func (s *TaskService) Delete(ctx context.Context, id int) error {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		return r.Tasks().Delete(ctx, t)
	})
	if err != nil {
		return err
	}

	l := logging.FromContext(ctx)
	if s.es != nil {
		if err := search.DeleteTask(ctx, s.es, s.index, t.ID); err != nil {
			l.Error("search_delete_failed", "task_id", t.ID, "error", err)
		}
	}
	event := map[string]interface{}{"type": "task_deleted", "task_id": t.ID}
	if err := s.producer.PublishEvent(ctx, "archive_events", itoa(t.ID), event); err != nil {
		l.Error("kafka_publish_failed", "type", "task_deleted", "error", err)
	}
	return nil
}

// resolve re-reads every referenced association by id, discarding whatever
// the client attached beyond the ids.
func (s *TaskService) resolve(ctx context.Context, in *TaskInput, t *models.Task) (*models.Task, error) {
	reg := s.uow.Registry()

	if _, err := s.mustExist(ctx, reg, in.SubjectID, "subject"); err != nil {
		return nil, err
	}
	if _, err := s.mustExistYear(ctx, reg, in.AcademicYearID); err != nil {
		return nil, err
	}
	if _, err := s.mustExistType(ctx, reg, in.TaskTypeID); err != nil {
		return nil, err
	}

	authors := make([]models.Author, 0, len(in.Authors))
	for _, ref := range in.Authors {
		a, err := repository.EntitiesOf[models.Author](reg).FindByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, apperr.NotFound("author %d not found", ref.ID)
		}
		authors = append(authors, *a)
	}
	tags := make([]models.Tag, 0, len(in.Tags))
	for _, ref := range in.Tags {
		tag, err := repository.EntitiesOf[models.Tag](reg).FindByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if tag == nil {
			return nil, apperr.NotFound("tag %d not found", ref.ID)
		}
		tags = append(tags, *tag)
	}

	t.Name = in.Name
	t.Description = in.Description
	t.SubjectID = in.SubjectID
	t.AcademicYearID = in.AcademicYearID
	t.TaskTypeID = in.TaskTypeID
	t.Authors = authors
	t.Tags = tags
	return t, nil
}

func (s *TaskService) mustExist(ctx context.Context, reg *repository.Registry, id uint, name string) (*models.Subject, error) {
	sub, err := repository.EntitiesOf[models.Subject](reg).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.NotFound("%s %d not found", name, id)
	}
	return sub, nil
}

func (s *TaskService) mustExistYear(ctx context.Context, reg *repository.Registry, id uint) (*models.AcademicYear, error) {
	y, err := repository.EntitiesOf[models.AcademicYear](reg).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if y == nil {
		return nil, apperr.NotFound("academic year %d not found", id)
	}
	return y, nil
}

func (s *TaskService) mustExistType(ctx context.Context, reg *repository.Registry, id uint) (*models.TaskType, error) {
	tt, err := repository.EntitiesOf[models.TaskType](reg).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tt == nil {
		return nil, apperr.NotFound("task type %d not found", id)
	}
	return tt, nil
}

func (s *TaskService) sideEffects(ctx context.Context, eventType string, t *models.Task) {
	l := logging.FromContext(ctx)
	if s.es != nil {
		if err := search.IndexTask(ctx, s.es, s.index, t); err != nil {
			l.Error("search_index_failed", "task_id", t.ID, "error", err)
		}
	}
	event := map[string]interface{}{"type": eventType, "task_id": t.ID, "name": t.Name}
	if err := s.producer.PublishEvent(ctx, "archive_events", itoa(t.ID), event); err != nil {
		l.Error("kafka_publish_failed", "type", eventType, "error", err)
	}
}

// Search proxies full-text queries to the index and hydrates the hits from
// the database in index order.
func (s *TaskService) Search(ctx context.Context, query string, from, size int) (int64, []models.Task, error) {
	if s.es == nil {
		return 0, nil, apperr.Config("search index is not configured")
	}
	total, ids, err := search.Tasks(ctx, s.es, s.index, query, from, size)
	if err != nil {
		return 0, nil, err
	}
	tasks := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.uow.Registry().Tasks().FindByID(ctx, id)
		if err != nil {
			return 0, nil, err
		}
		if t != nil {
			tasks = append(tasks, *t)
		}
	}
	return total, tasks, nil
}
