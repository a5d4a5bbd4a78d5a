package service

import (
	"context"
	"io"
	"time"

	"github.com/taskvault/taskvault/internal/apperr"
	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
	"github.com/taskvault/taskvault/internal/storage"
)

const uploadFolder = "files"

// FileService couples file metadata rows to blobs in the object store.
// Upload writes the blob first so a storage failure never leaves an
// orphaned row; delete removes the row first and treats the blob delete as
// best-effort cleanup.
type FileService struct {
	uow   *repository.UnitOfWork
	store storage.ObjectStore
	now   func() time.Time
}

func NewFileService(uow *repository.UnitOfWork, store storage.ObjectStore) *FileService {
	return &FileService{uow: uow, store: store, now: time.Now}
}

type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	TaskID      *uint
	SolutionID  *uint
}

func (s *FileService) Upload(ctx context.Context, in UploadInput) (*models.File, error) {
	if in.Name == "" || in.Body == nil {
		return nil, apperr.Argument("file name and content are required")
	}

	obj, err := s.store.Upload(ctx, in.Body, in.Size, in.ContentType, uploadFolder)
	if err != nil {
		return nil, apperr.Storage("upload", err)
	}

	file := &models.File{
		Name:        in.Name,
		Key:         obj.Key,
		URL:         obj.URL,
		Size:        obj.Size,
		ContentType: in.ContentType,
		TaskID:      in.TaskID,
		SolutionID:  in.SolutionID,
		Created:     s.now(),
	}
	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		return repository.EntitiesOf[models.File](r).Create(ctx, file)
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *FileService) GetAll(ctx context.Context) ([]models.File, error) {
	return repository.EntitiesOf[models.File](s.uow.Registry()).FindAll(ctx)
}

func (s *FileService) GetByID(ctx context.Context, id int) (*models.File, error) {
	if id <= 0 {
		return nil, apperr.Argument("id must be positive")
	}
	f, err := repository.EntitiesOf[models.File](s.uow.Registry()).FindByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, apperr.NotFound("file %d not found", id)
	}
	return f, nil
}

// Download streams the blob; the caller owns the reader.
func (s *FileService) Download(ctx context.Context, id int) (*models.File, io.ReadCloser, string, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, "", err
	}
	body, contentType, err := s.store.Download(ctx, f.Key)
	if err != nil {
		return nil, nil, "", apperr.Storage("download", err)
	}
	if contentType == "" {
		contentType = f.ContentType
	}
	return f, body, contentType, nil
}

// Delete removes the metadata row and then the blob. A storage failure is
// logged and tolerated: the row is already gone.
func (s *FileService) Delete(ctx context.Context, id int) error {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		return repository.EntitiesOf[models.File](r).Delete(ctx, uint(id))
	})
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, f.Key); err != nil {
		logging.FromContext(ctx).Warn("storage_delete_failed", "file_id", f.ID, "key", f.Key, "error", err)
	}
	return nil
}
