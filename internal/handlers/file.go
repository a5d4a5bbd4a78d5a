package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/service"
)

type FileHandler struct {
	Service *service.FileService
}

func optionalUint(s string) *uint {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return nil
	}
	u := uint(v)
	return &u
}

func (h *FileHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "file_upload")

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	defer src.Close()

	file, err := h.Service.Upload(ctx, service.UploadInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        src,
		TaskID:      optionalUint(c.FormValue("task_id")),
		SolutionID:  optionalUint(c.FormValue("solution_id")),
	})
	if err != nil {
		l.Error("upload_failed", "name", fh.Filename, "error", err)
		return httpError(err)
	}

	l.Info("upload_success", "file_id", file.ID, "size", file.Size)
	return c.JSON(http.StatusCreated, file)
}

func (h *FileHandler) List(c echo.Context) error {
	files, err := h.Service.GetAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, files)
}

func (h *FileHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	file, err := h.Service.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, file)
}

func (h *FileHandler) Download(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	file, body, contentType, err := h.Service.Download(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	defer body.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Name+`"`)
	return c.Stream(http.StatusOK, contentType, body)
}

func (h *FileHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Service.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
