package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskvault/taskvault/internal/service"
	"github.com/taskvault/taskvault/internal/util"
)

type TaskHandler struct {
	Service *service.TaskService
}

func (h *TaskHandler) List(c echo.Context) error {
	tasks, err := h.Service.GetAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.Service.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func parseUint(s string) uint {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func parseUintList(s string) []uint {
	if s == "" {
		return nil
	}
	var out []uint
	for _, part := range strings.Split(s, ",") {
		if v := parseUint(strings.TrimSpace(part)); v != 0 {
			out = append(out, v)
		}
	}
	return out
}

func (h *TaskHandler) Filter(c echo.Context) error {
	f := service.TaskFilter{
		SubjectID:      parseUint(c.QueryParam("subjectId")),
		AcademicYearID: parseUint(c.QueryParam("yearId")),
		TaskTypeID:     parseUint(c.QueryParam("typeId")),
		AuthorIDs:      parseUintList(c.QueryParam("authorIds")),
		TagIDs:         parseUintList(c.QueryParam("tagIds")),
	}
	tasks, err := h.Service.GetByFilter(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Create(c echo.Context) error {
	var in service.TaskInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	t, err := h.Service.Create(c.Request().Context(), &in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TaskHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in service.TaskInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	t, err := h.Service.Update(c.Request().Context(), id, &in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Service.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TaskHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, tasks, err := h.Service.Search(c.Request().Context(), q, from, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "tasks": tasks})
}
