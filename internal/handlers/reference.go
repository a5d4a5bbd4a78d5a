package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskvault/taskvault/internal/service"
)

// ReferenceHandler is the shared echo surface for the simple CRUD entities.
type ReferenceHandler[T any] struct {
	Service *service.ReferenceService[T]
}

func NewReferenceHandler[T any](svc *service.ReferenceService[T]) *ReferenceHandler[T] {
	return &ReferenceHandler[T]{Service: svc}
}

func parseID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *ReferenceHandler[T]) List(c echo.Context) error {
	es, err := h.Service.GetAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, es)
}

func (h *ReferenceHandler[T]) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	e, err := h.Service.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *ReferenceHandler[T]) Create(c echo.Context) error {
	var e T
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Service.Create(c.Request().Context(), &e); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *ReferenceHandler[T]) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var e T
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	updated, err := h.Service.Update(c.Request().Context(), id, &e)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *ReferenceHandler[T]) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Service.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
