package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskvault/taskvault/internal/apperr"
)

// httpError maps the service error taxonomy onto transport codes. Anything
// unrecognized is a masked 500 so persistence details never leak.
func httpError(err error) error {
	switch {
	case apperr.IsAuth(err):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case apperr.IsArgument(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperr.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperr.IsStorage(err):
		return echo.NewHTTPError(http.StatusBadGateway, "storage unavailable")
	case apperr.IsConfig(err):
		return echo.NewHTTPError(http.StatusInternalServerError, "server misconfigured")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
