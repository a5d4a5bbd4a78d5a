package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
	"github.com/taskvault/taskvault/internal/token"
)

const accountIDKey = "accountID"

// accessTokenValue pulls the raw access token from the Authorization
// header or the accessToken cookie.
func accessTokenValue(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if ck, err := c.Cookie("accessToken"); err == nil {
		return ck.Value
	}
	return ""
}

// RequireAuth rejects requests without a valid access token. An invalid or
// expired token is simply "not authenticated", no detail is returned.
func RequireAuth(signer *token.Signer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := signer.Validate(accessTokenValue(c))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			c.Set(accountIDKey, id)
			return next(c)
		}
	}
}

// RequireAdmin additionally checks the caller's role. It must run after
// RequireAuth.
func RequireAdmin(uow *repository.UnitOfWork) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := c.Get(accountIDKey).(uint)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			acc, err := uow.Registry().Accounts().FindByID(c.Request().Context(), id)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}
			if acc == nil || acc.Role.Name != models.RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}

// AccountID returns the authenticated account id set by RequireAuth.
func AccountID(c echo.Context) uint {
	id, _ := c.Get(accountIDKey).(uint)
	return id
}
