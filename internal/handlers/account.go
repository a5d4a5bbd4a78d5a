package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/service"
)

type AccountHandler struct {
	Service *service.AccountService
}

func (h *AccountHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_register")

	var req service.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Service.Register(ctx, req, c.RealIP()); err != nil {
		l.Warn("register_failed", "error", err)
		return httpError(err)
	}

	l.Info("register_success")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Registration successful, please check your email for verification instructions",
	})
}

func (h *AccountHandler) Authenticate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_authenticate")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("authenticate_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Service.Authenticate(ctx, req.Email, req.Password, c.RealIP())
	if err != nil {
		l.Warn("authenticate_failed", "status", 401)
		return httpError(err)
	}

	// the refresh token travels only in the cookie, never in the body
	c.SetCookie(CreateCookie(RefreshCookieName, res.RefreshToken, "/", res.RefreshExpires))

	l.Info("authenticate_success", "account_id", res.Account.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": res.AccessToken,
		"account":      res.Account,
	})
}

// refreshTokenValue reads the presented token from the cookie, falling back
// to a JSON body for non-browser clients.
func refreshTokenValue(c echo.Context) string {
	if ck, err := c.Cookie(RefreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err == nil {
		return req.Token
	}
	return ""
}

func (h *AccountHandler) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_refresh")

	res, err := h.Service.RefreshToken(ctx, refreshTokenValue(c), c.RealIP())
	if err != nil {
		l.Warn("refresh_failed", "status", 401)
		return httpError(err)
	}

	c.SetCookie(CreateCookie(RefreshCookieName, res.RefreshToken, "/", res.RefreshExpires))

	l.Info("refresh_success", "account_id", res.Account.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": res.AccessToken,
		"account":      res.Account,
	})
}

func (h *AccountHandler) RevokeToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_revoke")

	if err := h.Service.RevokeToken(ctx, refreshTokenValue(c), c.RealIP()); err != nil {
		l.Warn("revoke_failed")
		return httpError(err)
	}

	c.SetCookie(DeleteCookie(RefreshCookieName, "/"))
	l.Info("revoke_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "Token revoked"})
}

func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_forgot_password")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Service.ForgotPassword(ctx, req.Email); err != nil {
		l.Error("forgot_password_error", "error", err)
		return httpError(err)
	}

	// identical response whether or not the account exists
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Please check your email for password reset instructions",
	})
}

func (h *AccountHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_reset_password")

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Service.ResetPassword(ctx, req.Token, req.Password); err != nil {
		l.Warn("reset_password_failed")
		return httpError(err)
	}

	l.Info("reset_password_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successful, you can now login"})
}

func (h *AccountHandler) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_verify_email")

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Service.VerifyEmail(ctx, req.Token); err != nil {
		l.Warn("verify_email_failed")
		return httpError(err)
	}

	l.Info("verify_email_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "Verification successful, you can now login"})
}

func (h *AccountHandler) List(c echo.Context) error {
	accounts, err := h.Service.GetAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *AccountHandler) Get(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	acc, err := h.Service.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, acc)
}

func (h *AccountHandler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.Service.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
