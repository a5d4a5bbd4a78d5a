package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
	"github.com/taskvault/taskvault/internal/service"
	"github.com/taskvault/taskvault/internal/token"
)

type recordingSender struct {
	verifyToken string
	resetToken  string
}

func (s *recordingSender) SendVerification(_ context.Context, _, token string) error {
	s.verifyToken = token
	return nil
}

func (s *recordingSender) SendPasswordReset(_ context.Context, _, token string) error {
	s.resetToken = token
	return nil
}

func newAccountHandler(t *testing.T) (*AccountHandler, *gorm.DB, *recordingSender) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.Account{}, &models.RefreshToken{}))
	require.NoError(t, repository.SeedRoles(db))

	sender := &recordingSender{}
	svc, err := service.NewAccountService(
		context.Background(),
		repository.NewUnitOfWork(db),
		token.NewSigner([]byte("test-secret")),
		sender,
		nil,
		2,
	)
	require.NoError(t, err)
	return &AccountHandler{Service: svc}, db, sender
}

func doJSON(t *testing.T, handler echo.HandlerFunc, payload any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, error) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return rec, handler(c)
}

func registerAndVerify(t *testing.T, h *AccountHandler, sender *recordingSender, email, password string) {
	t.Helper()

	rec, err := doJSON(t, h.Register, map[string]string{
		"username": email, "email": email, "password": password,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, err = doJSON(t, h.VerifyEmail, map[string]string{"token": sender.verifyToken})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == RefreshCookieName {
			return ck
		}
	}
	t.Fatal("expected a refreshToken cookie")
	return nil
}

func TestRegisterEndpoint(t *testing.T) {
	h, db, _ := newAccountHandler(t)

	payload := map[string]string{"username": "alice", "email": "alice@test.io", "password": "pw"}

	rec, err := doJSON(t, h.Register, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	// a duplicate registration is indistinguishable from a fresh one
	rec, err = doJSON(t, h.Register, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var n int64
	require.NoError(t, db.Model(&models.Account{}).Count(&n).Error)
	require.EqualValues(t, 1, n)
}

func TestAuthenticateEndpoint(t *testing.T) {
	h, _, sender := newAccountHandler(t)
	registerAndVerify(t, h, sender, "alice@test.io", "pw")

	rec, err := doJSON(t, h.Authenticate, map[string]string{"email": "alice@test.io", "password": "pw"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	ck := refreshCookie(t, rec)
	require.NotEmpty(t, ck.Value)
	require.True(t, ck.HttpOnly)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotNil(t, resp["account"])

	// the refresh token value must never appear in the response body
	require.NotContains(t, rec.Body.String(), ck.Value)
}

func TestAuthenticateEndpointRejectsBadPassword(t *testing.T) {
	h, _, sender := newAccountHandler(t)
	registerAndVerify(t, h, sender, "alice@test.io", "pw")

	_, err := doJSON(t, h.Authenticate, map[string]string{"email": "alice@test.io", "password": "wrong"})
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
	require.Equal(t, "Email or password is incorrect", he.Message)
}

func TestRefreshEndpointRotatesCookie(t *testing.T) {
	h, _, sender := newAccountHandler(t)
	registerAndVerify(t, h, sender, "alice@test.io", "pw")

	rec, err := doJSON(t, h.Authenticate, map[string]string{"email": "alice@test.io", "password": "pw"})
	require.NoError(t, err)
	first := refreshCookie(t, rec)

	rec, err = doJSON(t, h.RefreshToken, nil, first)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	second := refreshCookie(t, rec)
	require.NotEqual(t, first.Value, second.Value)

	// the replaced cookie is now a reuse attempt
	_, err = doJSON(t, h.RefreshToken, nil, first)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRefreshEndpointAcceptsBodyToken(t *testing.T) {
	h, _, sender := newAccountHandler(t)
	registerAndVerify(t, h, sender, "alice@test.io", "pw")

	rec, err := doJSON(t, h.Authenticate, map[string]string{"email": "alice@test.io", "password": "pw"})
	require.NoError(t, err)
	ck := refreshCookie(t, rec)

	rec, err = doJSON(t, h.RefreshToken, map[string]string{"token": ck.Value})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRevokeEndpointClearsCookie(t *testing.T) {
	h, db, sender := newAccountHandler(t)
	registerAndVerify(t, h, sender, "alice@test.io", "pw")

	rec, err := doJSON(t, h.Authenticate, map[string]string{"email": "alice@test.io", "password": "pw"})
	require.NoError(t, err)
	ck := refreshCookie(t, rec)

	rec, err = doJSON(t, h.RevokeToken, nil, ck)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := refreshCookie(t, rec)
	require.Empty(t, cleared.Value)

	var rt models.RefreshToken
	require.NoError(t, db.Where("token = ?", ck.Value).First(&rt).Error)
	require.NotNil(t, rt.Revoked)
}

func TestForgotAndResetPasswordEndpoints(t *testing.T) {
	h, _, sender := newAccountHandler(t)

	rec, err := doJSON(t, h.Register, map[string]string{
		"username": "alice", "email": "alice@test.io", "password": "pw",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	// identical response whether or not the address is registered
	for _, addr := range []string{"alice@test.io", "nobody@test.io"} {
		rec, err = doJSON(t, h.ForgotPassword, map[string]string{"email": addr})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Please check your email")
	}

	rec, err = doJSON(t, h.ResetPassword, map[string]string{"token": sender.resetToken, "password": "newpw"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, err = doJSON(t, h.Authenticate, map[string]string{"email": "alice@test.io", "password": "newpw"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}
