package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskvault/taskvault/internal/apperr"
	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
	"github.com/taskvault/taskvault/internal/token"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Role{}, &models.Account{}, &models.RefreshToken{},
		&models.Subject{}, &models.AcademicYear{}, &models.TaskType{},
		&models.Author{}, &models.Tag{}, &models.Task{}, &models.Solution{},
		&models.File{},
	))
	return db
}

type captureSender struct {
	verifyTo    string
	verifyToken string
	resetTo     string
	resetToken  string
}

func (s *captureSender) SendVerification(_ context.Context, to, token string) error {
	s.verifyTo, s.verifyToken = to, token
	return nil
}

func (s *captureSender) SendPasswordReset(_ context.Context, to, token string) error {
	s.resetTo, s.resetToken = to, token
	return nil
}

func newAccountService(t *testing.T) (*AccountService, *gorm.DB, *captureSender) {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, repository.SeedRoles(db))

	sender := &captureSender{}
	svc, err := NewAccountService(
		context.Background(),
		repository.NewUnitOfWork(db),
		token.NewSigner([]byte("test-secret")),
		sender,
		nil,
		2,
	)
	require.NoError(t, err)
	return svc, db, sender
}

func registerVerified(t *testing.T, svc *AccountService, sender *captureSender, email, password string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: email, Email: email, Password: password}, "10.0.0.1"))
	require.Equal(t, email, sender.verifyTo)
	require.NoError(t, svc.VerifyEmail(ctx, sender.verifyToken))
}

func TestNewAccountServiceRequiresSeededRoles(t *testing.T) {
	db := newTestDB(t)

	_, err := NewAccountService(
		context.Background(),
		repository.NewUnitOfWork(db),
		token.NewSigner([]byte("test-secret")),
		&captureSender{},
		nil,
		2,
	)
	require.Error(t, err)
	require.True(t, apperr.IsConfig(err))
}

func TestRegisterFirstAccountIsAdmin(t *testing.T) {
	svc, db, _ := newAccountService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@test.io", Password: "pw"}, ""))
	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@test.io", Password: "pw"}, ""))

	var alice, bob models.Account
	require.NoError(t, db.Preload("Role").Where("email = ?", "alice@test.io").First(&alice).Error)
	require.NoError(t, db.Preload("Role").Where("email = ?", "bob@test.io").First(&bob).Error)

	require.Equal(t, models.RoleAdmin, alice.Role.Name)
	require.Equal(t, models.RoleUser, bob.Role.Name)
	require.NotEmpty(t, alice.VerificationToken)
	require.NotEqual(t, "pw", alice.PasswordHash)
}

func TestRegisterDuplicateEmailIsSilent(t *testing.T) {
	svc, db, _ := newAccountService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@test.io", Password: "pw"}, ""))
	// the duplicate must succeed without creating or changing anything
	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: "impostor", Email: "alice@test.io", Password: "other"}, ""))

	var n int64
	require.NoError(t, db.Model(&models.Account{}).Count(&n).Error)
	require.EqualValues(t, 1, n)

	var acc models.Account
	require.NoError(t, db.Where("email = ?", "alice@test.io").First(&acc).Error)
	require.Equal(t, "alice", acc.Username)
}

func TestRegisterRequiresEmailAndPassword(t *testing.T) {
	svc, _, _ := newAccountService(t)
	ctx := context.Background()

	err := svc.Register(ctx, RegisterRequest{Username: "x", Email: "", Password: "pw"}, "")
	require.True(t, apperr.IsArgument(err))

	err = svc.Register(ctx, RegisterRequest{Username: "x", Email: "x@test.io", Password: ""}, "")
	require.True(t, apperr.IsArgument(err))
}

func TestAuthenticateFailuresShareOneMessage(t *testing.T) {
	svc, _, sender := newAccountService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: "pending", Email: "pending@test.io", Password: "pw"}, ""))
	registerVerified(t, svc, sender, "alice@test.io", "pw")

	_, unknownErr := svc.Authenticate(ctx, "nobody@test.io", "pw", "")
	_, unverifiedErr := svc.Authenticate(ctx, "pending@test.io", "pw", "")
	_, wrongPwErr := svc.Authenticate(ctx, "alice@test.io", "wrong", "")

	for _, err := range []error{unknownErr, unverifiedErr, wrongPwErr} {
		require.True(t, apperr.IsAuth(err))
		require.EqualError(t, err, "Email or password is incorrect")
	}
}

func TestAuthenticateIssuesTokenPair(t *testing.T) {
	svc, db, sender := newAccountService(t)
	ctx := context.Background()
	registerVerified(t, svc, sender, "alice@test.io", "pw")

	res, err := svc.Authenticate(ctx, "alice@test.io", "pw", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.Len(t, res.RefreshToken, 128)
	require.True(t, res.RefreshExpires.After(time.Now()))

	var rt models.RefreshToken
	require.NoError(t, db.Where("token = ?", res.RefreshToken).First(&rt).Error)
	require.Equal(t, res.Account.ID, rt.AccountID)
	require.Equal(t, "10.0.0.1", rt.CreatedByIP)
	require.Nil(t, rt.Revoked)
}

func TestRefreshTokenRotation(t *testing.T) {
	svc, db, sender := newAccountService(t)
	ctx := context.Background()
	registerVerified(t, svc, sender, "alice@test.io", "pw")

	first, err := svc.Authenticate(ctx, "alice@test.io", "pw", "10.0.0.1")
	require.NoError(t, err)

	second, err := svc.RefreshToken(ctx, first.RefreshToken, "10.0.0.2")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	var old models.RefreshToken
	require.NoError(t, db.Where("token = ?", first.RefreshToken).First(&old).Error)
	require.NotNil(t, old.Revoked)
	require.Equal(t, "Replaced by new token", old.ReasonRevoked)
	require.Equal(t, second.RefreshToken, old.ReplacedByToken)
	require.Equal(t, "10.0.0.2", old.RevokedByIP)

	var next models.RefreshToken
	require.NoError(t, db.Where("token = ?", second.RefreshToken).First(&next).Error)
	require.Nil(t, next.Revoked)
}

func TestRefreshTokenReuseRevokesDescendants(t *testing.T) {
	svc, db, sender := newAccountService(t)
	ctx := context.Background()
	registerVerified(t, svc, sender, "alice@test.io", "pw")
	registerVerified(t, svc, sender, "bob@test.io", "pw")

	bobAuth, err := svc.Authenticate(ctx, "bob@test.io", "pw", "")
	require.NoError(t, err)

	a, err := svc.Authenticate(ctx, "alice@test.io", "pw", "")
	require.NoError(t, err)
	b, err := svc.RefreshToken(ctx, a.RefreshToken, "")
	require.NoError(t, err)
	c, err := svc.RefreshToken(ctx, b.RefreshToken, "")
	require.NoError(t, err)

	// presenting the revoked ancestor kills the active tail of the chain
	_, err = svc.RefreshToken(ctx, a.RefreshToken, "10.6.6.6")
	require.True(t, apperr.IsAuth(err))
	require.EqualError(t, err, "Invalid token")

	var tail models.RefreshToken
	require.NoError(t, db.Where("token = ?", c.RefreshToken).First(&tail).Error)
	require.NotNil(t, tail.Revoked, "revocation must be committed even though the call failed")
	require.Equal(t, "Attempted reuse of revoked ancestor token", tail.ReasonRevoked)

	// the stolen chain is dead end to end
	_, err = svc.RefreshToken(ctx, c.RefreshToken, "")
	require.EqualError(t, err, "Invalid token")

	// other accounts are untouched
	var bobToken models.RefreshToken
	require.NoError(t, db.Where("token = ?", bobAuth.RefreshToken).First(&bobToken).Error)
	require.Nil(t, bobToken.Revoked)
}

func TestRefreshTokenExpired(t *testing.T) {
	svc, _, sender := newAccountService(t)
	ctx := context.Background()
	registerVerified(t, svc, sender, "alice@test.io", "pw")

	res, err := svc.Authenticate(ctx, "alice@test.io", "pw", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = svc.RefreshToken(ctx, res.RefreshToken, "")
	require.True(t, apperr.IsAuth(err))
	require.EqualError(t, err, "Invalid token")
}

func TestRefreshTokenUnknownValue(t *testing.T) {
	svc, _, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.RefreshToken(ctx, "no-such-token", "")
	require.EqualError(t, err, "Invalid token")
	_, err = svc.RefreshToken(ctx, "", "")
	require.EqualError(t, err, "Invalid token")
}

func TestRevokeToken(t *testing.T) {
	svc, db, sender := newAccountService(t)
	ctx := context.Background()
	registerVerified(t, svc, sender, "alice@test.io", "pw")

	res, err := svc.Authenticate(ctx, "alice@test.io", "pw", "")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(ctx, res.RefreshToken, "10.0.0.9"))

	var rt models.RefreshToken
	require.NoError(t, db.Where("token = ?", res.RefreshToken).First(&rt).Error)
	require.NotNil(t, rt.Revoked)
	require.Equal(t, "Revoked without replacement", rt.ReasonRevoked)
	require.Empty(t, rt.ReplacedByToken)

	// a revoked token cannot be revoked or refreshed again
	require.EqualError(t, svc.RevokeToken(ctx, res.RefreshToken, ""), "Invalid token")
	_, err = svc.RefreshToken(ctx, res.RefreshToken, "")
	require.EqualError(t, err, "Invalid token")
}

func TestAuthenticatePrunesStaleTokens(t *testing.T) {
	svc, db, sender := newAccountService(t)
	ctx := context.Background()
	registerVerified(t, svc, sender, "alice@test.io", "pw")

	first, err := svc.Authenticate(ctx, "alice@test.io", "pw", "")
	require.NoError(t, err)

	// far past both the token lifetime and the two-day retention window
	svc.now = func() time.Time { return time.Now().Add(10 * 24 * time.Hour) }

	_, err = svc.Authenticate(ctx, "alice@test.io", "pw", "")
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&n).Error)
	require.EqualValues(t, 1, n, "the stale token row must be gone")

	var gone models.RefreshToken
	err = db.Where("token = ?", first.RefreshToken).First(&gone).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, db, sender := newAccountService(t)
	ctx := context.Background()

	// never verified: redeeming the reset token must count as verification
	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@test.io", Password: "pw"}, ""))

	require.NoError(t, svc.ForgotPassword(ctx, "alice@test.io"))
	require.Equal(t, "alice@test.io", sender.resetTo)
	require.NotEmpty(t, sender.resetToken)

	var acc models.Account
	require.NoError(t, db.Where("email = ?", "alice@test.io").First(&acc).Error)
	require.Equal(t, sender.resetToken, acc.ResetToken)
	require.NotNil(t, acc.ResetTokenExpires)

	require.NoError(t, svc.ResetPassword(ctx, sender.resetToken, "newpw"))

	// scan into a fresh struct: gorm leaves pointer fields untouched when
	// a NULL column lands on an already-populated value
	var after models.Account
	require.NoError(t, db.Where("email = ?", "alice@test.io").First(&after).Error)
	require.Empty(t, after.ResetToken)
	require.Nil(t, after.ResetTokenExpires)
	require.NotNil(t, after.PasswordReset)

	_, err := svc.Authenticate(ctx, "alice@test.io", "newpw", "")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "alice@test.io", "pw", "")
	require.EqualError(t, err, "Email or password is incorrect")
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, sender := newAccountService(t)

	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@test.io"))
	require.Empty(t, sender.resetTo)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, _, sender := newAccountService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@test.io", Password: "pw"}, ""))
	require.NoError(t, svc.ForgotPassword(ctx, "alice@test.io"))

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	err := svc.ResetPassword(ctx, sender.resetToken, "newpw")
	require.True(t, apperr.IsAuth(err))
	require.EqualError(t, err, "Invalid token")
}

func TestResetPasswordRequiresPassword(t *testing.T) {
	svc, _, _ := newAccountService(t)
	err := svc.ResetPassword(context.Background(), "whatever", "")
	require.True(t, apperr.IsArgument(err))
}

func TestVerifyEmail(t *testing.T) {
	svc, db, sender := newAccountService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@test.io", Password: "pw"}, ""))

	require.EqualError(t, svc.VerifyEmail(ctx, "wrong-token"), "Verification failed")
	require.EqualError(t, svc.VerifyEmail(ctx, ""), "Verification failed")

	require.NoError(t, svc.VerifyEmail(ctx, sender.verifyToken))

	var acc models.Account
	require.NoError(t, db.Where("email = ?", "alice@test.io").First(&acc).Error)
	require.NotNil(t, acc.Verified)
	require.Empty(t, acc.VerificationToken)

	_, err := svc.Authenticate(ctx, "alice@test.io", "pw", "")
	require.NoError(t, err)
}

func TestAccountGetByID(t *testing.T) {
	svc, _, sender := newAccountService(t)
	ctx := context.Background()
	registerVerified(t, svc, sender, "alice@test.io", "pw")

	_, err := svc.GetByID(ctx, 0)
	require.True(t, apperr.IsArgument(err))

	_, err = svc.GetByID(ctx, 999)
	require.True(t, apperr.IsNotFound(err))

	acc, err := svc.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "alice@test.io", acc.Email)
}

func TestAccountDelete(t *testing.T) {
	svc, db, sender := newAccountService(t)
	ctx := context.Background()
	registerVerified(t, svc, sender, "alice@test.io", "pw")

	res, err := svc.Authenticate(ctx, "alice@test.io", "pw", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, int(res.Account.ID)))

	var n int64
	require.NoError(t, db.Model(&models.Account{}).Count(&n).Error)
	require.EqualValues(t, 0, n)
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&n).Error)
	require.EqualValues(t, 0, n, "owned refresh tokens must go with the account")

	require.True(t, apperr.IsNotFound(svc.Delete(ctx, int(res.Account.ID))))
}
