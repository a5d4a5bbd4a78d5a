package service

import (
	"context"
	"time"

	"github.com/taskvault/taskvault/internal/apperr"
	"github.com/taskvault/taskvault/internal/email"
	"github.com/taskvault/taskvault/internal/events"
	"github.com/taskvault/taskvault/internal/hash"
	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
	"github.com/taskvault/taskvault/internal/token"
)

const (
	refreshTokenLifetime = 7 * 24 * time.Hour
	resetTokenLifetime   = 24 * time.Hour

	// opaque token generation retries before giving up; a collision on
	// 64 bytes of entropy means something is badly wrong
	tokenGenerationAttempts = 10
)

const (
	reasonRotated       = "Replaced by new token"
	reasonRevoked       = "Revoked without replacement"
	reasonReuseAncestor = "Attempted reuse of revoked ancestor token"
)

// invalid-credential and invalid-token failures share one message per
// cause class so the response never reveals which check failed.
func errBadCredentials() error { return apperr.Auth("Email or password is incorrect") }
func errInvalidToken() error   { return apperr.Auth("Invalid token") }

// AccountService orchestrates registration, authentication and the refresh
// token lifecycle.
type AccountService struct {
	uow       *repository.UnitOfWork
	signer    *token.Signer
	sender    email.Sender
	producer  *events.Producer
	adminRole models.Role
	userRole  models.Role
	retention time.Duration
	now       func() time.Time
}

// NewAccountService resolves the Admin and User roles once, up front. A
// deployment without the seeded roles cannot register accounts, so it fails
// here instead of on the first request.
func NewAccountService(
	ctx context.Context,
	uow *repository.UnitOfWork,
	signer *token.Signer,
	sender email.Sender,
	producer *events.Producer,
	refreshTokenTTLDays int,
) (*AccountService, error) {
	roles := uow.Registry().Roles()

	admin, err := roles.FindByName(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, apperr.Config("role %q is not seeded", models.RoleAdmin)
	}
	user, err := roles.FindByName(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.Config("role %q is not seeded", models.RoleUser)
	}

	return &AccountService{
		uow:       uow,
		signer:    signer,
		sender:    sender,
		producer:  producer,
		adminRole: *admin,
		userRole:  *user,
		retention: time.Duration(refreshTokenTTLDays) * 24 * time.Hour,
		now:       time.Now,
	}, nil
}

// AuthResult carries both tokens out of an authentication or refresh. The
// refresh token value must travel out-of-band (cookie), never in a response
// body field.
type AuthResult struct {
	Account        *models.Account
	AccessToken    string
	RefreshToken   string
	RefreshExpires time.Time
}

// Authenticate verifies email+password and issues a fresh token pair. A
// missing account, an unverified account and a wrong password all fail with
// the same message.
func (s *AccountService) Authenticate(ctx context.Context, emailAddr, password, ip string) (*AuthResult, error) {
	acc, err := s.uow.Registry().Accounts().FindByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if acc == nil || !acc.IsVerified() || !hash.Check(acc.PasswordHash, password) {
		return nil, errBadCredentials()
	}

	access, err := s.signer.Issue(acc.ID)
	if err != nil {
		return nil, err
	}

	var refresh models.RefreshToken
	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		accounts := r.Accounts()
		rt, err := s.newRefreshToken(ctx, accounts, ip)
		if err != nil {
			return err
		}
		refresh = *rt
		acc.AddRefreshToken(*rt)
		removed := acc.PruneRefreshTokens(s.retention, s.now())
		if err := accounts.Save(ctx, acc); err != nil {
			return err
		}
		return accounts.DeleteRefreshTokens(ctx, removed)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "account_login", acc)

	return &AuthResult{
		Account:        acc,
		AccessToken:    access,
		RefreshToken:   refresh.Token,
		RefreshExpires: refresh.Expires,
	}, nil
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. A duplicate email is a silent no-op success
// so registration cannot be used to probe for existing accounts. The first
// account in the system gets the Admin role, everyone else gets User; any
// role the client may suggest in the request is deliberately ignored.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest, ip string) error {
	if req.Email == "" || req.Password == "" {
		return apperr.Argument("username, email and password are required")
	}

	var created *models.Account
	err := s.uow.Do(ctx, func(r *repository.Registry) error {
		accounts := r.Accounts()

		exists, err := accounts.EmailExists(ctx, req.Email)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		count, err := accounts.Count(ctx)
		if err != nil {
			return err
		}
		role := s.userRole
		if count == 0 {
			role = s.adminRole
		}

		verification, err := s.newUniqueToken(ctx, accounts.VerificationTokenExists)
		if err != nil {
			return err
		}

		pwHash, err := hash.Password(req.Password)
		if err != nil {
			return err
		}

		acc := &models.Account{
			Username:          req.Username,
			Email:             req.Email,
			PasswordHash:      pwHash,
			RoleID:            role.ID,
			Role:              role,
			Created:           s.now(),
			VerificationToken: verification,
		}
		if err := accounts.Create(ctx, acc); err != nil {
			return err
		}
		created = acc
		return nil
	})
	if err != nil {
		return err
	}
	if created == nil {
		return nil
	}

	l := logging.FromContext(ctx)
	if err := s.sender.SendVerification(ctx, created.Email, created.VerificationToken); err != nil {
		l.Error("verification_email_failed", "account_id", created.ID, "error", err)
	}
	s.publish(ctx, "account_registered", created)
	return nil
}

// RefreshToken rotates an active refresh token. Presenting an already
// revoked token is treated as reuse after theft: the still-active tail of
// its rotation chain is revoked and committed before the call fails.
func (s *AccountService) RefreshToken(ctx context.Context, value, ip string) (*AuthResult, error) {
	if value == "" {
		return nil, errInvalidToken()
	}

	acc, err := s.uow.Registry().Accounts().FindByRefreshToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errInvalidToken()
	}
	presented := acc.FindRefreshToken(value)
	if presented == nil {
		return nil, errInvalidToken()
	}

	now := s.now()
	if presented.IsRevoked() {
		err := s.uow.Do(ctx, func(r *repository.Registry) error {
			s.revokeDescendants(acc, presented, ip, now)
			return r.Accounts().Save(ctx, acc)
		})
		if err != nil {
			return nil, err
		}
		logging.FromContext(ctx).Warn("refresh_token_reuse",
			"account_id", acc.ID, "ip", ip)
		return nil, errInvalidToken()
	}
	if !presented.IsActive(now) {
		return nil, errInvalidToken()
	}

	access, err := s.signer.Issue(acc.ID)
	if err != nil {
		return nil, err
	}

	var refresh models.RefreshToken
	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		accounts := r.Accounts()
		next, err := s.newRefreshToken(ctx, accounts, ip)
		if err != nil {
			return err
		}
		refresh = *next
		presented.Revoke(now, ip, reasonRotated, next.Token)
		acc.AddRefreshToken(*next)
		removed := acc.PruneRefreshTokens(s.retention, now)
		if err := accounts.Save(ctx, acc); err != nil {
			return err
		}
		return accounts.DeleteRefreshTokens(ctx, removed)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "token_refreshed", acc)

	return &AuthResult{
		Account:        acc,
		AccessToken:    access,
		RefreshToken:   refresh.Token,
		RefreshExpires: refresh.Expires,
	}, nil
}

// RevokeToken revokes an active token without replacement.
func (s *AccountService) RevokeToken(ctx context.Context, value, ip string) error {
	if value == "" {
		return errInvalidToken()
	}

	acc, err := s.uow.Registry().Accounts().FindByRefreshToken(ctx, value)
	if err != nil {
		return err
	}
	if acc == nil {
		return errInvalidToken()
	}
	rt := acc.FindRefreshToken(value)
	now := s.now()
	if rt == nil || !rt.IsActive(now) {
		return errInvalidToken()
	}

	return s.uow.Do(ctx, func(r *repository.Registry) error {
		rt.Revoke(now, ip, reasonRevoked, "")
		return r.Accounts().Save(ctx, acc)
	})
}

// ForgotPassword always reports success. When the account exists it gets a
// reset token valid for one day.
func (s *AccountService) ForgotPassword(ctx context.Context, emailAddr string) error {
	acc, err := s.uow.Registry().Accounts().FindByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if acc == nil {
		return nil
	}

	err = s.uow.Do(ctx, func(r *repository.Registry) error {
		accounts := r.Accounts()
		reset, err := s.newUniqueToken(ctx, accounts.ResetTokenExists)
		if err != nil {
			return err
		}
		expires := s.now().Add(resetTokenLifetime)
		acc.ResetToken = reset
		acc.ResetTokenExpires = &expires
		return accounts.Save(ctx, acc)
	})
	if err != nil {
		return err
	}

	if err := s.sender.SendPasswordReset(ctx, acc.Email, acc.ResetToken); err != nil {
		logging.FromContext(ctx).Error("reset_email_failed", "account_id", acc.ID, "error", err)
	}
	return nil
}

// ResetPassword redeems a non-expired reset token. Redeeming also counts as
// email verification.
func (s *AccountService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if newPassword == "" {
		return apperr.Argument("password is required")
	}

	now := s.now()
	acc, err := s.uow.Registry().Accounts().FindByResetToken(ctx, resetToken, now)
	if err != nil {
		return err
	}
	if acc == nil {
		return errInvalidToken()
	}

	pwHash, err := hash.Password(newPassword)
	if err != nil {
		return err
	}

	return s.uow.Do(ctx, func(r *repository.Registry) error {
		acc.PasswordHash = pwHash
		acc.PasswordReset = &now
		acc.Updated = &now
		acc.ResetToken = ""
		acc.ResetTokenExpires = nil
		return r.Accounts().Save(ctx, acc)
	})
}

// VerifyEmail redeems a verification token.
func (s *AccountService) VerifyEmail(ctx context.Context, verificationToken string) error {
	if verificationToken == "" {
		return apperr.Auth("Verification failed")
	}

	acc, err := s.uow.Registry().Accounts().FindByVerificationToken(ctx, verificationToken)
	if err != nil {
		return err
	}
	if acc == nil {
		return apperr.Auth("Verification failed")
	}

	now := s.now()
	return s.uow.Do(ctx, func(r *repository.Registry) error {
		acc.Verified = &now
		acc.VerificationToken = ""
		return r.Accounts().Save(ctx, acc)
	})
}

func (s *AccountService) GetAll(ctx context.Context) ([]models.Account, error) {
	return s.uow.Registry().Accounts().FindAll(ctx)
}

func (s *AccountService) GetByID(ctx context.Context, id int) (*models.Account, error) {
	if id <= 0 {
		return nil, apperr.Argument("id must be positive")
	}
	acc, err := s.uow.Registry().Accounts().FindByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, apperr.NotFound("account %d not found", id)
	}
	return acc, nil
}

func (s *AccountService) Delete(ctx context.Context, id int) error {
	acc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.uow.Do(ctx, func(r *repository.Registry) error {
		return r.Accounts().Delete(ctx, acc)
	})
}

// newRefreshToken generates an opaque token that is unique across every
// persisted refresh token, active or historical, since lookups key on the
// value alone.
func (s *AccountService) newRefreshToken(ctx context.Context, accounts *repository.AccountRepository, ip string) (*models.RefreshToken, error) {
	value, err := s.newUniqueToken(ctx, accounts.RefreshTokenExists)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &models.RefreshToken{
		Token:       value,
		Expires:     now.Add(refreshTokenLifetime),
		Created:     now,
		CreatedByIP: ip,
	}, nil
}

// newUniqueToken retries generation a bounded number of times instead of
// recursing; exhaustion is a deployment-level failure.
func (s *AccountService) newUniqueToken(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < tokenGenerationAttempts; i++ {
		value, err := token.Random()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, value)
		if err != nil {
			return "", err
		}
		if !taken {
			return value, nil
		}
	}
	return "", apperr.Config("could not generate a unique token after %d attempts", tokenGenerationAttempts)
}

// revokeDescendants walks the rotation chain forward from a reused token
// and revokes the first descendant that is still active. The chain is a
// simple forward list by construction, so the walk is bounded by the
// account's token count.
func (s *AccountService) revokeDescendants(acc *models.Account, from *models.RefreshToken, ip string, now time.Time) {
	cur := from
	for range acc.RefreshTokens {
		if cur.ReplacedByToken == "" {
			return
		}
		next := acc.FindRefreshToken(cur.ReplacedByToken)
		if next == nil {
			return
		}
		if next.IsActive(now) {
			next.Revoke(now, ip, reasonReuseAncestor, "")
			return
		}
		cur = next
	}
}

func (s *AccountService) publish(ctx context.Context, eventType string, acc *models.Account) {
	event := map[string]interface{}{
		"type":       eventType,
		"account_id": acc.ID,
		"username":   acc.Username,
	}
	if err := s.producer.PublishEvent(ctx, "account_events", itoa(acc.ID), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "type", eventType, "error", err)
	}
}
