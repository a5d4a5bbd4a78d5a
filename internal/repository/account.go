package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/taskvault/taskvault/internal/models"
)

// AccountRepository loads and persists the account aggregate. Every Find
// returns the account with its role and refresh tokens eagerly loaded;
// a missing record is (nil, nil), not an error.
type AccountRepository struct {
	db *gorm.DB
}

func (r *AccountRepository) loaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Role").Preload("RefreshTokens")
}

func (r *AccountRepository) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	var a models.Account
	err := r.loaded(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.loaded(ctx).Where("email = ?", email).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByRefreshToken locates the account owning the presented token value.
func (r *AccountRepository) FindByRefreshToken(ctx context.Context, value string) (*models.Account, error) {
	var t models.RefreshToken
	err := r.db.WithContext(ctx).Where("token = ?", value).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, t.AccountID)
}

func (r *AccountRepository) FindByVerificationToken(ctx context.Context, value string) (*models.Account, error) {
	var a models.Account
	err := r.loaded(ctx).Where("verification_token = ?", value).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByResetToken only matches tokens that have not passed their expiry.
func (r *AccountRepository) FindByResetToken(ctx context.Context, value string, now time.Time) (*models.Account, error) {
	var a models.Account
	err := r.loaded(ctx).
		Where("reset_token = ? AND reset_token_expires > ?", value, now).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) FindAll(ctx context.Context) ([]models.Account, error) {
	var as []models.Account
	err := r.db.WithContext(ctx).Preload("Role").Order("id ASC").Find(&as).Error
	return as, err
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Count(&n).Error
	return n, err
}

func (r *AccountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

// RefreshTokenExists checks a candidate value against every persisted
// refresh token across all accounts.
func (r *AccountRepository) RefreshTokenExists(ctx context.Context, value string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("token = ?", value).Count(&n).Error
	return n > 0, err
}

func (r *AccountRepository) VerificationTokenExists(ctx context.Context, value string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("verification_token = ?", value).Count(&n).Error
	return n > 0, err
}

func (r *AccountRepository) ResetTokenExists(ctx context.Context, value string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("reset_token = ?", value).Count(&n).Error
	return n > 0, err
}

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	return r.db.WithContext(ctx).Omit("Role").Create(a).Error
}

// Save persists the aggregate including refresh token mutations. The Role
// association is referenced, not owned, and is never written from here.
func (r *AccountRepository) Save(ctx context.Context, a *models.Account) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Omit("Role").
		Save(a).Error
}

func (r *AccountRepository) Delete(ctx context.Context, a *models.Account) error {
	if err := r.db.WithContext(ctx).Where("account_id = ?", a.ID).Delete(&models.RefreshToken{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(a).Error
}

func (r *AccountRepository) DeleteRefreshTokens(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.RefreshToken{}, ids).Error
}

type RoleRepository struct {
	db *gorm.DB
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}
