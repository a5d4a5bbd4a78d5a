package models

import (
	"time"
)

// Account owns its refresh tokens. All token mutation goes through the
// methods below so the rotation chain stays a simple forward list.
type Account struct {
	ID                uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username          string         `gorm:"not null"                 json:"username"`
	Email             string         `gorm:"unique;not null"          json:"email"`
	PasswordHash      string         `gorm:"not null"                 json:"-"`
	RoleID            uint           `gorm:"index;not null"           json:"role_id"`
	Role              Role           `json:"role"`
	Created           time.Time      `json:"created"`
	Updated           *time.Time     `json:"updated,omitempty"`
	Verified          *time.Time     `json:"verified,omitempty"`
	VerificationToken string         `json:"-"`
	ResetToken        string         `json:"-"`
	ResetTokenExpires *time.Time     `json:"-"`
	PasswordReset     *time.Time     `json:"password_reset,omitempty"`
	RefreshTokens     []RefreshToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// IsVerified is true once the email was verified or the password was reset
// through the emailed token. Both prove mailbox ownership.
func (a *Account) IsVerified() bool {
	return a.Verified != nil || a.PasswordReset != nil
}

func (a *Account) IsAdmin() bool {
	return a.Role.Name == RoleAdmin
}

func (a *Account) AddRefreshToken(t RefreshToken) {
	t.AccountID = a.ID
	a.RefreshTokens = append(a.RefreshTokens, t)
}

// FindRefreshToken looks up a token by value within this account's
// collection. Lookups key on the value alone, which is why token values are
// globally unique.
func (a *Account) FindRefreshToken(value string) *RefreshToken {
	for i := range a.RefreshTokens {
		if a.RefreshTokens[i].Token == value {
			return &a.RefreshTokens[i]
		}
	}
	return nil
}

// PruneRefreshTokens drops tokens that have been inactive for longer than
// the retention window and returns the ids of the removed rows. Pruning is
// lazy: it piggybacks on login and refresh, there is no background sweep.
func (a *Account) PruneRefreshTokens(retention time.Duration, now time.Time) []uint {
	var removed []uint
	kept := a.RefreshTokens[:0]
	for _, t := range a.RefreshTokens {
		if !t.IsActive(now) && !t.Created.Add(retention).After(now) {
			if t.ID != 0 {
				removed = append(removed, t.ID)
			}
			continue
		}
		kept = append(kept, t)
	}
	a.RefreshTokens = kept
	return removed
}

type RefreshToken struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID       uint       `gorm:"index;not null"           json:"account_id"`
	Token           string     `gorm:"unique;not null"          json:"-"`
	Expires         time.Time  `gorm:"not null"                 json:"expires"`
	Created         time.Time  `gorm:"not null"                 json:"created"`
	CreatedByIP     string     `json:"created_by_ip"`
	Revoked         *time.Time `json:"revoked,omitempty"`
	RevokedByIP     string     `json:"revoked_by_ip,omitempty"`
	ReplacedByToken string     `json:"-"`
	ReasonRevoked   string     `json:"reason_revoked,omitempty"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.Expires)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.Revoked != nil
}

func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// Revoke marks the token revoked. replacedBy is the value of the successor
// token when the revocation is part of a rotation, empty otherwise.
func (t *RefreshToken) Revoke(now time.Time, ip, reason, replacedBy string) {
	revoked := now
	t.Revoked = &revoked
	t.RevokedByIP = ip
	t.ReasonRevoked = reason
	t.ReplacedByToken = replacedBy
}
