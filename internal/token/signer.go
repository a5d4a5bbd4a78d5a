package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const AccessTokenTTL = 15 * time.Minute

// Signer issues and validates short-lived HS256 access tokens carrying the
// account id. Validation failures are silent: an invalid token means "no
// authenticated principal", not an error.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, ttl: AccessTokenTTL, now: time.Now}
}

func (s *Signer) Issue(accountID uint) (string, error) {
	exp := s.now().Add(s.ttl)
	claims := jwt.MapClaims{
		"id":  accountID,
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Validate returns the account id carried by the token. Expiry is checked
// with zero leeway: a token is invalid from its stated expiry instant on.
func (s *Signer) Validate(raw string) (uint, bool) {
	t, err := jwt.Parse(raw,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !t.Valid {
		return 0, false
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
