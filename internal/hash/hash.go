package hash

import "golang.org/x/crypto/bcrypt"

// Password produces a salted bcrypt hash with the cost factor embedded in
// the output string.
func Password(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check reports whether plaintext matches the stored bcrypt hash.
func Check(stored, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext)) == nil
}
