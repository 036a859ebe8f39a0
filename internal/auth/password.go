package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a syntactically valid bcrypt hash that matches no real
// password. Logins for unknown emails verify against it so they cost the
// same as logins with a wrong password.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword hashes a plaintext password with bcrypt. The salt is random
// per call and embedded in the returned hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a stored bcrypt hash.
// Returns nil on match.
func VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// BurnVerification performs a bcrypt comparison that always fails. Called on
// the unknown-email login path so it is timing-indistinguishable from the
// wrong-password path.
func BurnVerification(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
