package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims carried by a session token. TokenVersion is
// the user's revocation counter at issue time; the access gate rejects tokens
// whose version no longer matches the stored one.
type SessionClaims struct {
	TokenVersion int `json:"ver"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies session tokens. Tokens are HS512-signed
// JWTs; the header's kid names the keyring entry used to sign. The codec is
// pure - it performs no I/O and is safe for concurrent use.
type TokenCodec struct {
	keyring *Keyring
	ttl     time.Duration
}

// NewTokenCodec creates a codec signing with the keyring's active key.
// Issued tokens expire after ttl.
func NewTokenCodec(keyring *Keyring, ttl time.Duration) *TokenCodec {
	return &TokenCodec{keyring: keyring, ttl: ttl}
}

// Issue creates the pair of cookie values for an authenticated user: the
// plaintext user id and the signed session token bound to it.
func (c *TokenCodec) Issue(userID string, tokenVersion int) (cookieUserID, cookieToken string, err error) {
	if userID == "" {
		return "", "", fmt.Errorf("cannot issue token for empty user id")
	}

	now := time.Now()
	claims := SessionClaims{
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	kid, key := c.keyring.signingKey()
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return userID, signed, nil
}

// Verify checks a presented cookie pair. It returns the claims and true only
// when the token's signature verifies under the key it names, the token is
// unexpired, and its subject equals the presented user id. Any mismatch,
// malformed input, or missing value yields false - failure to verify is the
// normal "not authenticated" outcome, not an error.
func (c *TokenCodec) Verify(cookieUserID, cookieToken string) (*SessionClaims, bool) {
	if cookieUserID == "" || cookieToken == "" {
		return nil, false
	}

	token, err := jwt.ParseWithClaims(cookieToken, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		key, ok := c.keyring.lookup(kid)
		if !ok {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.Subject != cookieUserID {
		return nil, false
	}

	return claims, true
}
