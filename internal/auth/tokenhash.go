package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// TokenHasher hashes bearer tokens for at-rest storage. SHA256 is used for
// the AuthToken store (fast, deterministic lookup on every request); bcrypt
// remains available for any future token class that needs salted,
// slow-by-design hashing instead of a lookup key.
type TokenHasher struct {
	bcryptCost int
}

// NewTokenHasher constructs a hasher with bcrypt's default cost.
func NewTokenHasher() *TokenHasher {
	return &TokenHasher{bcryptCost: bcrypt.DefaultCost}
}

// HashToken hashes token with bcrypt; the result differs on every call due
// to its per-hash salt, so it is verified with VerifyToken, never compared
// for equality or used as a map key.
func (t *TokenHasher) HashToken(token string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), t.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyToken reports whether token matches a bcrypt hash from HashToken.
func (t *TokenHasher) VerifyToken(token, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(token)) == nil
}

// HashTokenSHA256 deterministically hashes token, suitable as a map key for
// the high-frequency per-request AuthToken lookup the bearer middleware does.
func (t *TokenHasher) HashTokenSHA256(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(sum[:])
}
