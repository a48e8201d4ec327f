package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credentials verifies the admin password. The configured values are loaded
// once at startup and never mutated.
type Credentials struct {
	digest [32]byte
	hash   []byte
	plain  bool
}

// NewCredentials builds a checker from the plain admin password and an
// optional bcrypt hash. When passwordHash is set it takes precedence.
func NewCredentials(password, passwordHash string) *Credentials {
	c := &Credentials{}
	if passwordHash != "" {
		c.hash = []byte(passwordHash)
		return c
	}
	if password != "" {
		c.digest = sha256.Sum256([]byte(password))
		c.plain = true
	}
	return c
}

// Configured reports whether an admin secret is available.
func (c *Credentials) Configured() bool {
	return c != nil && (c.plain || len(c.hash) > 0)
}

// Verify reports whether submitted equals the configured secret. The plain
// comparison hashes both sides first so its running time does not depend on
// where, or whether, the lengths differ.
func (c *Credentials) Verify(submitted string) (bool, error) {
	if !c.Configured() {
		return false, ErrConfigurationMissing
	}

	if len(c.hash) > 0 {
		err := bcrypt.CompareHashAndPassword(c.hash, []byte(submitted))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: unusable admin password hash: %v", ErrConfigurationMissing, err)
		}
	}

	got := sha256.Sum256([]byte(submitted))
	return subtle.ConstantTimeCompare(got[:], c.digest[:]) == 1, nil
}
