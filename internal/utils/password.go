package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// UnusablePasswordPrefix matches model.UnusablePasswordPrefix; such hashes
// never verify.
const UnusablePasswordPrefix = "!"

// PasswordHasher hashes and verifies passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	cost  int
	dummy []byte // compared against when the user does not exist
}

// NewPasswordHasher returns a hasher using the given bcrypt cost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	return &PasswordHasher{cost: cost, dummy: dummy}
}

// Hash returns bcrypt hash of plain.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares bcrypt hash and plain password.  Unusable hashes
// never match.
func (h *PasswordHasher) Verify(hash, plain string) bool {
	if hash == "" || hash[:1] == UnusablePasswordPrefix {
		h.Burn(plain)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Burn performs a comparison against a throwaway hash so that a login for an
// unknown account costs the same as one with a wrong password.
func (h *PasswordHasher) Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}

// UnusablePassword returns a random marker hash that can never verify.
func UnusablePassword() string {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return UnusablePasswordPrefix
	}
	return UnusablePasswordPrefix + hex.EncodeToString(buf)
}
