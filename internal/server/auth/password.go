package auth

import (
	"github.com/dmitrijs2005/moneo/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost keeps a single verification well above 50ms on current
// hardware.
const DefaultCost = 12

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", common.Validationf("password is required")
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", common.Validationf("password must be at most %d bytes", MaxPasswordBytes)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. bcrypt compares in constant
// time; any malformed hash simply fails verification.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}
