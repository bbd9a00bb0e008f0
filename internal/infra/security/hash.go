package security

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var errInvalidCost = errors.New("bcrypt: invalid cost")

// DefaultBcryptCost is the work factor applied to passwords, verification
// codes, and reset tokens alike.
const DefaultBcryptCost = 12

var (
	activeCost   = DefaultBcryptCost
	activeCostMu sync.RWMutex
)

// CurrentBcryptCost returns the currently active bcrypt cost.
func CurrentBcryptCost() int {
	activeCostMu.RLock()
	defer activeCostMu.RUnlock()
	return activeCost
}

// ConfigureBcrypt sets the active bcrypt cost after validation.
func ConfigureBcrypt(cost int) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("%w: must be between %d and %d", errInvalidCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	activeCostMu.Lock()
	activeCost = cost
	activeCostMu.Unlock()
	return nil
}

// HashSecret generates a salted bcrypt hash for the provided secret.
func HashSecret(secret string) (string, error) {
	sum, err := bcrypt.GenerateFromPassword([]byte(secret), CurrentBcryptCost())
	if err != nil {
		return "", fmt.Errorf("bcrypt: hash secret: %w", err)
	}
	return string(sum), nil
}

// VerifySecret compares the secret against a stored bcrypt hash in constant
// time. A malformed hash or mismatch yields false, never an error.
func VerifySecret(secret, hash string) bool {
	if secret == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
