// Package password provides one-way credential hashing with bcrypt and
// the policy checks applied to candidate passwords before hashing.
package password

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/authgate/pkg/metrics"
)

// DefaultCost is the bcrypt cost applied when configuration supplies none.
const DefaultCost = 12

// DummyHash is a pre-computed bcrypt hash (cost 12) of a fixed throwaway
// string. Verification against it is performed whenever a credential
// record does not exist, so the hashing cost is paid identically whether
// or not an account exists. It must never be stored for a real account.
const DummyHash = "$2a$12$7bbAZYS6WoUjRSzzybQHwuVskoTBZLSYeQ3gxyPjqZ6Yc9E2yqf.S"

// HashingError reports that the hashing backend could not complete, for
// example because the process's entropy source is exhausted. It is an
// operational failure and carries no information about credential
// validity.
type HashingError struct {
	Err error
}

func (e *HashingError) Error() string {
	return "password hashing failed: " + e.Err.Error()
}

func (e *HashingError) Unwrap() error {
	return e.Err
}

// Hasher hashes and verifies credentials with bcrypt at a fixed cost.
// The cost is process configuration; changing it is an administrative
// action, not a per-call choice.
type Hasher struct {
	cost   int
	logger *zap.Logger
}

// NewHasher creates a hasher with the given cost. Costs outside bcrypt's
// supported range fall back to DefaultCost.
func NewHasher(logger *zap.Logger, cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost, logger: logger}
}

// Hash derives a salted hash of plaintext. Equal inputs produce distinct
// hashes; the cost and salt are embedded in the output. The only failure
// mode is exhaustion of the underlying randomness source, surfaced as a
// HashingError.
func (h *Hasher) Hash(plaintext string) (string, error) {
	start := time.Now()
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", &HashingError{Err: err}
	}
	metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	return string(hashed), nil
}

// Verify reports whether plaintext matches storedHash under the cost and
// salt embedded in it. A malformed storedHash verifies false rather than
// failing; it can never match any plaintext. The error return is
// reserved for operational failure of the hashing backend.
func (h *Hasher) Verify(plaintext, storedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		h.logger.Warn("stored credential hash unreadable", zap.Error(err))
		return false, nil
	}
}

// Cost returns the configured bcrypt cost.
func (h *Hasher) Cost() int {
	return h.cost
}
