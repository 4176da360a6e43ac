package authn

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidCredentials is the uniform authentication failure. Unknown
// email, wrong password, and unreadable stored hashes all surface as this
// exact error so callers cannot tell them apart by message or code.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrAccountExists is returned by Register when the email or username is
// already taken.
var ErrAccountExists = errors.New("account already exists")

// RejectedError marks a registration request refused for a reason the
// caller can fix: malformed email, invalid username, weak password.
type RejectedError struct {
	Reason error
}

func (e *RejectedError) Error() string {
	return e.Reason.Error()
}

func (e *RejectedError) Unwrap() error {
	return e.Reason
}

// RateLimitedError refuses an attempt from an origin that has exhausted
// its failure budget. It carries the remaining block duration and says
// nothing about credential validity.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// RetryAfterSeconds returns the remaining block rounded up to whole
// seconds, directly usable in a Retry-After header.
func (e *RateLimitedError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}
