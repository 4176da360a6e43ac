// Package authn orchestrates credential authentication: a rate-limiter
// pre-check, a user lookup, a timing-safe credential verification, and
// outcome recording. The uniform error surface guarantees a caller can
// never tell an unknown account from a wrong password.
package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/authgate/authgate/internal/password"
	"github.com/authgate/authgate/internal/ratelimit"
	"github.com/authgate/authgate/internal/userstore"
	"github.com/authgate/authgate/pkg/metrics"
	"github.com/authgate/authgate/pkg/models"
	"github.com/authgate/authgate/pkg/validation"
)

// CredentialStore looks up and persists user records. Implemented by
// userstore.Store; lookups return userstore.ErrNotFound for absent rows.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RateLimiter throttles repeated failures per origin identifier.
// Satisfied by ratelimit.Limiter.
type RateLimiter interface {
	IsBlocked(key string, overrides ...ratelimit.Config) bool
	RecordFailure(key string, overrides ...ratelimit.Config)
	RecordSuccess(key string)
	RetryAfter(key string) time.Duration
}

// PasswordHasher hashes and verifies credentials. The bool result of
// Verify is the match outcome; the error return is reserved for
// operational failure of the hashing backend.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, storedHash string) (bool, error)
}

// AuthService is the caller-facing surface of this package.
type AuthService interface {
	Authenticate(ctx context.Context, email, plaintext, origin string) (*models.PublicUser, error)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.PublicUser, error)
}

// Service implements AuthService.
type Service struct {
	logger    *zap.Logger
	users     CredentialStore
	hasher    PasswordHasher
	limiter   RateLimiter
	policy    *password.Policy
	validator *validation.Validator
}

// NewService wires the authenticator's collaborators together.
func NewService(
	logger *zap.Logger,
	users CredentialStore,
	hasher PasswordHasher,
	limiter RateLimiter,
	policy *password.Policy,
	validator *validation.Validator,
) *Service {
	return &Service{
		logger:    logger,
		users:     users,
		hasher:    hasher,
		limiter:   limiter,
		policy:    policy,
		validator: validator,
	}
}

// Authenticate decides whether the caller may log in as email. origin is
// the rate-limiter key supplied by the transport boundary (typically the
// resolved client address), distinct from the account identifier.
//
// A blocked origin is refused before any store lookup or hashing cost is
// spent. Otherwise the hasher runs exactly once per attempt, against the
// stored hash when the account exists and against password.DummyHash
// when it does not, so response latency carries no information about
// account existence. Every non-blocked attempt records exactly one
// limiter outcome: a failure for ErrInvalidCredentials, a success on
// login. A hasher operational error records neither, since it is not
// evidence of a bad credential.
func (s *Service) Authenticate(ctx context.Context, email, plaintext, origin string) (*models.PublicUser, error) {
	if s.limiter.IsBlocked(origin) {
		retryAfter := s.limiter.RetryAfter(origin)
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		s.logger.Info("authentication refused, origin blocked",
			zap.String("origin", origin),
			zap.Duration("retry_after", retryAfter))
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	normalized, err := s.validator.ValidateEmail(email)
	if err != nil {
		// Malformed identifiers still pay the hashing cost and count as
		// a failure, same as an unknown account.
		normalized = ""
	}

	storedHash := password.DummyHash
	var user *models.User
	if normalized != "" {
		user, err = s.users.FindByEmail(ctx, normalized)
		switch {
		case err == nil:
			storedHash = user.PasswordHash
		case errors.Is(err, userstore.ErrNotFound):
			user = nil
		default:
			metrics.LoginAttempts.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to load credential record: %w", err)
		}
	}

	match, err := s.hasher.Verify(plaintext, storedHash)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("credential verification unavailable: %w", err)
	}

	if user == nil || !match || !user.Active {
		s.limiter.RecordFailure(origin)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		s.logger.Info("authentication failed", zap.String("origin", origin))
		return nil, ErrInvalidCredentials
	}

	s.limiter.RecordSuccess(origin)
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		// Login already succeeded; a failed timestamp write is not a
		// reason to refuse the caller.
		s.logger.Warn("failed to record last login",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	s.logger.Info("authentication succeeded",
		zap.String("user_id", user.ID.String()),
		zap.String("origin", origin))
	return user.Public(), nil
}

// Register creates a new account. Registration is not a masked surface:
// a taken email is reported as ErrAccountExists, unlike login where
// account existence is hidden.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.PublicUser, error) {
	email, err := s.validator.ValidateEmail(req.Email)
	if err != nil {
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, &RejectedError{Reason: err}
	}
	username, err := s.validator.ValidateUsername(req.Username)
	if err != nil {
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, &RejectedError{Reason: err}
	}
	if err := s.policy.Validate(req.Password, email, username); err != nil {
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, &RejectedError{Reason: err}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to hash credential: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FirstName:    s.validator.SanitizeInput(req.FirstName),
		LastName:     s.validator.SanitizeInput(req.LastName),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, userstore.ErrDuplicate) {
			metrics.Registrations.WithLabelValues("rejected").Inc()
			return nil, ErrAccountExists
		}
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist user: %w", err)
	}

	metrics.Registrations.WithLabelValues("success").Inc()
	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", username))
	return user.Public(), nil
}
