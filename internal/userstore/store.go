// Package userstore persists the user records the authentication service
// reads credentials from.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/authgate/authgate/pkg/models"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a unique field (email, username) is taken.
	ErrDuplicate = errors.New("user already exists")
)

// Store is a gorm-backed user store. Open the database with
// TranslateError enabled so duplicate-key violations surface as
// gorm.ErrDuplicatedKey across drivers.
type Store struct {
	logger *zap.Logger
	db     *gorm.DB
}

// New creates a store over an open database handle.
func New(logger *zap.Logger, db *gorm.DB) *Store {
	return &Store{logger: logger, db: db}
}

// AutoMigrate creates or updates the users table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("failed to migrate user schema: %w", err)
	}
	return nil
}

// Create persists a new user. A nil ID is assigned here.
func (s *Store) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail returns the user with the given email, or ErrNotFound.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns the user with the given ID, or ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up user by id: %w", err)
	}
	return &user, nil
}

// TouchLastLogin records a successful login time.
func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", at.UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to record last login: %w", err)
	}
	return nil
}
