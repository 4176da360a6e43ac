package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account holder
type User struct {
	ID           uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Email        string     `json:"email" gorm:"uniqueIndex" validate:"required,email,max=254"`
	Username     string     `json:"username" gorm:"uniqueIndex" validate:"required,min=3,max=30,alphanum"`
	PasswordHash string     `json:"-" gorm:"column:password_hash" validate:"required,min=60"`
	FirstName    string     `json:"first_name" validate:"omitempty,max=50"`
	LastName     string     `json:"last_name" validate:"omitempty,max=50"`
	Active       bool       `json:"active" gorm:"default:true"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PublicUser is the caller-facing view of a User. It never carries the
// stored credential hash.
type PublicUser struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Public strips the credential hash and internal fields from a User.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email" validate:"required,email,max=254"`
	Username  string `json:"username" binding:"required,min=3,max=30" validate:"required,min=3,max=30,alphanum"`
	Password  string `json:"password" binding:"required,min=8" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" binding:"omitempty,max=50" validate:"omitempty,max=50"`
	LastName  string `json:"last_name" binding:"omitempty,max=50" validate:"omitempty,max=50"`
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email,max=254"`
	Password string `json:"password" binding:"required" validate:"required,max=128"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User *PublicUser `json:"user"`
}
