// Package users is the user directory behind the identity provider: accounts,
// bcrypt password hashes and password reset tokens.
package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser = "user"

	MinPasswordLength = 8
	MaxNameLength     = 30
	MinNameLength     = 4
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("reset token is invalid or expired")
	ErrInvalidInput       = errors.New("invalid input")
)

// InputError carries a message describing rejected user input.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

func inputError(msg string) error { return &InputError{Message: msg} }

type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Store interface {
	// Create fails with ErrEmailTaken when the email is in use.
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Update writes name, email, password hash and UpdatedAt.
	Update(ctx context.Context, u *User) error
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// NormalizeEmail lowercases and trims email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateProfile(name, email string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return inputError("Please Enter Your Name")
	}
	if n := len([]rune(name)); n < MinNameLength || n > MaxNameLength {
		return inputError("Name should have between 4 and 30 characters")
	}
	if email == "" {
		return inputError("Please Enter Your Email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return inputError("Please Enter a valid Email")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return inputError("Please Enter Your Password")
	}
	if len(password) < MinPasswordLength {
		return inputError("Password should be greater than 8 characters")
	}
	return nil
}
