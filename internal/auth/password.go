package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid admin id or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// PasswordAuthenticator checks a shared bcrypt password hash for a fixed
// set of admin IDs.
type PasswordAuthenticator struct {
	admins map[string]bool
	hash   []byte
}

// NewPasswordAuthenticator creates a password authenticator for adminIDs.
// passwordHash is a bcrypt hash as produced by HashPassword.
func NewPasswordAuthenticator(adminIDs []string, passwordHash string) *PasswordAuthenticator {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &PasswordAuthenticator{
		admins: admins,
		hash:   []byte(passwordHash),
	}
}

// ValidateCredential checks if the password meets minimum requirements.
func ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword returns the bcrypt hash to put in the admin config.
func HashPassword(password string) (string, error) {
	if err := ValidateCredential(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Authenticate verifies the admin ID and password.
func (a *PasswordAuthenticator) Authenticate(_ context.Context, adminID, credential string) (*Admin, error) {
	// Compare even for unknown IDs so both failures take the same time.
	err := bcrypt.CompareHashAndPassword(a.hash, []byte(credential))
	if err != nil || !a.admins[adminID] {
		return nil, ErrInvalidCredentials
	}
	return &Admin{ID: adminID}, nil
}
