package auth

import (
	"context"
)

// Admin is an operator allowed to use the admin RPC.
type Admin struct {
	ID string
}

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping the password check for another method
// (OAuth, chat-platform login) without changing the service layer code.
type Authenticator interface {
	// Authenticate verifies the admin's credential and returns the admin
	// if successful. Returns ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, adminID, credential string) (*Admin, error)
}
