package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/rollcall/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// AdminIDKey is the context key for storing the authenticated admin ID.
const AdminIDKey contextKey = "admin_id"

// GetAdminID extracts the admin ID from the context.
// Returns empty string if not found.
func GetAdminID(ctx context.Context) string {
	adminID, _ := ctx.Value(AdminIDKey).(string)
	return adminID
}

// WithAdminID returns ctx carrying adminID.
func WithAdminID(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, AdminIDKey, adminID)
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, and adds
// the admin ID to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			// Parse Bearer token
			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithAdminID(ctx, claims.AdminID), req)
		}
	}
}
