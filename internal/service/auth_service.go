package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/rollcall/internal/auth"
)

// AdminService implements the AdminService RPC interface.
type AdminService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAdminService creates a new authentication service.
func NewAdminService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AdminService {
	return &AdminService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Login authenticates an admin and returns a JWT token.
func (s *AdminService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	s.logger.Info("Login request", "admin_id", req.Msg.AdminID)

	admin, err := s.authenticator.Authenticate(ctx, req.Msg.AdminID, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "admin_id", req.Msg.AdminID, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, expiresAt, err := s.jwtManager.Generate(admin)
	if err != nil {
		s.logger.Error("Failed to generate token", "admin_id", admin.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Admin logged in successfully", "admin_id", admin.ID)
	return connect.NewResponse(&LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	}), nil
}
