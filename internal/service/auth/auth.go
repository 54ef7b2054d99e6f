// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"time"

	"shopfloor-service/internal/domain/user"
	xerrors "shopfloor-service/internal/pkg/errors"
	"shopfloor-service/internal/pkg/session"
	"shopfloor-service/internal/repository/postgres"
	auditsvc "shopfloor-service/internal/service/audit"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LoginPolicy is the stricter rate-limit configuration for the login
// endpoint, keyed per caller IP independently of general API throttling.
type LoginPolicy struct {
	Window time.Duration
	Max    int64
}

type AuthService struct {
	userRepo    *postgres.UserRepository
	sessions    *session.Registry
	rateLimiter *session.RateLimiter
	loginPolicy LoginPolicy
	audit       *auditsvc.Writer
	logger      *zap.Logger
}

func NewAuthService(
	userRepo *postgres.UserRepository,
	sessions *session.Registry,
	rateLimiter *session.RateLimiter,
	loginPolicy LoginPolicy,
	audit *auditsvc.Writer,
	logger *zap.Logger,
) *AuthService {
	if loginPolicy.Window <= 0 {
		loginPolicy.Window = 15 * time.Minute
	}
	if loginPolicy.Max <= 0 {
		loginPolicy.Max = 5
	}
	return &AuthService{
		userRepo:    userRepo,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		loginPolicy: loginPolicy,
		audit:       audit,
		logger:      logger,
	}
}

// RateLimitedError carries the window reset so handlers can answer with a
// Retry-After.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string { return xerrors.ErrRateLimited.Error() }

func (e *RateLimitedError) Unwrap() error { return xerrors.ErrRateLimited }

// Login verifies credentials and opens a session. Failed attempts count
// against the caller's login window whether or not the user exists.
func (s *AuthService) Login(ctx context.Context, req *user.LoginRequest) (*user.LoginResponse, error) {
	decision := s.rateLimiter.CheckLoginAttempt(req.IPAddress, s.loginPolicy.Window, s.loginPolicy.Max)
	if !decision.Allowed {
		return nil, &RateLimitedError{ResetAt: decision.ResetAt}
	}

	u, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		// Same failure shape as a bad password so usernames cannot be probed.
		return nil, fmt.Errorf("invalid credentials")
	}
	if !u.Active {
		return nil, fmt.Errorf("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	sess, err := s.sessions.Create(u.ID, u.Username, string(u.Role), req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, u.ID); err != nil {
		s.logger.Error("failed to update last login", zap.Int64("user_id", u.ID), zap.Error(err))
	}

	s.audit.Record(ctx, &session.Identity{UserID: u.ID, Username: u.Username, Role: string(u.Role)},
		"login", "users", u.ID, nil, req.IPAddress)

	return &user.LoginResponse{
		Token:    sess.ID,
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}, nil
}

// Logout destroys the current session.
func (s *AuthService) Logout(ctx context.Context, identity *session.Identity, token, ip string) {
	s.sessions.Destroy(token)
	s.audit.Record(ctx, identity, "logout", "users", identity.UserID, nil, ip)
}

// LogoutAll destroys every session the user holds and returns the count.
func (s *AuthService) LogoutAll(ctx context.Context, identity *session.Identity, ip string) int {
	n := s.sessions.DestroyAllForUser(identity.UserID)
	s.audit.Record(ctx, identity, "logout_all", "users", identity.UserID,
		map[string]int{"sessions_destroyed": n}, ip)
	return n
}

// Me resolves the full user record for the authenticated identity.
func (s *AuthService) Me(ctx context.Context, identity *session.Identity) (*user.User, error) {
	return s.userRepo.FindByID(ctx, identity.UserID)
}
