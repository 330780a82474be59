package service

import (
	"context"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/security"
)

type AuthServiceInterface interface {
	RegisterCandidate(ctx context.Context, in RegisterCandidateInput) (*domain.PublicUser, error)
	RegisterRecruiter(ctx context.Context, in RegisterRecruiterInput) (*domain.PublicUser, error)
	Login(ctx context.Context, email, password string, meta domain.ClientMeta) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, meta domain.ClientMeta) (*LoginResult, error)
	Logout(ctx context.Context, claims *security.Claims) error
	Me(claims *security.Claims) (*MeResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword, ip string) error
	SetUserActive(ctx context.Context, userID string, active bool) error
}

type SessionServiceInterface interface {
	ListActiveSessions(ctx context.Context, userID, currentSessionID string) ([]SessionView, error)
	RevokeSession(ctx context.Context, userID, sessionID string) (string, error)
}

// AccessTokenAuthenticator verifies an access token and runs the denylist
// admission check.
type AccessTokenAuthenticator interface {
	AuthenticateAccessToken(ctx context.Context, raw string) (*security.Claims, error)
}

var (
	_ AuthServiceInterface     = (*AuthService)(nil)
	_ SessionServiceInterface  = (*SessionService)(nil)
	_ AccessTokenAuthenticator = (*TokenService)(nil)
)
