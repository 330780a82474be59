package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/observability"
	"github.com/jobsy/identity-service/internal/repository"
	"github.com/jobsy/identity-service/internal/security"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	SessionID        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// UserFetcher loads the owner of a session during rotation.
type UserFetcher func(ctx context.Context, userID string) (*domain.User, error)

type TokenService struct {
	jwtMgr     *security.JWTManager
	sessions   repository.SessionRepository
	revoked    repository.RevokedTokenRepository
	cache      RevokedTokenCache
	pepper     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	lookups    singleflight.Group
}

func NewTokenService(jwtMgr *security.JWTManager, sessions repository.SessionRepository, revoked repository.RevokedTokenRepository, cache RevokedTokenCache, cfg AuthConfig) *TokenService {
	cfg = cfg.withDefaults()
	if cache == nil {
		cache = NewNoopRevokedTokenCache()
	}
	return &TokenService{
		jwtMgr:     jwtMgr,
		sessions:   sessions,
		revoked:    revoked,
		cache:      cache,
		pepper:     cfg.RefreshPepper,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

// Issue opens a new session for user. The session id is chosen before signing
// so the row is written once, already carrying the digest of the refresh token.
func (s *TokenService) Issue(ctx context.Context, user *domain.User, meta domain.ClientMeta) (*TokenPair, error) {
	sessionID := uuid.NewString()
	pair, err := s.mintTokenPair(user, sessionID)
	if err != nil {
		return nil, err
	}
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: security.HashRefreshToken(pair.RefreshToken, s.pepper),
		UserAgent:        meta.UserAgent,
		IP:               meta.IP,
		ExpiresAt:        s.now().UTC().Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return pair, nil
}

// Rotate exchanges a refresh token for a new pair on the same session.
// Presenting a token that no longer matches the session, or one whose session
// was already revoked, revokes every session of the owner.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string, fetchUser UserFetcher, meta domain.ClientMeta) (*TokenPair, *domain.User, error) {
	claims, err := s.jwtMgr.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, ErrInvalidRefreshToken
	}
	session, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if session.UserID != claims.UserID() {
		return nil, nil, ErrInvalidRefreshToken
	}

	switch session.State(s.now()) {
	case domain.SessionRevoked:
		return nil, nil, s.burnSessions(ctx, session.UserID)
	case domain.SessionExpired:
		return nil, nil, ErrSessionExpired
	}
	if !security.RefreshTokenHashEqual(refreshToken, session.RefreshTokenHash, s.pepper) {
		return nil, nil, s.burnSessions(ctx, session.UserID)
	}

	user, err := fetchUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInactiveUser
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrInactiveUser
	}

	pair, err := s.mintTokenPair(user, session.ID)
	if err != nil {
		return nil, nil, err
	}
	pair.RefreshExpiresAt = session.ExpiresAt
	rotated, err := s.sessions.RotateRefreshHash(ctx, session.ID, session.RefreshTokenHash,
		security.HashRefreshToken(pair.RefreshToken, s.pepper), meta)
	if err != nil {
		return nil, nil, fmt.Errorf("rotate session: %w", err)
	}
	if !rotated {
		// A concurrent refresh with the same token won the swap.
		return nil, nil, ErrInvalidRefreshToken
	}
	return pair, user, nil
}

func (s *TokenService) burnSessions(ctx context.Context, userID string) error {
	n, err := s.sessions.RevokeByUserID(ctx, userID, repository.RevokeReasonReuseDetected)
	if err != nil {
		return fmt.Errorf("revoke sessions after refresh reuse: %w", err)
	}
	observability.RecordRefreshReuseDetected(ctx, n)
	slog.WarnContext(ctx, "refresh token reuse detected", "user_id", userID, "revoked_sessions", n)
	return ErrRefreshTokenReuseDetected
}

func (s *TokenService) RevokeAll(ctx context.Context, userID, reason string) (int64, error) {
	return s.sessions.RevokeByUserID(ctx, userID, reason)
}

// RevokeSession revokes one session owned by userID. It reports false when the
// session was already revoked.
func (s *TokenService) RevokeSession(ctx context.Context, userID, sessionID, reason string) (bool, error) {
	changed, err := s.sessions.RevokeByIDForUser(ctx, userID, sessionID, reason)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return false, ErrSessionNotFound
	}
	return changed, err
}

// RevokeAccessToken denylists the token's jti until its own expiry.
func (s *TokenService) RevokeAccessToken(ctx context.Context, claims *security.Claims) error {
	expiresAt := claims.Expiry()
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, &domain.RevokedAccessToken{
		JTI:       claims.ID,
		UserID:    claims.UserID(),
		ExpiresAt: expiresAt.UTC(),
	}); err != nil {
		return fmt.Errorf("store revoked access token: %w", err)
	}
	if err := s.cache.MarkRevoked(ctx, claims.ID, ttl); err != nil {
		slog.WarnContext(ctx, "revoked token cache write failed", "error", err)
	}
	return nil
}

// IsAccessTokenRevoked consults the cache first, then the denylist. Denylist
// rows at or past their expiry count as not revoked.
func (s *TokenService) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if hit, err := s.cache.IsRevoked(ctx, jti); err != nil {
		slog.WarnContext(ctx, "revoked token cache read failed", "error", err)
	} else if hit {
		return true, nil
	}

	// The lookup is shared by every concurrent caller for jti, so one caller's
	// cancellation must not fail the others.
	lookupCtx := context.WithoutCancel(ctx)
	v, err, _ := s.lookups.Do(jti, func() (any, error) {
		entry, err := s.revoked.FindByJTI(lookupCtx, jti)
		if errors.Is(err, repository.ErrRevokedTokenNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		now := s.now()
		if !entry.Effective(now) {
			return false, nil
		}
		if err := s.cache.MarkRevoked(lookupCtx, jti, entry.ExpiresAt.Sub(now)); err != nil {
			slog.WarnContext(lookupCtx, "revoked token cache backfill failed", "error", err)
		}
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("lookup revoked access token: %w", err)
	}
	return v.(bool), nil
}

// AuthenticateAccessToken verifies signature and TTL, then runs the denylist
// admission check.
func (s *TokenService) AuthenticateAccessToken(ctx context.Context, raw string) (*security.Claims, error) {
	claims, err := s.jwtMgr.ParseAccessToken(raw)
	if err != nil {
		observability.RecordAccessTokenValidation(ctx, "invalid")
		return nil, ErrInvalidAccessToken
	}
	revoked, err := s.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		observability.RecordAccessTokenValidation(ctx, "error")
		return nil, err
	}
	if revoked {
		observability.RecordAccessTokenValidation(ctx, "revoked")
		return nil, ErrAccessTokenRevoked
	}
	observability.RecordAccessTokenValidation(ctx, "valid")
	return claims, nil
}

func (s *TokenService) mintTokenPair(user *domain.User, sessionID string) (*TokenPair, error) {
	access, accessClaims, err := s.jwtMgr.SignAccessToken(user.ID, string(user.Role), sessionID, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshClaims, err := s.jwtMgr.SignRefreshToken(user.ID, string(user.Role), sessionID, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		SessionID:        sessionID,
		AccessExpiresAt:  accessClaims.Expiry(),
		RefreshExpiresAt: refreshClaims.Expiry(),
	}, nil
}
