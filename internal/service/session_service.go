package service

import (
	"context"
	"time"

	"github.com/jobsy/identity-service/internal/repository"
)

type SessionView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	IsCurrent bool      `json:"is_current"`
}

type SessionService struct {
	sessionRepo repository.SessionRepository
	tokens      *TokenService
}

func NewSessionService(sessionRepo repository.SessionRepository, tokens *TokenService) *SessionService {
	return &SessionService{sessionRepo: sessionRepo, tokens: tokens}
}

func (s *SessionService) ListActiveSessions(ctx context.Context, userID, currentSessionID string) ([]SessionView, error) {
	sessions, err := s.sessionRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			UserAgent: session.UserAgent,
			IP:        session.IP,
			IsCurrent: session.ID == currentSessionID,
		})
	}
	return views, nil
}

// RevokeSession returns "revoked" or "already_revoked". Sessions owned by
// another user are reported as not found.
func (s *SessionService) RevokeSession(ctx context.Context, userID, sessionID string) (string, error) {
	changed, err := s.tokens.RevokeSession(ctx, userID, sessionID, repository.RevokeReasonUserRevoked)
	if err != nil {
		return "", err
	}
	if !changed {
		return "already_revoked", nil
	}
	return "revoked", nil
}
