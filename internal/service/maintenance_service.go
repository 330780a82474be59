package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jobsy/identity-service/internal/observability"
	"github.com/jobsy/identity-service/internal/repository"
)

type CleanupReport struct {
	ExpiredSessions int64
	RevokedTokens   int64
}

// MaintenanceService marks sessions past their expiry as revoked, keeping the
// rows, and purges denylist entries past the token's own expiry.
type MaintenanceService struct {
	sessions repository.SessionRepository
	revoked  repository.RevokedTokenRepository
	now      func() time.Time
}

func NewMaintenanceService(sessions repository.SessionRepository, revoked repository.RevokedTokenRepository) *MaintenanceService {
	return &MaintenanceService{sessions: sessions, revoked: revoked, now: time.Now}
}

func (s *MaintenanceService) Cleanup(ctx context.Context) (CleanupReport, error) {
	now := s.now()
	var report CleanupReport
	n, err := s.sessions.RevokeExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("revoke expired sessions: %w", err)
	}
	report.ExpiredSessions = n
	observability.RecordSessionCleanup(ctx, "session_expired", n)

	n, err = s.revoked.PurgeExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("purge revoked tokens: %w", err)
	}
	report.RevokedTokens = n
	observability.RecordSessionCleanup(ctx, "revoked_token", n)
	return report, nil
}
