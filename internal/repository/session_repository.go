package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/observability"

	"gorm.io/gorm"
)

const (
	RevokeReasonLogout        = "logout"
	RevokeReasonReuseDetected = "reuse_detected"
	RevokeReasonUserRevoked   = "user_session_revoked"
	RevokeReasonPasswordReset = "password_reset"
	RevokeReasonDeactivated   = "user_deactivated"
	RevokeReasonExpired       = domain.RevokedOnExpiry
)

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	ListActiveByUserID(ctx context.Context, userID string) ([]domain.Session, error)
	// RotateRefreshHash swaps expectedHash for newHash only while the session
	// still holds expectedHash and is active. It reports whether the swap happened.
	RotateRefreshHash(ctx context.Context, sessionID, expectedHash, newHash string, meta domain.ClientMeta) (bool, error)
	RevokeByIDForUser(ctx context.Context, userID, sessionID, reason string) (bool, error)
	RevokeByUserID(ctx context.Context, userID, reason string) (int64, error)
	// RevokeExpired marks still-active sessions past their expiry as revoked.
	// Rows are never deleted.
	RevokeExpired(ctx context.Context, before time.Time) (int64, error)
}

type GormSessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db, now: time.Now}
}

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.WithContext(ctx).Create(s).Error
	observability.RecordRepositoryOperation(ctx, "session", "create", outcomeOf(err, nil))
	return err
}

func (r *GormSessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(ctx, "session", "find_by_id", outcomeOf(err, ErrSessionNotFound))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormSessionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, r.now().UTC()).
		Order("created_at DESC").
		Find(&sessions).Error
	observability.RecordRepositoryOperation(ctx, "session", "list_active_by_user_id", outcomeOf(err, nil))
	return sessions, err
}

func (r *GormSessionRepository) RotateRefreshHash(ctx context.Context, sessionID, expectedHash, newHash string, meta domain.ClientMeta) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND refresh_token_hash = ? AND revoked_at IS NULL AND expires_at > ?", sessionID, expectedHash, r.now().UTC()).
		Updates(map[string]any{
			"refresh_token_hash": newHash,
			"ip":                 meta.IP,
			"user_agent":         meta.UserAgent,
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "rotate_refresh_hash", "error")
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "session", "rotate_refresh_hash", "conflict")
		return false, nil
	}
	observability.RecordRepositoryOperation(ctx, "session", "rotate_refresh_hash", "success")
	return true, nil
}

// RevokeByIDForUser returns ErrSessionNotFound when the session does not exist
// or belongs to someone else, and false when it was already revoked.
func (r *GormSessionRepository) RevokeByIDForUser(ctx context.Context, userID, sessionID, reason string) (bool, error) {
	db := r.db.WithContext(ctx)
	var count int64
	if err := db.Model(&domain.Session{}).Where("user_id = ? AND id = ?", userID, sessionID).Count(&count).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "revoke_by_id_for_user", "error")
		return false, err
	}
	if count == 0 {
		observability.RecordRepositoryOperation(ctx, "session", "revoke_by_id_for_user", "not_found")
		return false, ErrSessionNotFound
	}
	res := db.Model(&domain.Session{}).
		Where("user_id = ? AND id = ? AND revoked_at IS NULL", userID, sessionID).
		Updates(map[string]any{"revoked_at": r.now().UTC(), "revoked_reason": reason})
	observability.RecordRepositoryOperation(ctx, "session", "revoke_by_id_for_user", outcomeOf(res.Error, nil))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RevokeByUserID revokes every still-active session of the user. Already
// revoked rows keep their original timestamp and reason.
func (r *GormSessionRepository) RevokeByUserID(ctx context.Context, userID, reason string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]any{"revoked_at": r.now().UTC(), "revoked_reason": reason})
	observability.RecordRepositoryOperation(ctx, "session", "revoke_by_user_id", outcomeOf(res.Error, nil))
	return res.RowsAffected, res.Error
}

func (r *GormSessionRepository) RevokeExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("expires_at <= ? AND revoked_at IS NULL", before.UTC()).
		Updates(map[string]any{"revoked_at": r.now().UTC(), "revoked_reason": RevokeReasonExpired})
	observability.RecordRepositoryOperation(ctx, "session", "revoke_expired", outcomeOf(res.Error, nil))
	return res.RowsAffected, res.Error
}
