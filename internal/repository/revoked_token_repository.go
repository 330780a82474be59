package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RevokedTokenRepository interface {
	Revoke(ctx context.Context, token *domain.RevokedAccessToken) error
	FindByJTI(ctx context.Context, jti string) (*domain.RevokedAccessToken, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type GormRevokedTokenRepository struct{ db *gorm.DB }

func NewRevokedTokenRepository(db *gorm.DB) RevokedTokenRepository {
	return &GormRevokedTokenRepository{db: db}
}

// Revoke is idempotent per jti; a second insert for the same token is a no-op.
func (r *GormRevokedTokenRepository) Revoke(ctx context.Context, token *domain.RevokedAccessToken) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(token).Error
	observability.RecordRepositoryOperation(ctx, "revoked_token", "revoke", outcomeOf(err, nil))
	return err
}

func (r *GormRevokedTokenRepository) FindByJTI(ctx context.Context, jti string) (*domain.RevokedAccessToken, error) {
	var t domain.RevokedAccessToken
	err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrRevokedTokenNotFound
	}
	observability.RecordRepositoryOperation(ctx, "revoked_token", "find_by_jti", outcomeOf(err, ErrRevokedTokenNotFound))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormRevokedTokenRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", before.UTC()).Delete(&domain.RevokedAccessToken{})
	observability.RecordRepositoryOperation(ctx, "revoked_token", "purge_expired", outcomeOf(res.Error, nil))
	return res.RowsAffected, res.Error
}
