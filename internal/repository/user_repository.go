package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateCandidate(ctx context.Context, user *domain.User, profile *domain.CandidateProfile, phones []domain.CandidatePhone) error
	CreateRecruiter(ctx context.Context, user *domain.User, profile *domain.RecruiterProfile, phones []domain.RecruiterPhone) error
	UpdateResetCode(ctx context.Context, userID, codeHash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, userID, codeHash, passwordHash string, now time.Time) (bool, error)
	SetActive(ctx context.Context, userID string, active bool) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_by_id", outcomeOf(err, ErrUserNotFound))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_by_email", outcomeOf(err, ErrUserNotFound))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateCandidate persists the user, its candidate profile and phones in one
// transaction. IDs left empty are assigned here.
func (r *GormUserRepository) CreateCandidate(ctx context.Context, user *domain.User, profile *domain.CandidateProfile, phones []domain.CandidatePhone) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, user); err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		if len(phones) == 0 {
			return nil
		}
		for i := range phones {
			phones[i].CandidateID = user.ID
			if phones[i].ID == "" {
				phones[i].ID = uuid.NewString()
			}
		}
		return tx.Create(&phones).Error
	})
	observability.RecordRepositoryOperation(ctx, "user", "create_candidate", outcomeOf(err, nil))
	return err
}

// CreateRecruiter is CreateCandidate for recruiters. The referenced company is
// checked inside the same transaction.
func (r *GormUserRepository) CreateRecruiter(ctx context.Context, user *domain.User, profile *domain.RecruiterProfile, phones []domain.RecruiterPhone) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company domain.Company
		if err := tx.Where("id = ?", profile.CompanyID).First(&company).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCompanyNotFound
			}
			return err
		}
		if err := createUser(tx, user); err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		if len(phones) == 0 {
			return nil
		}
		for i := range phones {
			phones[i].RecruiterID = user.ID
			if phones[i].ID == "" {
				phones[i].ID = uuid.NewString()
			}
		}
		return tx.Create(&phones).Error
	})
	observability.RecordRepositoryOperation(ctx, "user", "create_recruiter", outcomeOf(err, ErrCompanyNotFound))
	return err
}

func createUser(tx *gorm.DB, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	var existing int64
	if err := tx.Model(&domain.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return ErrDuplicateEmail
	}
	if err := tx.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *GormUserRepository) UpdateResetCode(ctx context.Context, userID, codeHash string, expiresAt time.Time) error {
	err := r.updateUser(ctx, userID, map[string]any{
		"reset_code_hash":       codeHash,
		"reset_code_expires_at": expiresAt.UTC(),
	})
	observability.RecordRepositoryOperation(ctx, "user", "update_reset_code", outcomeOf(err, ErrUserNotFound))
	return err
}

// ResetPassword consumes the reset code and sets the new password in one
// conditional update, then revokes every active session of the user in the
// same transaction. It reports false when the code was already consumed,
// replaced or expired, in which case nothing changes.
func (r *GormUserRepository) ResetPassword(ctx context.Context, userID, codeHash, passwordHash string, now time.Time) (bool, error) {
	now = now.UTC()
	consumed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ? AND reset_code_hash = ? AND reset_code_expires_at > ?", userID, codeHash, now).
			Updates(map[string]any{
				"password_hash":         passwordHash,
				"reset_code_hash":       nil,
				"reset_code_expires_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		consumed = true
		return tx.Model(&domain.Session{}).
			Where("user_id = ? AND revoked_at IS NULL", userID).
			Updates(map[string]any{"revoked_at": now, "revoked_reason": RevokeReasonPasswordReset}).Error
	})
	outcome := outcomeOf(err, nil)
	if err == nil && !consumed {
		outcome = "stale"
	}
	observability.RecordRepositoryOperation(ctx, "user", "reset_password", outcome)
	if err != nil {
		return false, err
	}
	return consumed, nil
}

func (r *GormUserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	err := r.updateUser(ctx, userID, map[string]any{"is_active": active})
	observability.RecordRepositoryOperation(ctx, "user", "set_active", outcomeOf(err, ErrUserNotFound))
	return err
}

func (r *GormUserRepository) updateUser(ctx context.Context, userID string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
