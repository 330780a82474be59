package repository

import (
	"context"
	"errors"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyRepository is the narrow slice of company records the identity core
// needs: existence checks for recruiter registration.
type CompanyRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Company, error)
	Create(ctx context.Context, company *domain.Company) error
}

type GormCompanyRepository struct{ db *gorm.DB }

func NewCompanyRepository(db *gorm.DB) CompanyRepository { return &GormCompanyRepository{db: db} }

func (r *GormCompanyRepository) FindByID(ctx context.Context, id string) (*domain.Company, error) {
	var c domain.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrCompanyNotFound
	}
	observability.RecordRepositoryOperation(ctx, "company", "find_by_id", outcomeOf(err, ErrCompanyNotFound))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Create(company).Error
	observability.RecordRepositoryOperation(ctx, "company", "create", outcomeOf(err, nil))
	return err
}
