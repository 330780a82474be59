//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/jobsy/identity-service/internal/app"
	"github.com/jobsy/identity-service/internal/config"
	"github.com/jobsy/identity-service/internal/repository"
	"github.com/jobsy/identity-service/internal/service"
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*app.App, func(), error) {
	wire.Build(CoreSet, HTTPSet)
	return nil, nil, nil
}

func InitializeMaintenance(cfg *config.Config) (*service.MaintenanceService, func(), error) {
	wire.Build(provideDB, repository.NewIdentityRepository, provideMaintenanceService)
	return nil, nil, nil
}

func InitializeDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	wire.Build(provideDB)
	return nil, nil, nil
}
