package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Migrate applies the embedded migrations over the already opened connection.
// Having nothing to do is not an error. The migrator is not closed because
// that would close the shared connection pool.
func Migrate(db *gorm.DB, direction string) error {
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	switch direction {
	case DirectionUp:
		err = m.Up()
	case DirectionDown:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}

func newMigrator(db *gorm.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}
