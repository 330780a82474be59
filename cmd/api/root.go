package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobsy/identity-service/internal/config"
	"github.com/jobsy/identity-service/internal/database"
	"github.com/jobsy/identity-service/internal/di"
)

// configLoader is swapped in tests.
var configLoader = config.Load

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "api",
		Short:         "Jobsy identity and authentication service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newCleanupCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configLoader()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, cleanup, err := di.InitializeApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			application.OnClose(func() error {
				cleanup()
				return nil
			})
			return application.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	for _, direction := range []string{database.DirectionUp, database.DirectionDown} {
		cmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: "Migrate " + direction,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd, direction)
			},
		})
	}
	return cmd
}

func runMigrate(cmd *cobra.Command, direction string) error {
	cfg, err := configLoader()
	if err != nil {
		return err
	}
	db, cleanup, err := di.InitializeDatabase(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	cmd.Printf("Running migrations %s...\n", direction)
	if err := database.Migrate(db, direction); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Purge expired sessions and revoked-token rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configLoader()
			if err != nil {
				return err
			}
			maintenance, cleanup, err := di.InitializeMaintenance(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := maintenance.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Revoked %d expired sessions and purged %d revoked tokens\n", report.ExpiredSessions, report.RevokedTokens)
			return nil
		},
	}
}
