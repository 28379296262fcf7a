package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
//
// With --rollback it reverts the most recently applied migration instead.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.DatabasePath()

	if cmd.Bool("rollback") {
		return r.rollbackDatabase(path)
	}

	r.logger.Info("initializing database", "path", path)

	if err := r.open(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := shared.MigrationVersion(r.db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", path, version)
}

func (r *Runner) rollbackDatabase(path string) error {
	db := r.db
	if db == nil {
		opened, err := shared.NewDatabase(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer opened.Close()
		db = opened
	}

	m, err := shared.RollbackMigration(db)
	if err != nil {
		return err
	}

	version, err := shared.MigrationVersion(db)
	if err != nil {
		return err
	}

	r.logger.Warn("rolled back migration", "path", path, "version", m.Version, "name", m.Name)
	return r.writePlain("✓ Rolled back migration %04d_%s (schema version now %d)\n", m.Version, m.Name, version)
}

// SetupConfig writes the embedded configuration template to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret in %s\n", path)
	r.writePlain("2. Run 'mixsync setup database'\n")
	return nil
}
