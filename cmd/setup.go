package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/acegen/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the config file from the embedded template when it is missing
// and initializes the check cache database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if cmd.Bool("force") {
		if _, err := os.Stat(configPath); err == nil {
			r.logger.Warn("overwriting existing config file", "path", configPath)
			if err := os.Remove(configPath); err != nil {
				return fmt.Errorf("failed to remove existing config: %w", err)
			}
		}
	}

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("%s: %w", configPath, err)
	}

	r.writePlain("✓ Configuration ready: %s (%d destinations)\n", configPath, len(config.Destinations))

	if config.Database.Path == "" {
		r.writePlain("Check cache disabled: no database path configured\n")
		return nil
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	r.writePlain("✓ Database ready: %s (%d migrations applied)\n", config.Database.Path, applied)
	r.writePlainln("Next steps:")
	r.writePlain("1. Review %s and adjust the destinations\n", configPath)
	r.writePlain("2. Run 'acegen generate' for one cycle or 'acegen run' for the daemon\n")

	return nil
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the check cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   "acegen.toml",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file with the template",
			},
		},
		Action: r.Setup,
	}
}
