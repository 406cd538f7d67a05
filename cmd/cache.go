package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/acegen/internal/repositories"
	"github.com/desertthunder/acegen/internal/shared"
	"github.com/urfave/cli/v3"
)

// openCache opens the check cache database, creating it and applying
// migrations when needed.
func (r *Runner) openCache(config *shared.Config) (*sql.DB, error) {
	if config.Database.Path == "" {
		return nil, fmt.Errorf("%w: database.path is not configured", shared.ErrInvalidConfig)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open check database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// CacheStats reports how many probe results are cached and how old they are.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	db, err := r.openCache(config)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := repositories.NewCheckRepository(db).Stats()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"database": config.Database.Path,
			"total":    stats.Total,
			"alive":    stats.Alive,
			"dead":     stats.Dead,
			"newest":   stats.Newest,
			"oldest":   stats.Oldest,
		}, true)
	}

	r.writePlainHeader("Check Cache")
	r.writePlain("Database: %s\n", config.Database.Path)
	r.writePlain("Cached results: %d (%d alive, %d dead)\n", stats.Total, stats.Alive, stats.Dead)
	if stats.Total > 0 {
		r.writePlain("Newest probe: %s\n", stats.Newest.Format(time.RFC3339))
		r.writePlain("Oldest probe: %s\n", stats.Oldest.Format(time.RFC3339))
	}

	return nil
}

// CacheClear deletes cached probe results, optionally only those older than
// a cutoff.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	db, err := r.openCache(config)
	if err != nil {
		return err
	}
	defer db.Close()

	cutoff := time.Now()
	if hours := cmd.Int("older-than"); hours > 0 {
		cutoff = cutoff.Add(-time.Duration(hours) * time.Hour)
	}

	removed, err := repositories.NewCheckRepository(db).DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}

	r.logger.Info("check cache cleared", "removed", removed)
	r.writePlain("✓ Removed %d cached probe results\n", removed)

	return nil
}

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune the stream check cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show check cache statistics",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the config file",
						Value:   "acegen.toml",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output statistics as JSON",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:  "clear",
				Usage: "Delete cached probe results",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the config file",
						Value:   "acegen.toml",
					},
					&cli.IntFlag{
						Name:  "older-than",
						Usage: "Only delete results older than this many hours (0 deletes everything)",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
