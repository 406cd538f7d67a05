package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/acegen/internal/repositories"
	"github.com/desertthunder/acegen/internal/shared"
	"github.com/urfave/cli/v3"
)

// Status reports whether the engine is reachable along with check cache
// statistics when the cache database exists.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	engine := r.engineClient(config)

	r.logger.Info("checking engine status", "addr", engine.Addr())

	version, err := engine.Version(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrEngineUnavailable, err)
	}

	stats, statsErr := readCacheStats(config)
	if statsErr != nil {
		r.logger.Warnf("failed to read check cache stats: %v", statsErr)
	}

	if cmd.Bool("json") {
		payload := map[string]any{
			"engine": map[string]any{
				"addr":     engine.Addr(),
				"version":  version.Version,
				"platform": version.Platform,
				"code":     version.Code,
			},
			"destinations": len(config.Destinations),
		}
		if stats != nil {
			payload["cache"] = map[string]any{
				"total": stats.Total,
				"alive": stats.Alive,
				"dead":  stats.Dead,
			}
		}
		return r.writeJSON(payload, true)
	}

	r.writePlain("✓ Engine is running at %s\n", engine.Addr())
	r.writePlain("Version: %s (platform %s, code %d)\n", version.Version, version.Platform, version.Code)
	r.writePlain("Destinations: %d\n", len(config.Destinations))

	switch {
	case config.Database.Path == "":
		r.writePlain("Check cache: disabled\n")
	case stats == nil:
		r.writePlain("Check cache: not initialized (run 'acegen setup')\n")
	default:
		r.writePlain("Check cache: %d results (%d alive, %d dead)\n", stats.Total, stats.Alive, stats.Dead)
	}

	if cmd.Bool("open") {
		url := fmt.Sprintf("http://%s/webui/app", engine.Addr())
		r.logger.Info("opening engine web UI", "url", url)
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warnf("failed to open browser: %v", err)
		}
	}

	return nil
}

// readCacheStats reads check cache statistics without creating the database,
// returning nil stats when no cache exists yet.
func readCacheStats(config *shared.Config) (*repositories.CheckStats, error) {
	if config.Database.Path == "" {
		return nil, nil
	}
	if _, err := os.Stat(config.Database.Path); err != nil {
		return nil, nil
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return repositories.NewCheckRepository(db).Stats()
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check whether the Ace Stream engine is reachable",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   "acegen.toml",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output engine status as JSON",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the engine web UI in a browser",
			},
		},
		Action: r.Status,
	}
}
