package main

import (
	"context"

	"github.com/desertthunder/acegen/internal/services"
	"github.com/urfave/cli/v3"
)

// Update replaces the running binary with the latest GitHub release.
func (r *Runner) Update(ctx context.Context, cmd *cli.Command) error {
	updater := services.NewUpdater(r.httpClient, r.logger)

	r.logger.Info("checking for updates", "current", version)

	release, newer, err := updater.Check(ctx, version)
	if err != nil {
		return err
	}
	if !newer {
		r.writePlain("✓ acegen %s is up to date\n", version)
		return nil
	}

	r.writePlain("Update available: %s (current %s)\n", release.TagName, version)
	if cmd.Bool("check-only") {
		return nil
	}

	if err := updater.Apply(ctx, release); err != nil {
		return err
	}

	r.writePlain("✓ Updated to %s\n", release.TagName)
	return nil
}

func updateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Update acegen to the latest release",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check-only",
				Usage: "Report whether an update exists without installing it",
			},
		},
		Action: r.Update,
	}
}
