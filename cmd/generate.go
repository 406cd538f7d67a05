package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Generate runs a single generation cycle and exits. Errors surface directly
// on the CLI rather than through the crash protocol.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	closeLog, err := r.configureLogging(config, cmd.String("log-level"), "")
	if err != nil {
		return err
	}
	defer closeLog()

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := stack.generator.RunCycle(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Generated %d destination playlist(s)\n", len(config.Destinations))
	for _, dest := range config.Destinations {
		r.writePlain("  %s → %s\n", dest.Name, dest.OutputPath)
	}

	return nil
}

func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Regenerate all destination playlists once and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   "acegen.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Action: r.Generate,
	}
}
