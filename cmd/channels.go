package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/acegen/internal/formatter"
	"github.com/desertthunder/acegen/internal/services"
	"github.com/desertthunder/acegen/internal/shared"
	"github.com/desertthunder/acegen/internal/ui"
	"github.com/urfave/cli/v3"
)

// Channels prints the filtered channel listing for one destination. Probes
// run uncached here so listing never creates the check database.
func (r *Runner) Channels(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	dest, err := destinationByName(config, cmd.String("destination"))
	if err != nil {
		return err
	}

	engine := r.engineClient(config)
	checker := services.NewChecker(r.httpClient, nil, r.logger)

	repo, err := r.channelRepository(config, engine, checker)
	if err != nil {
		return err
	}

	r.logger.Info("listing channels", "destination", dest.Name)

	listing, err := repo.Listing(ctx, dest)
	if err != nil {
		return err
	}

	switch format := cmd.String("format"); format {
	case "text":
		if _, err := r.output.Write(formatter.ExportToText(listing)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	case "json":
		return r.writeJSON(listing, true)
	case "csv":
		data, err := formatter.ExportToCSV(listing)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	default:
		return fmt.Errorf("%w: format must be text, json or csv, got %q", shared.ErrInvalidFlag, format)
	}

	return nil
}

// ChannelsBrowse opens the interactive channel browser for one destination.
func (r *Runner) ChannelsBrowse(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	dest, err := destinationByName(config, cmd.String("destination"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	if err := os.MkdirAll("tmp", 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	fileLogger, logFile, err := shared.NewFileLogger("./tmp/acegen-tui.log")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	engine := r.engineClient(config)
	checker := services.NewChecker(r.httpClient, nil, r.logger)

	repo, err := r.channelRepository(config, engine, checker)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, repo, engine, checker, dest)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

func channelsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "channels",
		Usage:  "List the channels a destination's rules select",
		Action: r.Channels,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   "acegen.toml",
			},
			&cli.StringFlag{
				Name:    "destination",
				Aliases: []string{"d"},
				Usage:   "Destination name (defaults to the first configured)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format (text, json, csv)",
				Value: "text",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "browse",
				Usage: "Browse channels interactively",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the config file",
						Value:   "acegen.toml",
					},
					&cli.StringFlag{
						Name:    "destination",
						Aliases: []string{"d"},
						Usage:   "Destination name (defaults to the first configured)",
					},
				},
				Action: r.ChannelsBrowse,
			},
		},
	}
}
