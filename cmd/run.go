package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/acegen/internal/shared"
	"github.com/urfave/cli/v3"
)

// Run starts the generation daemon, regenerating every destination playlist
// on the configured schedule until interrupted.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	closeLog, err := r.configureLogging(config, cmd.String("log-level"), cmd.String("log-file"))
	if err != nil {
		return err
	}
	defer closeLog()

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	r.logger.Info("starting generation daemon",
		"engine", config.Engine.Addr,
		"destinations", len(config.Destinations),
		"cycle_delay", time.Duration(config.Schedule.CycleDelaySeconds)*time.Second)

	return r.superviseRun(ctx, config, stack.generator.Run)
}

// superviseRun executes run inside the crash boundary: panics become errors,
// a clean or cancelled run exits quietly, and anything else is logged and
// optionally reported by email before the error propagates.
func (r *Runner) superviseRun(ctx context.Context, config *shared.Config, run func(context.Context) error) error {
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		return run(ctx)
	}()

	if err == nil || errors.Is(err, context.Canceled) {
		r.logger.Info("daemon stopped")
		return nil
	}

	r.logger.Error("daemon crashed", "error", err)

	if config.Crash.Notify {
		subject := "acegen has crashed on " + shared.HostTag()
		// The run context may already be cancelled, so delivery gets its
		// own deadline.
		notifyCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if sendErr := r.notifierFor(config).SendEmail(notifyCtx, subject, err.Error()); sendErr != nil {
			r.logger.Error("failed to send crash notification", "error", sendErr)
		} else {
			r.logger.Info("crash notification sent", "to", config.SMTP.To)
		}
	}

	if config.Crash.Pause {
		r.writePlain("Press <Enter> to exit...")
		// EOF counts as acknowledgment so a detached stdin cannot hang the
		// exit.
		_, _ = bufio.NewReader(r.stdin).ReadString('\n')
	}

	return err
}

func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Regenerate all destination playlists on a schedule",
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
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Append logs to this file instead of stderr",
			},
		},
		Action: r.Run,
	}
}
