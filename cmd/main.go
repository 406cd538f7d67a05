package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/acegen/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// version is the release tag update checks compare against. Overridden at
// build time via -ldflags "-X main.version=...".
var version = "v0.3.0"

func main() {
	godotenv.Load()

	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "acegen",
		Usage:    "Regenerate Ace Stream M3U playlists from a local engine",
		Version:  version,
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
