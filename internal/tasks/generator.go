package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/acegen/internal/models"
	"github.com/desertthunder/acegen/internal/shared"
)

// Counts summarizes a single destination build.
type Counts struct {
	// Total is the number of channels that survived clean filtering.
	Total int
	// Allowed is the number of channels written to the playlist.
	Allowed int
}

// Denied is the number of channels rejected by the destination's rules.
func (c Counts) Denied() int {
	return c.Total - c.Allowed
}

// Connectivity gates generation cycles on engine reachability.
type Connectivity interface {
	WaitUntilAvailable(ctx context.Context) error
}

// ChannelRepository supplies and transforms the channels a destination
// is built from.
type ChannelRepository interface {
	Fetch(ctx context.Context, dest shared.Destination) ([]models.Channel, error)
	RemapCategories(channels []models.Channel, dest shared.Destination) []models.Channel
	CleanFilter(ctx context.Context, channels *[]models.Channel, dest shared.Destination) error
	IsAllowed(channel models.Channel, dest shared.Destination) bool
	WriteEntry(channel models.Channel, dest shared.Destination, w io.Writer) error
}

// Generator rebuilds every configured destination playlist in order.
type Generator struct {
	cfg    *shared.Config
	repo   ChannelRepository
	conn   Connectivity
	logger *log.Logger
	sleep  func(context.Context, time.Duration) error
}

func NewGenerator(cfg *shared.Config, repo ChannelRepository, conn Connectivity, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}

	return &Generator{
		cfg:    cfg,
		repo:   repo,
		conn:   conn,
		logger: logger,
		sleep:  sleepContext,
	}
}

// sleepContext waits for d unless ctx ends first, so cancellation is not
// held up by the long inter-cycle delays.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes generation cycles until the context is cancelled or a
// cycle fails.
func (g *Generator) Run(ctx context.Context) error {
	for {
		if err := g.RunCycle(ctx); err != nil {
			return err
		}

		delay := time.Duration(g.cfg.Schedule.CycleDelaySeconds) * time.Second
		g.logger.Infof("cycle complete, next run in %s", delay)
		if err := g.sleep(ctx, delay); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// RunCycle rebuilds every destination once. The first failing destination
// aborts the cycle and later destinations are left untouched.
func (g *Generator) RunCycle(ctx context.Context) error {
	cycle := shared.GenerateID()[:8]
	g.logger.Infof("starting generation cycle %s", cycle)
	g.logger.Info("waiting for engine connectivity")

	if err := g.conn.WaitUntilAvailable(ctx); err != nil {
		return fmt.Errorf("engine connectivity: %w", err)
	}

	total := len(g.cfg.Destinations)
	for i, dest := range g.cfg.Destinations {
		g.logger.Infof("processing destination %d of %d: %s", i+1, total, dest.Name)

		counts, err := g.processDestination(ctx, dest)
		if err != nil {
			return fmt.Errorf("destination %s: %w", dest.Name, err)
		}

		g.logger.Infof("destination %s: %d total, %d written, %d rejected",
			dest.Name, counts.Total, counts.Allowed, counts.Denied())

		if i < total-1 {
			if err := g.sleep(ctx, time.Duration(g.cfg.Schedule.DestinationDelaySeconds)*time.Second); err != nil {
				return err
			}
		}
	}

	return nil
}

// processDestination rebuilds a single playlist file. The header goes out
// before channels are fetched, so a failed fetch still leaves a valid
// header-only playlist behind.
func (g *Generator) processDestination(ctx context.Context, dest shared.Destination) (Counts, error) {
	var counts Counts

	if dir := filepath.Dir(dest.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return counts, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(dest.OutputPath)
	if err != nil {
		return counts, fmt.Errorf("failed to create output file: %w", err)
	}

	defer file.Close()

	w, err := shared.NewEncodedWriter(file, dest.OutputEncoding)
	if err != nil {
		return counts, fmt.Errorf("failed to prepare output writer: %w", err)
	}

	if _, err := io.WriteString(w, dest.Header); err != nil {
		return counts, fmt.Errorf("failed to write header: %w", err)
	}

	channels, err := g.repo.Fetch(ctx, dest)
	if err != nil {
		return counts, err
	}

	channels = g.repo.RemapCategories(channels, dest)

	slices.SortStableFunc(channels, func(a, b models.Channel) int {
		return strings.Compare(a.Name, b.Name)
	})
	slices.SortStableFunc(channels, func(a, b models.Channel) int {
		return strings.Compare(a.Category, b.Category)
	})

	if dest.Dedup {
		if err := g.repo.CleanFilter(ctx, &channels, dest); err != nil {
			return counts, err
		}
	}

	counts.Total = len(channels)
	for _, ch := range channels {
		if !g.repo.IsAllowed(ch, dest) {
			continue
		}

		if err := g.repo.WriteEntry(ch, dest, w); err != nil {
			return counts, fmt.Errorf("failed to write entry for %q: %w", ch.Name, err)
		}

		counts.Allowed++
	}

	if err := w.Close(); err != nil {
		return counts, fmt.Errorf("failed to flush output: %w", err)
	}

	return counts, nil
}
