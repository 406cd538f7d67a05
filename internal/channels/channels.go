package channels

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/acegen/internal/formatter"
	"github.com/desertthunder/acegen/internal/models"
	"github.com/desertthunder/acegen/internal/services"
	"github.com/desertthunder/acegen/internal/shared"
)

// Prober runs batch availability checks. Implemented by [services.Checker].
type Prober interface {
	CheckAll(ctx context.Context, links map[string]string, opts services.CheckOptions) (map[string]error, error)
}

// Repository is the production channel pipeline. One instance serves every
// destination; rules and entry templates are compiled per destination at
// construction, keyed by output path.
type Repository struct {
	engine    services.Engine
	prober    Prober
	logger    *log.Logger
	checkTTL  time.Duration
	rules     map[string]*ruleSet
	renderers map[string]*formatter.EntryRenderer
}

// NewRepository compiles the remap/filter rules and entry templates of every
// destination and returns a repository bound to the given engine and prober.
// checkTTL bounds how long cached probe outcomes are reused during dead
// source removal.
func NewRepository(engine services.Engine, prober Prober, destinations []shared.Destination, checkTTL time.Duration, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Default()
	}

	r := &Repository{
		engine:    engine,
		prober:    prober,
		logger:    logger,
		checkTTL:  checkTTL,
		rules:     make(map[string]*ruleSet, len(destinations)),
		renderers: make(map[string]*formatter.EntryRenderer, len(destinations)),
	}

	for _, dest := range destinations {
		rules, err := compileRules(dest.Rules)
		if err != nil {
			return nil, fmt.Errorf("destination %s: %w", dest.Name, err)
		}
		r.rules[dest.OutputPath] = rules

		renderer, err := formatter.NewEntryRenderer(dest.EntryTemplate)
		if err != nil {
			return nil, fmt.Errorf("destination %s: %w", dest.Name, err)
		}
		r.renderers[dest.OutputPath] = renderer
	}

	return r, nil
}

// Fetch retrieves the full channel listing from the engine and flattens it
// for the given destination.
func (r *Repository) Fetch(ctx context.Context, dest shared.Destination) ([]models.Channel, error) {
	results, err := r.engine.SearchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channels: %w", err)
	}

	channels := Flatten(results)
	r.logger.Infof("fetched %d channels for %s", len(channels), dest.Name)
	return channels, nil
}

// Listing returns the remapped channel set for dest in playlist order,
// category first, name second. This is the browse view of the pipeline: no
// deduplication and no filtering, so rejected channels still show up.
func (r *Repository) Listing(ctx context.Context, dest shared.Destination) ([]models.Channel, error) {
	channels, err := r.Fetch(ctx, dest)
	if err != nil {
		return nil, err
	}

	channels = r.RemapCategories(channels, dest)
	slices.SortStableFunc(channels, func(a, b models.Channel) int {
		return strings.Compare(a.Name, b.Name)
	})
	slices.SortStableFunc(channels, func(a, b models.Channel) int {
		return strings.Compare(a.Category, b.Category)
	})
	return channels, nil
}

// WriteEntry renders the destination's entry template for channel and writes
// it to w.
func (r *Repository) WriteEntry(channel models.Channel, dest shared.Destination, w io.Writer) error {
	renderer, ok := r.renderers[dest.OutputPath]
	if !ok {
		return fmt.Errorf("%w: no entry template for destination %s", shared.ErrNoDestination, dest.Name)
	}

	entry := formatter.NewEntry(channel, r.engine.Addr())
	if err := renderer.Render(w, entry); err != nil {
		return fmt.Errorf("failed to render entry for %s: %w", channel.Name, err)
	}
	return nil
}

// Flatten converts engine search results into channel values. Group-level
// icons apply to every item in the group; category, country and language
// labels are lowercased, deduplicated and sorted into a ";"-joined string.
func Flatten(results []services.SearchResult) []models.Channel {
	var channels []models.Channel
	for _, result := range results {
		iconURL := ""
		if len(result.Icons) > 0 {
			iconURL = result.Icons[0].URL
		}
		for _, item := range result.Items {
			channels = append(channels, models.Channel{
				Name:                  item.Name,
				Infohash:              item.Infohash,
				Category:              normalizeLabels(item.Categories),
				Country:               normalizeLabels(item.Countries),
				Language:              normalizeLabels(item.Languages),
				IconURL:               iconURL,
				Status:                item.Status,
				Availability:          item.Availability,
				AvailabilityUpdatedAt: time.Unix(item.AvailabilityUpdatedAt, 0),
			})
		}
	}
	return channels
}

// normalizeLabels lowercases, deduplicates and sorts labels, dropping empty
// ones, and joins the remainder with ";".
func normalizeLabels(labels []string) string {
	cleaned := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" {
			continue
		}
		if !slices.Contains(cleaned, label) {
			cleaned = append(cleaned, label)
		}
	}
	slices.Sort(cleaned)
	return strings.Join(cleaned, ";")
}

// splitLabels is the inverse of normalizeLabels for matching purposes. An
// empty joined string yields a single empty label so rules can address
// channels without any label.
func splitLabels(joined string) []string {
	return strings.Split(joined, ";")
}
