package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/acegen/internal/models"
	"github.com/desertthunder/acegen/internal/services"
	"github.com/desertthunder/acegen/internal/shared"
)

// CleanFilter removes duplicate infohashes from channels in place, keeping
// the first occurrence, and drops dead sources when the destination's rules
// ask for it. Runs after sorting, so which duplicate survives is stable
// between cycles.
func (r *Repository) CleanFilter(ctx context.Context, channels *[]models.Channel, dest shared.Destination) error {
	kept := (*channels)[:0]
	seen := make(map[string]bool, len(*channels))
	for _, ch := range *channels {
		if seen[ch.Infohash] {
			continue
		}
		seen[ch.Infohash] = true
		kept = append(kept, ch)
	}
	if removed := len(*channels) - len(kept); removed > 0 {
		r.logger.Infof("removed %d duplicate sources for %s", removed, dest.Name)
	}
	*channels = kept

	if !dest.Rules.RemoveDead {
		return nil
	}
	return r.removeDead(ctx, channels, dest)
}

// removeDead batch-probes every channel's stream link and drops the ones
// that do not answer.
func (r *Repository) removeDead(ctx context.Context, channels *[]models.Channel, dest shared.Destination) error {
	if r.prober == nil {
		return fmt.Errorf("destination %s: dead source removal requires a prober", dest.Name)
	}

	links := make(map[string]string, len(*channels))
	for _, ch := range *channels {
		links[ch.Infohash] = r.engine.StreamURL(ch.Infohash)
	}

	opts := services.CheckOptions{
		Timeout:     time.Duration(dest.Rules.CheckTimeoutSeconds) * time.Second,
		MpegTSProbe: dest.Rules.MpegTSProbe,
		MaxAge:      r.checkTTL,
	}

	outcomes, err := r.prober.CheckAll(ctx, links, opts)
	if err != nil {
		return fmt.Errorf("failed to check sources for %s: %w", dest.Name, err)
	}

	kept := (*channels)[:0]
	for _, ch := range *channels {
		if reason := outcomes[ch.Infohash]; reason != nil {
			r.logger.Warnf("rejected %q (%s): %v", ch.Name, links[ch.Infohash], reason)
			continue
		}
		kept = append(kept, ch)
	}
	if removed := len(*channels) - len(kept); removed > 0 {
		r.logger.Infof("removed %d dead sources for %s", removed, dest.Name)
	}
	*channels = kept

	return nil
}
