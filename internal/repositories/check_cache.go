package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/acegen/internal/models"
	"github.com/desertthunder/acegen/internal/shared"
)

// CheckCacheAdapter implements services.CheckCache using CheckRepository.
//
// One row is kept per infohash (UNIQUE constraint); recording a new probe
// outcome for a known infohash refreshes the existing row.
type CheckCacheAdapter struct {
	repo *CheckRepository
}

// NewCheckCacheAdapter creates a new CheckCacheAdapter with the given repository
func NewCheckCacheAdapter(repo *CheckRepository) *CheckCacheAdapter {
	return &CheckCacheAdapter{repo: repo}
}

// GetFresh returns the cached outcome for an infohash when one exists and its
// probe is younger than maxAge. ok reports whether a usable entry was found.
func (a *CheckCacheAdapter) GetFresh(infohash string, maxAge time.Duration) (bool, bool, error) {
	record, err := a.repo.GetByInfohash(infohash)
	if errors.Is(err, shared.ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to read check cache: %w", err)
	}

	if maxAge > 0 && time.Since(record.CheckedAt()) > maxAge {
		return false, false, nil
	}

	return record.Alive(), true, nil
}

// Record stores a probe outcome, updating the existing row for the infohash
// when there is one.
func (a *CheckCacheAdapter) Record(infohash string, alive bool, detail string) error {
	existing, err := a.repo.GetByInfohash(infohash)
	if err == nil && existing != nil {
		existing.SetOutcome(alive, detail)
		existing.SetCheckedAt(time.Now())
		if err := a.repo.Update(existing); err != nil {
			return fmt.Errorf("failed to refresh check record: %w", err)
		}
		return nil
	}

	record := models.NewCheckRecord(0, infohash, alive, detail)

	err = a.repo.Create(record)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to record check result: %w", err)
	}

	return nil
}
