package models

import (
	"fmt"
	"time"
)

// CheckRecord is a persisted availability probe result for one source.
// Records are written by the checker and consulted as a cache so that a
// source probed during a recent cycle is not hit again.
type CheckRecord struct {
	id        string
	sequence  int
	infohash  string
	alive     bool
	detail    string
	checkedAt time.Time
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewCheckRecord creates a CheckRecord for the given infohash and outcome.
// The ID is assigned by the repository on create.
func NewCheckRecord(sequence int, infohash string, alive bool, detail string) *CheckRecord {
	now := time.Now()
	return &CheckRecord{
		sequence:  sequence,
		infohash:  infohash,
		alive:     alive,
		detail:    detail,
		checkedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

func (c *CheckRecord) ID() string { return c.id }

func (c *CheckRecord) Sequence() int { return c.sequence }

func (c *CheckRecord) Infohash() string { return c.infohash }

func (c *CheckRecord) Alive() bool { return c.alive }

func (c *CheckRecord) Detail() string { return c.detail }

func (c *CheckRecord) CheckedAt() time.Time { return c.checkedAt }

func (c *CheckRecord) CreatedAt() time.Time { return c.createdAt }

func (c *CheckRecord) UpdatedAt() time.Time { return c.updatedAt }

func (c *CheckRecord) DeletedAt() *time.Time { return c.deletedAt }

func (c *CheckRecord) SetID(id string) { c.id = id }

func (c *CheckRecord) SetCheckedAt(t time.Time) { c.checkedAt = t }

func (c *CheckRecord) SetUpdatedAt(t time.Time) { c.updatedAt = t }

func (c *CheckRecord) SetDeletedAt(t *time.Time) { c.deletedAt = t }

// SetOutcome replaces the probe outcome on a record that is being refreshed.
func (c *CheckRecord) SetOutcome(alive bool, detail string) {
	c.alive = alive
	c.detail = detail
}

// Validate checks that the record carries the fields persistence requires.
func (c *CheckRecord) Validate() error {
	if c.infohash == "" {
		return fmt.Errorf("check record requires an infohash")
	}
	if c.checkedAt.IsZero() {
		return fmt.Errorf("check record requires a checked_at timestamp")
	}
	return nil
}
