package models

import (
	"strings"
	"time"
)

// Channel is one playable Ace Stream source as fed through the generation
// pipeline. Multi-valued engine fields (categories, countries, languages)
// arrive flattened into single semicolon-joined labels.
type Channel struct {
	Name                  string
	Infohash              string
	Category              string
	Country               string
	Language              string
	IconURL               string
	Status                int
	Availability          float64
	AvailabilityUpdatedAt time.Time
}

// TVGName returns the channel name in the underscore form EPG matchers expect.
func (c Channel) TVGName() string {
	return strings.ReplaceAll(c.Name, " ", "_")
}
