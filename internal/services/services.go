// package services defines clients for the Ace Stream engine HTTP API and the
// supporting probe and notification services
package services

import (
	"context"
	"time"
)

// Engine is the surface of the Ace Stream engine REST API the generator
// consumes. The production implementation is [EngineClient].
type Engine interface {
	// Version queries the engine version endpoint. A non-nil result means
	// the engine is up and answering.
	Version(ctx context.Context) (*EngineVersion, error)

	// SearchAll retrieves every available channel, paging through the
	// engine's search endpoint until an empty page is returned.
	SearchAll(ctx context.Context) ([]SearchResult, error)

	// WaitUntilAvailable blocks until the engine answers a version request
	// or ctx is cancelled.
	WaitUntilAvailable(ctx context.Context) error

	// Addr returns the engine address in host:port form.
	Addr() string

	// StreamURL returns the direct stream link for an infohash.
	StreamURL(infohash string) string
}

// Notifier delivers operator notifications. The production implementation is
// [SMTPNotifier]; a nil-safe no-op is used when notifications are disabled.
type Notifier interface {
	// SendEmail sends a message with the given subject and plain text body.
	SendEmail(ctx context.Context, subject, body string) error
}

// CheckCache persists availability probe outcomes between cycles so sources
// are not re-probed while a previous result is still fresh.
// Implemented by repositories.CheckCacheAdapter.
type CheckCache interface {
	// GetFresh returns the cached outcome for an infohash if one exists and
	// is younger than maxAge. A miss returns ok=false with a nil error.
	GetFresh(infohash string, maxAge time.Duration) (alive bool, ok bool, err error)

	// Record stores a probe outcome for an infohash.
	Record(infohash string, alive bool, detail string) error
}

// EngineVersion is the decoded engine version payload.
type EngineVersion struct {
	Code     int
	Platform string
	Version  string
}
