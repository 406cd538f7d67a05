package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/asticode/go-astits"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// tsPacketLen is the fixed MPEG-TS packet size; probes read ten packets
// worth of payload before judging a stream.
const tsPacketLen = 188

// CheckOptions contains configuration for a batch availability check.
type CheckOptions struct {
	Timeout     time.Duration // Per-probe response deadline (default: 20s)
	MpegTSProbe bool          // Require the payload to parse as MPEG-TS
	MaxAge      time.Duration // Cached results younger than this are reused
	NumWorkers  int           // Concurrent probes (default: 5, capped at 10)
	RateLimit   float64       // Probe starts per second (default: 5)
}

// Checker probes whether engine stream links answer with content. Outcomes
// are recorded in the check cache so repeat probes within a cycle window are
// skipped.
type Checker struct {
	httpClient *http.Client
	cache      CheckCache
	logger     *log.Logger
}

// NewChecker creates an availability checker. A nil cache disables result
// reuse; probes still run.
func NewChecker(httpClient *http.Client, cache CheckCache, logger *log.Logger) *Checker {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Checker{httpClient: httpClient, cache: cache, logger: logger}
}

// IsAvailable returns nil if link responds with content within timeout, or an
// error describing why the source is considered dead. With analyzeMpegTS set
// the response prefix must also parse as an MPEG-TS packet.
func (c *Checker) IsAvailable(ctx context.Context, link string, timeout time.Duration, analyzeMpegTS bool) error {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("responded with status %s", resp.Status)
	}

	buff := make([]byte, tsPacketLen*10)
	read, err := resp.Body.Read(buff)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if read == 0 {
		return fmt.Errorf("read 0 bytes from body")
	}
	if !analyzeMpegTS {
		return nil
	}

	dmx := astits.NewDemuxer(ctx, bytes.NewReader(buff[:read]))
	if _, err := dmx.NextPacket(); err != nil {
		return fmt.Errorf("failed to parse MPEG-TS packet: %w", err)
	}
	return nil
}

// checkOutcome carries one probe result through the worker pool.
type checkOutcome struct {
	infohash string
	err      error
}

// CheckAll probes the given stream links (keyed by infohash) concurrently
// with rate limiting. The result maps every infohash to nil when the source
// is alive or to the reason it is considered dead. Fresh cached outcomes are
// reused without probing. The error return is non-nil only when ctx ends the
// batch early.
func (c *Checker) CheckAll(ctx context.Context, links map[string]string, opts CheckOptions) (map[string]error, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	outcomes := make(map[string]error, len(links))

	pending := make([]string, 0, len(links))
	for infohash := range links {
		if c.cache != nil && opts.MaxAge > 0 {
			alive, ok, err := c.cache.GetFresh(infohash, opts.MaxAge)
			if err != nil {
				c.logger.Warnf("check cache lookup failed for %s: %v", infohash, err)
			} else if ok {
				if alive {
					outcomes[infohash] = nil
				} else {
					outcomes[infohash] = fmt.Errorf("source unavailable (cached result)")
				}
				continue
			}
		}
		pending = append(pending, infohash)
	}

	if len(pending) == 0 {
		return outcomes, nil
	}
	c.logger.Debugf("probing %d sources (%d cached)", len(pending), len(links)-len(pending))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan string, len(pending))
	results := make(chan checkOutcome, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for infohash := range jobs {
				err := c.IsAvailable(ctx, links[infohash], opts.Timeout, opts.MpegTSProbe)
				results <- checkOutcome{infohash: infohash, err: err}
			}
		}()
	}

	var feedErr error
	go func() {
		defer close(jobs)
		for _, infohash := range pending {
			select {
			case <-ctx.Done():
				feedErr = ctx.Err()
				return
			default:
			}
			if err := limiter.Wait(ctx); err != nil {
				feedErr = err
				return
			}
			jobs <- infohash
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for outcome := range results {
		outcomes[outcome.infohash] = outcome.err

		if c.cache != nil {
			detail := ""
			if outcome.err != nil {
				detail = outcome.err.Error()
			}
			if err := c.cache.Record(outcome.infohash, outcome.err == nil, detail); err != nil {
				c.logger.Warnf("failed to record check result for %s: %v", outcome.infohash, err)
			}
		}
	}

	return outcomes, feedErr
}
