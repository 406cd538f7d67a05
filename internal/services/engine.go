package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// SearchResult represents one named channel in the engine search response,
// grouping the individual sources it is available from.
type SearchResult struct {
	Items []SearchItem `json:"items"`
	Name  string       `json:"name"`
	Icons []SearchIcon `json:"icons"`
}

// SearchItem is one playable source of a channel.
type SearchItem struct {
	Status                int      `json:"status"`
	Languages             []string `json:"languages"`
	Name                  string   `json:"name"`
	Countries             []string `json:"countries"`
	Infohash              string   `json:"infohash"`
	ChannelID             int      `json:"channel_id"`
	AvailabilityUpdatedAt int64    `json:"availability_updated_at"`
	Availability          float64  `json:"availability"`
	Categories            []string `json:"categories"`
}

// SearchIcon is a channel icon reference.
type SearchIcon struct {
	URL  string `json:"url"`
	Type int    `json:"type"`
}

// UnmarshalJSON handles the name field, which the engine serves as either a
// number or a string depending on the channel.
func (sr *SearchResult) UnmarshalJSON(data []byte) error {
	type embedded SearchResult
	tmp := struct {
		embedded
		Name any `json:"name"`
	}{embedded: embedded(*sr)}

	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*sr = SearchResult(tmp.embedded)
	sr.Name = fmt.Sprintf("%v", tmp.Name)

	return nil
}

// versionResp represents the engine response to a version request.
type versionResp struct {
	Result struct {
		Code     int    `json:"code"`
		Platform string `json:"platform"`
		Version  string `json:"version"`
	} `json:"result"`
	Error any `json:"error"`
}

// searchResp represents the engine response to a search request.
type searchResp struct {
	Result struct {
		Total   int            `json:"total"`
		Results []SearchResult `json:"results"`
		Time    float64        `json:"time"`
	} `json:"result"`
}

// EngineClient talks to an Ace Stream engine instance over its REST API.
// Implements [Engine].
type EngineClient struct {
	api          *APIService
	addr         string
	pageSize     int
	pollInterval time.Duration
	logger       *log.Logger
}

// NewEngineClient creates a client for the engine at addr (host:port form).
// A nil httpClient gets a 30 second timeout client, a zero pageSize defaults
// to 200 and a nil logger falls back to the package default.
func NewEngineClient(addr string, pageSize int, httpClient *http.Client, logger *log.Logger) *EngineClient {
	if addr == "" {
		addr = "127.0.0.1:6878"
	}
	if pageSize <= 0 {
		pageSize = 200
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.Default()
	}

	return &EngineClient{
		api:          NewAPIService("http://"+addr, httpClient),
		addr:         addr,
		pageSize:     pageSize,
		pollInterval: 5 * time.Second,
		logger:       logger,
	}
}

// Addr returns the engine address in host:port form.
func (e *EngineClient) Addr() string {
	return e.addr
}

// StreamURL returns the direct MPEG-TS stream link for an infohash.
func (e *EngineClient) StreamURL(infohash string) string {
	return fmt.Sprintf("http://%s/ace/getstream?infohash=%s", e.addr, infohash)
}

// Version queries the engine version endpoint.
func (e *EngineClient) Version(ctx context.Context) (*EngineVersion, error) {
	resp, err := e.api.Get(ctx, "/webui/api/service?method=get_version")
	if err != nil {
		return nil, fmt.Errorf("failed to query engine version: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("engine version request returned status %d", resp.StatusCode)
	}

	var version versionResp
	if err := json.Unmarshal(resp.Body, &version); err != nil {
		return nil, fmt.Errorf("failed to parse engine version response: %w", err)
	}
	if version.Result.Code == 0 || version.Error != nil {
		return nil, fmt.Errorf("engine reported an error response: %+v", version)
	}

	return &EngineVersion{
		Code:     version.Result.Code,
		Platform: version.Result.Platform,
		Version:  version.Result.Version,
	}, nil
}

// SearchAll returns all currently available channels by paging through the
// search endpoint until an empty page comes back.
func (e *EngineClient) SearchAll(ctx context.Context) ([]SearchResult, error) {
	results := []SearchResult{}
	for page := 0; ; page++ {
		pageResults, err := e.searchAtPage(ctx, page)
		if err != nil {
			return results, err
		}
		results = append(results, pageResults...)
		if len(pageResults) == 0 {
			return results, nil
		}
	}
}

// searchAtPage returns the channels at the given zero-based page.
func (e *EngineClient) searchAtPage(ctx context.Context, page int) ([]SearchResult, error) {
	e.logger.Debugf("searching channels at page %d", page)

	path := fmt.Sprintf("/search?page_size=%d&page=%d", e.pageSize, page)
	resp, err := e.api.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("search at page %d failed: %w", page, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("search at page %d returned status %d", page, resp.StatusCode)
	}

	var out searchResp
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse search response at page %d: %w", page, err)
	}

	return out.Result.Results, nil
}

// WaitUntilAvailable blocks until the engine answers a version request,
// retrying on an interval. Returns early with the context error when ctx is
// cancelled.
func (e *EngineClient) WaitUntilAvailable(ctx context.Context) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for ; true; <-ticker.C {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for engine: %w", ctx.Err())
		default:
		}

		version, err := e.Version(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("waiting for engine: %w", err)
			}
			e.logger.Warnf("engine not reachable yet: %v", err)
			continue
		}

		e.logger.Debugf("engine is running (version %s)", version.Version)
		return nil
	}

	return nil
}
