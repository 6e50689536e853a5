package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Monitor is a remote monitor definition as returned by the Datadog v1 API.
// Options and matching downtimes are kept as raw JSON and stored verbatim.
type Monitor struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Message           string            `json:"message"`
	Tags              []string          `json:"tags"`
	Type              string            `json:"type"`
	Query             string            `json:"query"`
	State             string            `json:"state,omitempty"`
	OverallState      string            `json:"overall_state,omitempty"`
	Options           json.RawMessage   `json:"options,omitempty"`
	MatchingDowntimes []json.RawMessage `json:"matching_downtimes,omitempty"`
}

// MonitorSource is the remote side of the refresh pipeline. The concrete
// implementation talks to Datadog; tests swap in a fake.
type MonitorSource interface {
	// ListMonitors returns the current full monitor listing. A max of 0
	// means no cap.
	ListMonitors(ctx context.Context, max int) ([]Monitor, error)
	// GetMonitorDetail resolves a single monitor, including its matching
	// downtimes.
	GetMonitorDetail(ctx context.Context, id int64) (*Monitor, error)
	// ListMetricNames returns the names of metrics active in the last day.
	ListMetricNames(ctx context.Context) ([]string, error)
}

// DatadogClient is a thin typed client for the Datadog v1 REST API.
type DatadogClient struct {
	baseURL    string
	apiKey     string
	appKey     string
	httpClient *http.Client
}

// NewDatadogClient builds a client for the configured Datadog site.
func NewDatadogClient(cfg DatadogConfig) *DatadogClient {
	return &DatadogClient{
		baseURL: fmt.Sprintf("https://api.%s", cfg.Site),
		apiKey:  cfg.APIKey,
		appKey:  cfg.AppKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// get performs an authenticated GET and unmarshals the JSON response.
func (c *DatadogClient) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("DD-API-KEY", c.apiKey)
	req.Header.Set("DD-APPLICATION-KEY", c.appKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "monitorsync/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Keep a short excerpt of the body for the error message.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("requesting %s: status %d: %s", path, resp.StatusCode, excerpt)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// ListMonitors fetches the complete current monitor listing, capped at
// max entries when max > 0.
func (c *DatadogClient) ListMonitors(ctx context.Context, max int) ([]Monitor, error) {
	query := url.Values{}
	query.Set("with_downtimes", "true")
	if max > 0 {
		query.Set("page_size", strconv.Itoa(max))
	}

	var monitors []Monitor
	if err := c.get(ctx, "/api/v1/monitor", query, &monitors); err != nil {
		return nil, fmt.Errorf("listing monitors: %w", err)
	}

	// The API may ignore the page size hint; enforce the cap here too.
	if max > 0 && len(monitors) > max {
		monitors = monitors[:max]
	}

	log.Debug().Int("count", len(monitors)).Msg("[Client] Fetched monitor listing")
	return monitors, nil
}

// GetMonitorDetail fetches a single monitor with its matching downtimes.
func (c *DatadogClient) GetMonitorDetail(ctx context.Context, id int64) (*Monitor, error) {
	query := url.Values{}
	query.Set("with_downtimes", "true")

	var monitor Monitor
	path := fmt.Sprintf("/api/v1/monitor/%d", id)
	if err := c.get(ctx, path, query, &monitor); err != nil {
		return nil, fmt.Errorf("fetching monitor %d: %w", id, err)
	}
	return &monitor, nil
}

// ListMetricNames returns the names of metrics active in the last 24 hours.
func (c *DatadogClient) ListMetricNames(ctx context.Context) ([]string, error) {
	query := url.Values{}
	query.Set("from", strconv.FormatInt(time.Now().Add(-24*time.Hour).Unix(), 10))

	var response struct {
		Metrics []string `json:"metrics"`
	}
	if err := c.get(ctx, "/api/v1/metrics", query, &response); err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}

	log.Debug().Int("count", len(response.Metrics)).Msg("[Client] Fetched metric names")
	return response.Metrics, nil
}
