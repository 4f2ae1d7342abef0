package flightaware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/time/rate"
)

const (
	// endpoint is the public flight page; the callsign is appended.
	endpoint = "https://flightaware.com/live/flight/"

	defaultTimeout = 10 * time.Second
)

// bootstrapPattern locates the embedded JSON blob inside the flight page.
// Compiled once; the workers share it read-only.
var bootstrapPattern = regexp.MustCompile(`var trackpollBootstrap = (\{.+\});`)

// Client fetches and parses flight pages. Safe for concurrent use by the
// enricher's workers; the rate limiter spreads the load across them.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// ClientConfig tunes the client. Zero values select the defaults.
type ClientConfig struct {
	// BaseURL overrides the live endpoint for testing.
	BaseURL string

	// RequestsPerMinute limits page fetches. Default 30.
	RequestsPerMinute int

	Timeout time.Duration
}

// NewClient creates a flight page client with rate limiting.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = endpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 30
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
	}
}

// GetFlightPlan fetches the flight page for a callsign and extracts the
// filed plan. Returns ErrNotFound when the page has no flight data.
func (c *Client) GetFlightPlan(ctx context.Context, callsign string) (*FlightPlan, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+callsign, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flight page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flight page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read flight page: %w", err)
	}

	match := bootstrapPattern.FindSubmatch(body)
	if match == nil {
		return nil, ErrNotFound
	}

	fp, err := parseFlightPlan(match[1])
	if err != nil && err != ErrNotFound {
		return nil, fmt.Errorf("failed to parse flight data: %w", err)
	}
	return fp, err
}
