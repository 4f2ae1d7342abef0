// Package wx fetches METAR reports from the NOAA aviation weather data
// server on demand. One background worker is plenty: controllers request
// weather for a station every few minutes at most, and duplicate requests
// are simply fetched again.
package wx

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unklstewy/fsdbridge/pkg/pool"
)

const metarEndpoint = "https://www.aviationweather.gov/adds/dataserver_current/httpparam" +
	"?dataSource=metars&requestType=retrieve&format=csv&hoursBeforeNow=2&mostRecent=true&stationString="

// ErrNotFound means the server answered but had no METAR for the station.
var ErrNotFound = errors.New("no METAR for station")

// Result is one answered weather request.
type Result struct {
	Station string
	METAR   string
	Err     error
}

// Service resolves METAR requests in the background.
type Service struct {
	baseURL    string
	httpClient *http.Client
	pool       *pool.Pool[string, Result]
}

// New creates the weather service. baseURL overrides the NOAA endpoint for
// testing; pass "" for the default.
func New(baseURL string) *Service {
	if baseURL == "" {
		baseURL = metarEndpoint
	}
	return &Service{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		pool: pool.New[string, Result](1),
	}
}

// Run starts the worker.
func (s *Service) Run() {
	s.pool.Run(func(station string) Result {
		metar, err := s.fetch(station)
		return Result{Station: station, METAR: metar, Err: err}
	})
}

// Request enqueues a station lookup. Duplicates are not filtered.
func (s *Service) Request(station string) {
	s.pool.Submit(station)
}

// Poll returns one answered request if available. Non-blocking.
func (s *Service) Poll() (Result, bool) {
	return s.pool.Poll()
}

// Stop shuts the worker down at its next idle wake.
func (s *Service) Stop() {
	s.pool.Stop()
}

// fetch retrieves the CSV response for one station and extracts the raw
// METAR text from its first data record.
func (s *Service) fetch(station string) (string, error) {
	resp, err := s.httpClient.Get(s.baseURL + station)
	if err != nil {
		return "", fmt.Errorf("failed to fetch METAR: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read METAR response: %w", err)
	}

	// The response leads with five lines of request metadata before the
	// CSV header; the raw METAR is the first column of the first record.
	lines := strings.Split(string(body), "\n")
	if len(lines) <= 5 {
		return "", ErrNotFound
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[5:], "\n")))
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil { // header
		return "", ErrNotFound
	}

	record, err := reader.Read()
	if err != nil || len(record) == 0 || record[0] == "" {
		return "", ErrNotFound
	}

	return record[0], nil
}
