package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/fsdbridge/pkg/geo"
)

const airplanesLiveEndpoint = "https://api.airplanes.live/v2"

// AirplanesLive polls the airplanes.live point API (readsb JSON dialect)
// around the radar center. The API caps the query radius at 250 nm.
type AirplanesLive struct {
	baseURL    string
	center     geo.LatLon
	radiusNM   float64
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAirplanesLive builds an adapter centered on the radar location.
// baseURL overrides the live endpoint for testing; pass "" for the default.
func NewAirplanesLive(baseURL string, center geo.LatLon, radiusNM float64) *AirplanesLive {
	if baseURL == "" {
		baseURL = airplanesLiveEndpoint
	}
	if radiusNM > 250 {
		radiusNM = 250
	}
	return &AirplanesLive{
		baseURL:  baseURL,
		center:   center,
		radiusNM: radiusNM,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Published limit: 1 request per second.
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Name implements Provider.
func (p *AirplanesLive) Name() string { return "airplanes.live" }

// Fetch implements Provider.
func (p *AirplanesLive) Fetch() (map[string]Snapshot, error) {
	if err := p.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/point/%.4f/%.4f/%.0f", p.baseURL, p.center.Lat, p.center.Lon, p.radiusNM)

	resp, err := p.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch aircraft data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp airplanesLiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	observed := int64(apiResp.Now / 1000)
	if observed == 0 {
		observed = time.Now().Unix()
	}

	snapshots := make(map[string]Snapshot, len(apiResp.Aircraft))
	for _, ac := range apiResp.Aircraft {
		if ac.Hex == "" || ac.Lat == nil || ac.Lon == nil {
			continue
		}

		snap := Snapshot{
			Hex:          strings.ToUpper(ac.Hex),
			Callsign:     strings.TrimSpace(ac.Flight),
			Latitude:     *ac.Lat,
			Longitude:    *ac.Lon,
			Squawk:       ac.Squawk,
			Model:        ac.Type,
			Registration: strings.TrimSpace(ac.Registration),
			Timestamp:    observed,
			Provider:     "airplanes.live",
		}
		if ac.Track != nil {
			snap.Heading = int(*ac.Track)
		}
		if ac.Gs != nil {
			snap.GroundSpeed = int(*ac.Gs)
		}
		if ac.Seen != nil {
			snap.Timestamp = observed - int64(*ac.Seen)
		}

		// alt_baro is a float, or the string "ground".
		if alt, onGround := parseReadsbAltitude(ac.AltBaro); onGround {
			snap.OnGround = true
		} else {
			snap.Altitude = alt
		}

		snapshots[snap.Hex] = snap
	}

	return snapshots, nil
}

// airplanesLiveResponse is the /point response envelope.
type airplanesLiveResponse struct {
	Aircraft []airplanesLiveAircraft `json:"ac"`
	Total    int                     `json:"total"`
	Now      float64                 `json:"now"` // unix milliseconds
}

type airplanesLiveAircraft struct {
	Hex          string      `json:"hex"`
	Flight       string      `json:"flight"`
	Registration string      `json:"r"`
	Type         string      `json:"t"`
	Lat          *float64    `json:"lat"`
	Lon          *float64    `json:"lon"`
	AltBaro      interface{} `json:"alt_baro"`
	Gs           *float64    `json:"gs"`
	Track        *float64    `json:"track"`
	Squawk       string      `json:"squawk"`
	Seen         *float64    `json:"seen"`
}

// parseReadsbAltitude splits the alt_baro union: (altitude, false) for a
// numeric value, (0, true) for the "ground" marker.
func parseReadsbAltitude(val interface{}) (int, bool) {
	switch v := val.(type) {
	case float64:
		return int(v), false
	case string:
		return 0, v == "ground"
	default:
		return 0, false
	}
}
