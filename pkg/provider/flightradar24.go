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

	"github.com/unklstewy/fsdbridge/pkg/airports"
	"github.com/unklstewy/fsdbridge/pkg/geo"
)

const fr24Endpoint = "https://data-live.flightradar24.com/zones/fcgi/feed.js" +
	"?faa=1&mlat=1&flarm=1&adsb=1&gnd=1&air=1&vehicles=1&estimated=1&gliders=1&stats=0&maxage=14400"

// FlightRadar24 polls the flightradar24 zone feed for a fixed radar
// rectangle. The feed reports origin/destination as IATA codes; they are
// resolved to ICAO through the airport database at decode time.
type FlightRadar24 struct {
	url        string
	airports   *airports.DB
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFlightRadar24 builds an adapter for the given radar bounds.
// baseURL overrides the live endpoint for testing; pass "" for the default.
func NewFlightRadar24(baseURL string, bounds geo.Bounds, db *airports.DB) *FlightRadar24 {
	if baseURL == "" {
		baseURL = fr24Endpoint
	}
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return &FlightRadar24{
		url: fmt.Sprintf("%s%sbounds=%.2f,%.2f,%.2f,%.2f",
			baseURL, sep, bounds.Lat1, bounds.Lat2, bounds.Lon1, bounds.Lon2),
		airports: db,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// The public feed tolerates roughly one request per second.
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Name implements Provider.
func (p *FlightRadar24) Name() string { return "FlightRadar24" }

// Fetch implements Provider.
func (p *FlightRadar24) Fetch() (map[string]Snapshot, error) {
	if err := p.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := p.httpClient.Get(p.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, string(body))
	}

	// The feed is one object whose aircraft entries are arrays keyed by an
	// opaque feed id; the remaining keys (full_count, version, stats) are
	// scalars and get skipped.
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}

	snapshots := make(map[string]Snapshot)
	for _, value := range raw {
		var fields []interface{}
		if err := json.Unmarshal(value, &fields); err != nil {
			continue // non-aircraft key
		}

		snap, ok := decodeFR24Row(fields)
		if !ok {
			continue
		}

		snap.Origin = p.airports.ResolveICAO(snap.Origin)
		snap.Destination = p.airports.ResolveICAO(snap.Destination)

		snapshots[snap.Hex] = snap
	}

	return snapshots, nil
}

// Zone feed array layout, by index.
const (
	frHex = iota
	frLat
	frLon
	frTrack
	frAltitude
	frSpeed
	frSquawk
	frRadar
	frModel
	frRegistration
	frTimestamp
	frOrigin
	frDestination
	frFlight
	frOnGround
	frVerticalSpeed
	frCallsign
	frIsGlider
	frAirline
)

// decodeFR24Row converts one feed array into a Snapshot. Rows that are too
// short or carry a non-string hex are rejected rather than guessed at.
func decodeFR24Row(fields []interface{}) (Snapshot, bool) {
	if len(fields) <= frCallsign {
		return Snapshot{}, false
	}

	hex, ok := fields[frHex].(string)
	if !ok || hex == "" {
		return Snapshot{}, false
	}

	snap := Snapshot{
		Hex:          strings.ToUpper(hex),
		Latitude:     floatField(fields, frLat),
		Longitude:    floatField(fields, frLon),
		Heading:      int(floatField(fields, frTrack)),
		Altitude:     int(floatField(fields, frAltitude)),
		GroundSpeed:  int(floatField(fields, frSpeed)),
		Squawk:       stringField(fields, frSquawk),
		Model:        stringField(fields, frModel),
		Registration: stringField(fields, frRegistration),
		Timestamp:    int64(floatField(fields, frTimestamp)),
		Origin:       stringField(fields, frOrigin),
		Destination:  stringField(fields, frDestination),
		Callsign:     stringField(fields, frCallsign),
		// Confirmed against the live feed: 1 means on the ground.
		OnGround: floatField(fields, frOnGround) == 1,
		Provider: "FlightRadar24",
	}
	if len(fields) > frAirline {
		snap.Airline = stringField(fields, frAirline)
	}

	return snap, true
}

func floatField(fields []interface{}, i int) float64 {
	if i >= len(fields) {
		return 0
	}
	f, _ := fields[i].(float64)
	return f
}

func stringField(fields []interface{}, i int) string {
	if i >= len(fields) {
		return ""
	}
	s, _ := fields[i].(string)
	return s
}
