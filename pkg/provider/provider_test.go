package provider

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/unklstewy/fsdbridge/pkg/airports"
	"github.com/unklstewy/fsdbridge/pkg/geo"
)

func TestSnapshotAirlineHelpers(t *testing.T) {
	tests := []struct {
		callsign string
		airline  bool
	}{
		{"UAL123", true},
		{"dlh441", true},
		{"N123AB", false},
		{"G-ABCD", false},
		{"DAL9", true},
		{"", false},
		{"B738", false},
	}

	for _, tt := range tests {
		s := Snapshot{Callsign: tt.callsign}
		if got := s.IsAirline(); got != tt.airline {
			t.Errorf("IsAirline(%q): expected %v, got %v", tt.callsign, tt.airline, got)
		}
	}

	t.Run("AirlineCode prefers feed value", func(t *testing.T) {
		s := Snapshot{Callsign: "UAL123", Airline: "UAL"}
		if got := s.AirlineCode(); got != "UAL" {
			t.Errorf("Expected UAL, got %q", got)
		}
	})

	t.Run("AirlineCode falls back to callsign prefix", func(t *testing.T) {
		s := Snapshot{Callsign: "AAL55"}
		if got := s.AirlineCode(); got != "AAL" {
			t.Errorf("Expected AAL, got %q", got)
		}

		ga := Snapshot{Callsign: "N123AB"}
		if got := ga.AirlineCode(); got != "" {
			t.Errorf("Expected empty airline for GA callsign, got %q", got)
		}
	})
}

func testAirportDB(t *testing.T) *airports.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airports.csv")
	csv := "ident,iata_code,latitude_deg,longitude_deg\nKJFK,JFK,40.6398,-73.7789\nKLAX,LAX,33.9425,-118.408\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatalf("Failed to write airport fixture: %v", err)
	}
	db, err := airports.Load(path)
	if err != nil {
		t.Fatalf("Failed to load airport fixture: %v", err)
	}
	return db
}

func TestFlightRadar24Fetch(t *testing.T) {
	const feed = `{
		"full_count": 12345,
		"version": 4,
		"2f1a2b": ["A1B2C3", 40.0, -74.0, 90, 10000, 360, "1234", "T-KJFK1",
			"B738", "N12345", 1700000000, "JFK", "LAX", "UA123", 0, 0, "UAL123", 0, "UAL"]
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer server.Close()

	p := NewFlightRadar24(server.URL, geo.Bounds{Lat1: 41, Lon1: -75, Lat2: 39, Lon2: -73}, testAirportDB(t))

	snapshots, err := p.Fetch()
	if err != nil {
		t.Fatalf("Expected fetch to succeed, got: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", len(snapshots))
	}

	snap, ok := snapshots["A1B2C3"]
	if !ok {
		t.Fatal("Expected snapshot keyed by hex A1B2C3")
	}
	if snap.Callsign != "UAL123" {
		t.Errorf("Expected callsign UAL123, got %q", snap.Callsign)
	}
	if snap.Origin != "KJFK" || snap.Destination != "KLAX" {
		t.Errorf("Expected IATA codes resolved to KJFK/KLAX, got %q/%q", snap.Origin, snap.Destination)
	}
	if snap.OnGround {
		t.Error("Expected airborne aircraft (on-ground field 0)")
	}
	if snap.Timestamp != 1700000000 {
		t.Errorf("Expected provider timestamp 1700000000, got %d", snap.Timestamp)
	}
	if snap.Provider != "FlightRadar24" {
		t.Errorf("Expected provenance tag, got %q", snap.Provider)
	}
}

func TestFlightRadar24BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	p := NewFlightRadar24(server.URL, geo.Bounds{}, testAirportDB(t))
	if _, err := p.Fetch(); err == nil {
		t.Error("Expected an error on HTTP 403")
	}
}

func TestAirplanesLiveFetch(t *testing.T) {
	const feed = `{
		"ac": [
			{"hex": "a1b2c3", "flight": "UAL123 ", "r": "N12345", "t": "B738",
			 "lat": 40.0, "lon": -74.0, "alt_baro": 10000, "gs": 360.5, "track": 90.0,
			 "squawk": "1234", "seen": 2},
			{"hex": "ddeeff", "flight": "GND1", "r": "", "t": "A320",
			 "lat": 40.1, "lon": -74.1, "alt_baro": "ground", "gs": 5, "track": 180,
			 "squawk": "2000", "seen": 0},
			{"hex": "nopos", "flight": "X", "t": "C172"}
		],
		"total": 3,
		"now": 1700000010000
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer server.Close()

	p := NewAirplanesLive(server.URL, geo.LatLon{Lat: 40, Lon: -74}, 50)

	snapshots, err := p.Fetch()
	if err != nil {
		t.Fatalf("Expected fetch to succeed, got: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots (row without position dropped), got %d", len(snapshots))
	}

	snap := snapshots["A1B2C3"]
	if snap.Callsign != "UAL123" {
		t.Errorf("Expected trimmed callsign UAL123, got %q", snap.Callsign)
	}
	if snap.Altitude != 10000 || snap.OnGround {
		t.Errorf("Expected airborne at 10000 ft, got alt=%d onGround=%v", snap.Altitude, snap.OnGround)
	}
	if snap.Timestamp != 1700000008 {
		t.Errorf("Expected timestamp now-seen = 1700000008, got %d", snap.Timestamp)
	}

	ground := snapshots["DDEEFF"]
	if !ground.OnGround {
		t.Error("Expected alt_baro \"ground\" to mark the aircraft on ground")
	}
}

func TestAirplanesLiveRadiusCap(t *testing.T) {
	p := NewAirplanesLive("http://example.invalid", geo.LatLon{}, 400)
	if p.radiusNM != 250 {
		t.Errorf("Expected radius capped at 250 nm, got %f", p.radiusNM)
	}
}
