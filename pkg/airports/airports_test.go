package airports

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const sampleCSV = `id,ident,type,name,latitude_deg,longitude_deg,iata_code
3632,KJFK,large_airport,John F Kennedy International Airport,40.639801,-73.7789,JFK
3830,KLAX,large_airport,Los Angeles International Airport,33.942501,-118.407997,LAX
26396,EGLL,large_airport,London Heathrow Airport,51.4706,-0.461941,LHR
99999,XBAD,small_airport,Bad Row,not-a-number,0,
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airports.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0644); err != nil {
		t.Fatalf("Failed to write sample database: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	db, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("Expected load to succeed, got: %v", err)
	}

	t.Run("Position by ICAO", func(t *testing.T) {
		pos, ok := db.Position("KJFK")
		if !ok {
			t.Fatal("Expected KJFK to be present")
		}
		if math.Abs(pos.Lat-40.639801) > 1e-6 {
			t.Errorf("Expected KJFK latitude 40.639801, got %f", pos.Lat)
		}
	})

	t.Run("IATA resolves to ICAO", func(t *testing.T) {
		icao, ok := db.ICAOFromIATA("LAX")
		if !ok || icao != "KLAX" {
			t.Errorf("Expected LAX -> KLAX, got %q (ok=%v)", icao, ok)
		}
	})

	t.Run("Unknown code passes through", func(t *testing.T) {
		if got := db.ResolveICAO("KTEB"); got != "KTEB" {
			t.Errorf("Expected unmapped code returned unchanged, got %q", got)
		}
		if got := db.ResolveICAO(""); got != "" {
			t.Errorf("Expected empty code to stay empty, got %q", got)
		}
	})

	t.Run("Rows with bad coordinates are skipped", func(t *testing.T) {
		if _, ok := db.Position("XBAD"); ok {
			t.Error("Expected unparseable row to be dropped")
		}
	})

	t.Run("Bounds around an airport", func(t *testing.T) {
		b, ok := db.BoundsFromRadius("EGLL", 30)
		if !ok {
			t.Fatal("Expected EGLL bounds")
		}
		if b.Lat1 <= 51.4706 || b.Lat2 >= 51.4706 {
			t.Errorf("Expected bounds to straddle the airport latitude, got %+v", b)
		}

		if _, ok := db.BoundsFromRadius("ZZZZ", 30); ok {
			t.Error("Expected unknown airport to return ok=false")
		}
	})
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("Expected an error for a missing database file")
	}
}

func TestLoadMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airports.csv")
	if err := os.WriteFile(path, []byte("ident,latitude_deg\nKJFK,40.6\n"), 0644); err != nil {
		t.Fatalf("Failed to write sample: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected an error when a required column is absent")
	}
}
