// Package airports loads the airport database used to center the radar and
// to resolve the IATA codes some position feeds use into ICAO identifiers.
//
// The expected file is the ourairports.com airports.csv dump; only the
// ident, iata_code, latitude_deg and longitude_deg columns are read.
package airports

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/unklstewy/fsdbridge/pkg/geo"
)

// Airport is one row of the database.
type Airport struct {
	ICAO string
	IATA string
	Pos  geo.LatLon
}

// DB is an in-memory airport lookup keyed by ICAO identifier, with a
// secondary IATA to ICAO index.
type DB struct {
	byICAO     map[string]Airport
	iataToICAO map[string]string
}

// Load reads the airport CSV at path. Columns are located by header name so
// the file may carry extra columns in any order.
func Load(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open airport database: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read airport database header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"ident", "iata_code", "latitude_deg", "longitude_deg"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("airport database is missing the %q column", required)
		}
	}

	db := &DB{
		byICAO:     make(map[string]Airport),
		iataToICAO: make(map[string]string),
	}

	for {
		record, err := reader.Read()
		if err != nil {
			break
		}

		lat, err := strconv.ParseFloat(record[cols["latitude_deg"]], 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(record[cols["longitude_deg"]], 64)
		if err != nil {
			continue
		}

		airport := Airport{
			ICAO: record[cols["ident"]],
			IATA: record[cols["iata_code"]],
			Pos:  geo.LatLon{Lat: lat, Lon: lon},
		}

		db.byICAO[airport.ICAO] = airport
		if airport.IATA != "" {
			db.iataToICAO[airport.IATA] = airport.ICAO
		}
	}

	return db, nil
}

// Position returns the location of an airport by ICAO identifier.
func (db *DB) Position(icao string) (geo.LatLon, bool) {
	airport, ok := db.byICAO[icao]
	return airport.Pos, ok
}

// BoundsFromRadius builds the radar rectangle around an airport. The second
// return value is false when the airport is unknown.
func (db *DB) BoundsFromRadius(icao string, radiusMiles float64) (geo.Bounds, bool) {
	center, ok := db.Position(icao)
	if !ok {
		return geo.Bounds{}, false
	}
	return geo.BoundsFromRadius(center, radiusMiles), true
}

// ICAOFromIATA resolves an IATA code. Codes without a mapping (or that are
// already ICAO) come back unchanged with ok=false.
func (db *DB) ICAOFromIATA(iata string) (string, bool) {
	icao, ok := db.iataToICAO[iata]
	if !ok {
		return iata, false
	}
	return icao, true
}

// ResolveICAO returns the ICAO identifier for a code that may be IATA or
// ICAO, falling back to the input when no mapping exists.
func (db *DB) ResolveICAO(code string) string {
	if code == "" {
		return ""
	}
	icao, _ := db.ICAOFromIATA(code)
	return icao
}
