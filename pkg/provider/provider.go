// Package provider defines the contract between the tracker and the live
// aircraft position feeds, plus the concrete adapters the bridge ships with.
//
// A provider is an interchangeable black box: the tracker queries every
// configured provider each poll cycle and fuses the results, so adapters
// must not depend on being the only source of a given aircraft.
package provider

import "regexp"

// airlinePattern matches airline-style callsigns: a three-letter carrier
// code followed by a flight number (e.g. UAL123, DLH4ZK does not match).
var airlinePattern = regexp.MustCompile(`^[A-Za-z]{3}\d+`)

// Snapshot is one provider observation of one aircraft. Field meanings are
// shared across providers; Provider records which feed produced it.
type Snapshot struct {
	// Hex is the Mode-S 24-bit address as hex text, the stable identity of
	// the airframe across providers and polls.
	Hex string

	// Callsign may be empty, or garbage for feeds that substitute the type
	// code when no callsign was received. The tracker filters those out.
	Callsign string

	Latitude  float64
	Longitude float64

	// Heading is the ground track in degrees (0-360).
	Heading int

	// GroundSpeed in knots.
	GroundSpeed int

	// Altitude in feet MSL. Signed; some feeds report below-sea-level
	// fields at coastal aerodromes.
	Altitude int

	// Squawk is the 4-digit transponder beacon code as text.
	Squawk string

	OnGround bool

	// Model is the ICAO aircraft type designator (e.g. B738).
	Model string

	// Origin and Destination are airport codes when the feed knows them,
	// already resolved to ICAO where possible. May be empty.
	Origin      string
	Destination string

	// Registration is the airframe tail number when known.
	Registration string

	// Airline is the operator code when the feed carries one.
	Airline string

	// Timestamp is the provider-supplied observation time, unix seconds.
	// The tracker drops updates whose timestamp does not advance.
	Timestamp int64

	// Provider is the name tag of the feed that produced this snapshot.
	Provider string
}

// IsAirline reports whether the callsign looks like an airline flight
// number rather than a registration or GA callsign.
func (s *Snapshot) IsAirline() bool {
	return airlinePattern.MatchString(s.Callsign)
}

// AirlineCode returns the operator identifier for plane-info responses:
// the feed-supplied airline when present, otherwise the three-letter
// prefix of an airline-patterned callsign.
func (s *Snapshot) AirlineCode() string {
	if s.Airline != "" {
		return s.Airline
	}
	if s.IsAirline() {
		return s.Callsign[:3]
	}
	return ""
}

// Provider is a live aircraft position feed.
//
// Fetch blocks for the duration of the network round trip and returns every
// aircraft currently visible to the feed inside the radar bounds, keyed by
// Mode-S hex. Implementations own their session state (cookies, rate
// budget) and must not share mutable state across calls otherwise.
type Provider interface {
	Fetch() (map[string]Snapshot, error)
	Name() string
}
