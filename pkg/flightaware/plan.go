package flightaware

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound means the flight page carried no filed plan: either the
// bootstrap blob is absent or its flight has no origin.
var ErrNotFound = errors.New("flight plan not found")

// Airport is one endpoint of a filed plan. Gate is often empty.
type Airport struct {
	ICAO string
	Gate string
}

// FlightPlan is the filed plan extracted from a flight page. Scheduled
// times are nil when the page does not carry them.
type FlightPlan struct {
	Origin             Airport
	Destination        Airport
	AircraftType       string
	Speed              int
	Altitude           int
	Route              string
	ScheduledDeparture *time.Time
	ScheduledArrival   *time.Time
}

// The bootstrap blob keys flights by an internal identifier; each value
// carries the filed plan alongside a lot of live-tracking state the
// bridge ignores.
type bootstrapAirport struct {
	ICAO string `json:"icao"`
	Gate string `json:"gate"`
}

type bootstrapFlight struct {
	Origin      bootstrapAirport `json:"origin"`
	Destination bootstrapAirport `json:"destination"`
	Aircraft    struct {
		Type string `json:"type"`
	} `json:"aircraft"`
	FlightPlan struct {
		Speed    int    `json:"speed"`
		Altitude int    `json:"altitude"`
		Route    string `json:"route"`
	} `json:"flightPlan"`
	GateDepartureTimes struct {
		Scheduled int64 `json:"scheduled"`
	} `json:"gateDepartureTimes"`
	GateArrivalTimes struct {
		Scheduled int64 `json:"scheduled"`
	} `json:"gateArrivalTimes"`
}

// parseFlightPlan decodes the trackpollBootstrap JSON into a FlightPlan.
// Returns ErrNotFound when no flight in the blob has a filed origin.
func parseFlightPlan(data []byte) (*FlightPlan, error) {
	var bootstrap struct {
		Flights map[string]bootstrapFlight `json:"flights"`
	}
	if err := json.Unmarshal(data, &bootstrap); err != nil {
		return nil, fmt.Errorf("failed to decode bootstrap blob: %w", err)
	}

	var flight *bootstrapFlight
	for _, f := range bootstrap.Flights {
		flight = &f
		break
	}
	if flight == nil || flight.Origin.ICAO == "" {
		return nil, ErrNotFound
	}

	// Altitudes under 1000 are flight levels, not feet.
	altitude := flight.FlightPlan.Altitude
	if altitude > 0 && altitude < 1000 {
		altitude *= 100
	}

	fp := &FlightPlan{
		Origin:       Airport{ICAO: flight.Origin.ICAO, Gate: flight.Origin.Gate},
		Destination:  Airport{ICAO: flight.Destination.ICAO, Gate: flight.Destination.Gate},
		AircraftType: flight.Aircraft.Type,
		Speed:        flight.FlightPlan.Speed,
		Altitude:     altitude,
		Route:        flight.FlightPlan.Route,
	}
	if ts := flight.GateDepartureTimes.Scheduled; ts > 0 {
		sched := time.Unix(ts, 0).UTC()
		fp.ScheduledDeparture = &sched
	}
	if ts := flight.GateArrivalTimes.Scheduled; ts > 0 {
		sched := time.Unix(ts, 0).UTC()
		fp.ScheduledArrival = &sched
	}
	return fp, nil
}
