// Package fsd implements the slice of the FSD line protocol the bridge
// speaks: the outbound packets an ATC client expects from a network server,
// and a parser for the handful of inbound queries the bridge answers.
//
// Every packet is a single colon-delimited line terminated by CRLF. The
// formats are load-bearing: radar clients parse them positionally, so
// field counts and separators must not change.
package fsd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/unklstewy/fsdbridge/pkg/flightaware"
	"github.com/unklstewy/fsdbridge/pkg/provider"
)

// Greeting is sent immediately after a client connects, before any query.
const Greeting = "$DISERVER:CLIENT:VATSIM FSD V3.14:\r\n"

// PackPBH packs a heading into the pitch/bank/heading word used by
// position packets. Pitch and bank are always zero for injected traffic;
// heading is normalized to [0, 360), scaled to 10 bits and shifted into
// bits [11:2]. Without the normalization a heading of exactly 360 would
// spill into the bank field.
func PackPBH(headingDeg int) int32 {
	deg := headingDeg % 360
	if deg < 0 {
		deg += 360
	}
	h := int32(float64(deg) / 360.0 * 1024.0)
	return 0<<22 | 0<<12 | h<<2
}

// coord renders a coordinate with up to six decimals, always keeping at
// least one so 40 prints as 40.0.
func coord(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// PositionLine builds the @N pilot position packet.
func PositionLine(callsign, squawk string, lat, lon float64, altitude, groundSpeed, headingDeg int) string {
	return fmt.Sprintf("@N:%s:%s:1:%s:%s:%d:%d:%d:0\r\n",
		callsign, squawk, coord(lat), coord(lon), altitude, groundSpeed, PackPBH(headingDeg))
}

// snapshotRemarks is the remarks stub present on every flight plan the
// bridge files; the hex ties the FSD callsign back to the airframe.
func snapshotRemarks(snap *provider.Snapshot) string {
	return fmt.Sprintf("Hex %s", snap.Hex)
}

// InitialFlightPlanLine builds the placeholder $FP filed for a track before
// (or instead of) a real plan: origin, destination and type come straight
// from the position feed. Airline-patterned callsigns file IFR, everything
// else VFR.
func InitialFlightPlanLine(snap *provider.Snapshot, origin, destination string) string {
	rules := "V"
	if snap.IsAirline() {
		rules = "I"
	}

	return fmt.Sprintf("$FP%s::%s:%s:0:%s:0:0:0:%s:0:0:0:0::/v/ %s:\r\n",
		snap.Callsign, rules, snap.Model, origin, destination, snapshotRemarks(snap))
}

// FlightPlanLine builds the populated $FP for a track whose real plan has
// arrived, including scheduled times and gates in the remarks.
func FlightPlanLine(fp *flightaware.FlightPlan, snap *provider.Snapshot) string {
	remarks := []string{snapshotRemarks(snap)}
	if fp.ScheduledDeparture != nil {
		remarks = append(remarks, "STD "+fp.ScheduledDeparture.UTC().Format("1504")+"Z")
	}
	if fp.ScheduledArrival != nil {
		remarks = append(remarks, "STA "+fp.ScheduledArrival.UTC().Format("1504")+"Z")
	}
	if fp.Origin.Gate != "" {
		remarks = append(remarks, "Departure Gate "+fp.Origin.Gate)
	}
	if fp.Destination.Gate != "" {
		remarks = append(remarks, "Arrival Gate "+fp.Destination.Gate)
	}

	return fmt.Sprintf("$FP%s::I:%s:%d:%s:0:0:%d:%s:0:0:0:0::/v/ %s:%s\r\n",
		snap.Callsign, fp.AircraftType, fp.Speed, fp.Origin.ICAO, fp.Altitude,
		fp.Destination.ICAO, strings.Join(remarks, ", "), fp.Route)
}

// BeaconCodeLine assigns a transponder code to a callsign on behalf of the
// current ATC station.
func BeaconCodeLine(atcCallsign, callsign, squawk string) string {
	return fmt.Sprintf("#PCSERVER:%s:CCP:BC:%s:%s\r\n", atcCallsign, callsign, squawk)
}

// MetarLine delivers a METAR to the current ATC station.
func MetarLine(atcCallsign, metar string) string {
	return fmt.Sprintf("$ARSERVER:%s:METAR:%s\r\n", atcCallsign, metar)
}

// ValidateATCWithCallsign is the ATC-validation reply used by clients that
// name the station being validated.
func ValidateATCWithCallsign(target string) string {
	return fmt.Sprintf("$CRSERVER:%s:ATC:Y:%s\r\n", target, target)
}

// ValidateATCWithoutCallsign is the short-form ATC-validation reply.
func ValidateATCWithoutCallsign(from string) string {
	return fmt.Sprintf("$CRSERVER:%s:ATC:Y\r\n", from)
}

// PlaneInfoLine answers a tower-view plane-info request with the aircraft
// type and, when known, the operator.
func PlaneInfoLine(from, to string, snap *provider.Snapshot) string {
	airline := ""
	if code := snap.AirlineCode(); code != "" {
		airline = ":" + code
	}
	return fmt.Sprintf("#SB%s:%s:PI:GEN:EQUIPMENT=%s%s\r\n", from, to, snap.Model, airline)
}
