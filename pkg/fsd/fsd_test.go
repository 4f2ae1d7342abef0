package fsd

import (
	"strings"
	"testing"
	"time"

	"github.com/unklstewy/fsdbridge/pkg/flightaware"
	"github.com/unklstewy/fsdbridge/pkg/provider"
)

func TestPackPBH(t *testing.T) {
	tests := []struct {
		heading int
		want    int32
	}{
		{0, 0},
		{90, 256 << 2},
		{180, 512 << 2},
		// 360 wraps to 0; anything else would overflow the 10-bit
		// heading field into the bank bits.
		{360, 0},
		{450, 256 << 2},
		{-90, 768 << 2},
	}

	for _, tt := range tests {
		if got := PackPBH(tt.heading); got != tt.want {
			t.Errorf("PackPBH(%d): expected %d, got %d", tt.heading, tt.want, got)
		}
	}
}

func TestPositionLine(t *testing.T) {
	line := PositionLine("UAL123", "1234", 40.0, -74.0, 10000, 360, 90)

	want := "@N:UAL123:1234:1:40.0:-74.0:10000:360:1024:0\r\n"
	if line != want {
		t.Errorf("Expected %q, got %q", want, line)
	}
}

func TestCoordFormatting(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{40.0, "40.0"},
		{-74.0, "-74.0"},
		{-74.009167, "-74.009167"},
		{51.4706, "51.4706"},
	}

	for _, tt := range tests {
		if got := coord(tt.in); got != tt.want {
			t.Errorf("coord(%f): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestInitialFlightPlanLine(t *testing.T) {
	t.Run("Airline files IFR", func(t *testing.T) {
		snap := &provider.Snapshot{Hex: "A1B2C3", Callsign: "UAL123", Model: "B738"}
		line := InitialFlightPlanLine(snap, "KJFK", "KLAX")

		want := "$FPUAL123::I:B738:0:KJFK:0:0:0:KLAX:0:0:0:0::/v/ Hex A1B2C3:\r\n"
		if line != want {
			t.Errorf("Expected %q, got %q", want, line)
		}
	})

	t.Run("GA files VFR", func(t *testing.T) {
		snap := &provider.Snapshot{Hex: "ABCDEF", Callsign: "N123AB", Model: "C172"}
		line := InitialFlightPlanLine(snap, "", "")

		if !strings.Contains(line, "::V:C172:") {
			t.Errorf("Expected VFR flight rules, got %q", line)
		}
	})
}

func TestFlightPlanLine(t *testing.T) {
	dep := time.Unix(1700000000, 0).UTC() // 2213Z
	arr := time.Unix(1700021600, 0).UTC() // 0413Z next day

	fp := &flightaware.FlightPlan{
		Origin:             flightaware.Airport{ICAO: "KJFK", Gate: "B22"},
		Destination:        flightaware.Airport{ICAO: "KLAX", Gate: "42A"},
		AircraftType:       "B738",
		Speed:              450,
		Altitude:           35000,
		Route:              "GREKI J95 CANDR",
		ScheduledDeparture: &dep,
		ScheduledArrival:   &arr,
	}
	snap := &provider.Snapshot{Hex: "A1B2C3", Callsign: "UAL123"}

	line := FlightPlanLine(fp, snap)

	want := "$FPUAL123::I:B738:450:KJFK:0:0:35000:KLAX:0:0:0:0::" +
		"/v/ Hex A1B2C3, STD 2213Z, STA 0413Z, Departure Gate B22, Arrival Gate 42A:GREKI J95 CANDR\r\n"
	if line != want {
		t.Errorf("Expected %q, got %q", want, line)
	}

	t.Run("Optional remarks are omitted when absent", func(t *testing.T) {
		bare := &flightaware.FlightPlan{
			Origin:       flightaware.Airport{ICAO: "KJFK"},
			Destination:  flightaware.Airport{ICAO: "KLAX"},
			AircraftType: "B738",
		}
		line := FlightPlanLine(bare, snap)
		if strings.Contains(line, "STD") || strings.Contains(line, "Gate") {
			t.Errorf("Expected no optional remarks, got %q", line)
		}
		if !strings.Contains(line, "/v/ Hex A1B2C3:") {
			t.Errorf("Expected hex remark, got %q", line)
		}
	})
}

func TestServerLines(t *testing.T) {
	if got := BeaconCodeLine("JFK_TWR", "AAL55", "2000"); got != "#PCSERVER:JFK_TWR:CCP:BC:AAL55:2000\r\n" {
		t.Errorf("Unexpected beacon line %q", got)
	}
	if got := MetarLine("JFK_TWR", "KJFK 241651Z ..."); got != "$ARSERVER:JFK_TWR:METAR:KJFK 241651Z ...\r\n" {
		t.Errorf("Unexpected METAR line %q", got)
	}
	if got := ValidateATCWithCallsign("JFK_TWR"); got != "$CRSERVER:JFK_TWR:ATC:Y:JFK_TWR\r\n" {
		t.Errorf("Unexpected validation line %q", got)
	}
	if got := ValidateATCWithoutCallsign("JFK_TWR"); got != "$CRSERVER:JFK_TWR:ATC:Y\r\n" {
		t.Errorf("Unexpected validation line %q", got)
	}

	snap := &provider.Snapshot{Callsign: "UAL123", Model: "B738"}
	if got := PlaneInfoLine("UAL123", "JFK_TWR", snap); got != "#SBUAL123:JFK_TWR:PI:GEN:EQUIPMENT=B738:UAL\r\n" {
		t.Errorf("Unexpected plane info line %q", got)
	}

	ga := &provider.Snapshot{Callsign: "N123AB", Model: "C172"}
	if got := PlaneInfoLine("N123AB", "JFK_TWR", ga); got != "#SBN123AB:JFK_TWR:PI:GEN:EQUIPMENT=C172\r\n" {
		t.Errorf("Expected no airline suffix, got %q", got)
	}
}

func TestParse(t *testing.T) {
	t.Run("ATC validation with target", func(t *testing.T) {
		p := Parse("$CQJFK_TWR:SERVER:ATC:JFK_TWR\r\n")
		q, ok := p.(ATCValidationQuery)
		if !ok {
			t.Fatalf("Expected ATCValidationQuery, got %T", p)
		}
		if q.From != "JFK_TWR" || q.Target != "JFK_TWR" {
			t.Errorf("Unexpected fields: %+v", q)
		}
	})

	t.Run("ATC validation without target", func(t *testing.T) {
		p := Parse("$CQJFK_TWR:SERVER:ATC")
		q, ok := p.(ATCValidationQuery)
		if !ok {
			t.Fatalf("Expected ATCValidationQuery, got %T", p)
		}
		if q.Target != "" {
			t.Errorf("Expected empty target, got %q", q.Target)
		}
	})

	t.Run("Flight plan query", func(t *testing.T) {
		p := Parse("$CQJFK_TWR:SERVER:FP:UAL123")
		q, ok := p.(FlightPlanQuery)
		if !ok {
			t.Fatalf("Expected FlightPlanQuery, got %T", p)
		}
		if q.Callsign != "UAL123" {
			t.Errorf("Expected callsign UAL123, got %q", q.Callsign)
		}
	})

	t.Run("METAR request", func(t *testing.T) {
		p := Parse("$AXJFK_TWR:SERVER:METAR:KJFK")
		q, ok := p.(MetarRequest)
		if !ok {
			t.Fatalf("Expected MetarRequest, got %T", p)
		}
		if q.Station != "KJFK" || q.IsResponse {
			t.Errorf("Unexpected fields: %+v", q)
		}
	})

	t.Run("METAR response form is flagged", func(t *testing.T) {
		p := Parse("$ARSERVER:JFK_TWR:METAR:KJFK 241651Z 18012KT")
		q, ok := p.(MetarRequest)
		if !ok {
			t.Fatalf("Expected MetarRequest, got %T", p)
		}
		if !q.IsResponse {
			t.Error("Expected response flag set")
		}
	})

	t.Run("Plane info request", func(t *testing.T) {
		p := Parse("#SBJFK_TWR:UAL123:PIR")
		q, ok := p.(PlaneInfoRequest)
		if !ok {
			t.Fatalf("Expected PlaneInfoRequest, got %T", p)
		}
		if q.From != "JFK_TWR" || q.To != "UAL123" {
			t.Errorf("Unexpected fields: %+v", q)
		}
	})

	t.Run("Unknown and malformed lines are ignored", func(t *testing.T) {
		for _, line := range []string{"", "garbage", "@N:UAL123:...", "$CQX", "#SBJFK_TWR:UAL123:PI:GEN", "$CQA:B:ZZ"} {
			if p := Parse(line); p != nil {
				t.Errorf("Expected nil for %q, got %T", line, p)
			}
		}
	})
}
