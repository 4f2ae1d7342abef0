package fsd

import "strings"

// Packet is one parsed inbound line. Concrete types below; callers switch
// on the type. Unknown or malformed lines parse to nil and are ignored.
type Packet interface{ packet() }

// ATCValidationQuery is a $CQ ... ATC query: the client asks whether a
// callsign is a valid controller. Target is empty in the short form.
type ATCValidationQuery struct {
	From   string
	Target string
}

// FlightPlanQuery is a $CQ ... FP query: the client asks for the filed
// flight plan of another callsign.
type FlightPlanQuery struct {
	From     string
	Callsign string
}

// MetarRequest is a $AX weather request for a station. $AR responses parse
// to the same type with IsResponse set so they are not re-dispatched.
type MetarRequest struct {
	From       string
	Station    string
	IsResponse bool
}

// PlaneInfoRequest is a #SB ... PIR tower-view request for aircraft
// equipment details.
type PlaneInfoRequest struct {
	From string
	To   string
}

func (ATCValidationQuery) packet() {}
func (FlightPlanQuery) packet()    {}
func (MetarRequest) packet()       {}
func (PlaneInfoRequest) packet()   {}

// Parse decodes one inbound line (without its CRLF). Returns nil for
// anything the bridge does not handle.
func Parse(line string) Packet {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(line, "$CQ"):
		return parseClientQuery(line[3:])
	case strings.HasPrefix(line, "$AX"):
		return parseMetar(line[3:], false)
	case strings.HasPrefix(line, "$AR"):
		return parseMetar(line[3:], true)
	case strings.HasPrefix(line, "#SB"):
		return parsePlaneInfo(line[3:])
	default:
		return nil
	}
}

// parseClientQuery handles $CQ<from>:<to>:<type>[:payload...].
func parseClientQuery(rest string) Packet {
	fields := strings.Split(rest, ":")
	if len(fields) < 3 {
		return nil
	}

	from, queryType := fields[0], fields[2]

	switch queryType {
	case "ATC":
		q := ATCValidationQuery{From: from}
		if len(fields) > 3 {
			q.Target = fields[3]
		}
		return q
	case "FP":
		if len(fields) < 4 || fields[3] == "" {
			return nil
		}
		return FlightPlanQuery{From: from, Callsign: fields[3]}
	default:
		return nil
	}
}

// parseMetar handles $AX/$AR <from>:<to>:METAR:<payload>.
func parseMetar(rest string, isResponse bool) Packet {
	fields := strings.SplitN(rest, ":", 4)
	if len(fields) < 4 || fields[2] != "METAR" {
		return nil
	}
	return MetarRequest{From: fields[0], Station: fields[3], IsResponse: isResponse}
}

// parsePlaneInfo handles #SB<from>:<to>:PIR.
func parsePlaneInfo(rest string) Packet {
	fields := strings.Split(rest, ":")
	if len(fields) < 3 || fields[2] != "PIR" {
		return nil
	}
	return PlaneInfoRequest{From: fields[0], To: fields[1]}
}
