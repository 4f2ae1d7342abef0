// Package session runs the FSD side of the bridge: a TCP listener on the
// loopback interface that greets ATC clients, drives the tracker, and
// streams position, flight-plan and weather lines to everyone connected.
//
// The whole session is single-threaded and cooperative. One loop iteration
// accepts new clients, ticks the tracker, emits on the position cadence,
// drains enricher results and reads inbound queries, then sleeps 10 ms.
package session

import (
	"bytes"
	"log"
	"net"
	"strings"
	"time"

	"github.com/unklstewy/fsdbridge/internal/api"
	"github.com/unklstewy/fsdbridge/pkg/fsd"
	"github.com/unklstewy/fsdbridge/pkg/tracker"
	"github.com/unklstewy/fsdbridge/pkg/wx"
)

const (
	// DefaultAddr is the loopback endpoint ATC clients are pointed at.
	DefaultAddr = "127.0.0.1:6809"

	// tickSleep paces the main loop at roughly 100 Hz.
	tickSleep = 10 * time.Millisecond

	// positionRate is how often position and flight-plan lines go out.
	positionRate = 5 * time.Second

	// staleHorizon stops dead reckoning when the last accepted fix is too
	// old to extrapolate credibly.
	staleHorizon = 20 * time.Second

	// readWindow bounds each per-client read so the loop never blocks on a
	// quiet socket.
	readWindow = time.Millisecond
)

// WeatherSource is the slice of the weather enricher the session uses.
type WeatherSource interface {
	Request(station string)
	Poll() (wx.Result, bool)
}

// StatusSink receives periodic snapshots of the live airspace for the
// HTTP status surface.
type StatusSink interface {
	Publish(st api.Status)
}

// client is one connected ATC socket plus its line-reassembly buffer.
type client struct {
	conn     net.Conn
	callsign string
	pending  []byte
	dead     bool
}

// emitState tracks what has already been written for one aircraft so
// flight plans are filed once and placeholders only re-file on change.
type emitState struct {
	initSent        bool
	fpSent          bool
	lastOrigin      string
	lastDestination string
}

// Server owns the listener and all per-session state. Sessions are serial:
// Serve runs one session from first connect to last disconnect, and the
// caller loops around it.
type Server struct {
	listener *net.TCPListener
	tracker  *tracker.Tracker
	weather  WeatherSource
	delay    time.Duration

	clients     []*client
	atcCallsign string
	emitted     map[string]*emitState

	status  StatusSink
	airport string

	bufferStart   time.Time
	lastPositions time.Time
	lastStatus    time.Time
	lastCountdown int
}

// Listen binds the FSD endpoint. A bind failure is fatal to the bridge and
// is returned for the caller to report.
func Listen(addr string, tr *tracker.Tracker, weather WeatherSource, delaySeconds int) (*Server, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener: ln,
		tracker:  tr,
		weather:  weather,
		delay:    time.Duration(delaySeconds) * time.Second,
	}, nil
}

// SetStatus attaches an optional status sink; snapshots are published once
// a second while a session is live.
func (s *Server) SetStatus(sink StatusSink, airport string) {
	s.status = sink
	s.airport = airport
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Serve runs one session: it blocks until a client connects, replays the
// configured delay, then streams until every client has disconnected.
func (s *Server) Serve() error {
	if err := s.listener.SetDeadline(time.Time{}); err != nil {
		return err
	}

	log.Printf("Waiting for an ATC client on %s", s.listener.Addr())
	conn, err := s.listener.Accept()
	if err != nil {
		return err
	}
	s.attach(conn)

	s.emitted = make(map[string]*emitState)
	s.atcCallsign = ""
	s.bufferStart = time.Now()
	s.lastPositions = time.Time{}
	s.lastCountdown = -1
	s.tracker.StartBuffering()
	log.Printf("Client connected; buffering %s of traffic", s.delay)

	for {
		s.acceptPending()
		s.readClients()

		if len(s.clients) == 0 {
			log.Print("All clients disconnected; session over")
			return nil
		}

		s.tracker.Tick()
		s.updateBuffering()

		if !s.tracker.IsBuffering() && time.Since(s.lastPositions) >= positionRate {
			s.lastPositions = time.Now()
			s.emitTracks()
		}

		s.drainWeather()
		s.pruneDead()

		if s.status != nil && time.Since(s.lastStatus) >= time.Second {
			s.lastStatus = time.Now()
			s.publishStatus()
		}

		time.Sleep(tickSleep)
	}
}

// attach greets a new connection and adds it to the session.
func (s *Server) attach(conn net.Conn) {
	log.Printf("Accepted client from %s", conn.RemoteAddr())
	c := &client{conn: conn}
	if !s.send(c, fsd.Greeting) {
		return
	}
	s.clients = append(s.clients, c)
}

// acceptPending picks up any connections waiting on the listener without
// blocking the loop.
func (s *Server) acceptPending() {
	for {
		if err := s.listener.SetDeadline(time.Now()); err != nil {
			return
		}
		conn, err := s.listener.Accept()
		if err != nil {
			return // nothing waiting
		}
		s.attach(conn)
	}
}

// updateBuffering logs the countdown once a second and releases the buffer
// when the configured delay has elapsed.
func (s *Server) updateBuffering() {
	if !s.tracker.IsBuffering() {
		return
	}

	elapsed := time.Since(s.bufferStart)
	if elapsed >= s.delay {
		log.Print("Buffer complete; starting playback")
		s.tracker.StopBuffering()
		return
	}

	remaining := int((s.delay - elapsed).Seconds())
	if remaining != s.lastCountdown {
		s.lastCountdown = remaining
		log.Printf("Buffering... %ds remaining", remaining+1)
	}
}

// emitTracks writes the per-aircraft block (position, placeholder or real
// flight plan, beacon code) for every live track. Each aircraft's lines go
// out as one write so they are never interleaved.
func (s *Server) emitTracks() {
	tracks := s.tracker.Tracks()

	for hex := range s.emitted {
		if !s.tracker.Exists(hex) {
			delete(s.emitted, hex)
		}
	}

	for hex, track := range tracks {
		st, ok := s.emitted[hex]
		if !ok {
			st = &emitState{}
			s.emitted[hex] = st
		}

		var block strings.Builder
		snap := &track.Snapshot

		// Extrapolate only moving aircraft with a reasonably fresh fix;
		// anything else holds its last computed position.
		pos := track.Position.GetNoUpdate()
		if !snap.OnGround && time.Since(track.LastPositionWall) < staleHorizon {
			pos = track.Position.Get()
		}
		block.WriteString(fsd.PositionLine(
			snap.Callsign, snap.Squawk, pos.Lat, pos.Lon,
			snap.Altitude, snap.GroundSpeed, snap.Heading))

		if !st.fpSent {
			if !st.initSent || snap.Origin != st.lastOrigin || snap.Destination != st.lastDestination {
				block.WriteString(fsd.InitialFlightPlanLine(snap, snap.Origin, snap.Destination))
				st.initSent = true
				st.lastOrigin = snap.Origin
				st.lastDestination = snap.Destination
			}

			if track.FlightPlan != nil {
				block.WriteString(fsd.FlightPlanLine(track.FlightPlan, snap))
				if snap.Squawk != "" && snap.Squawk != "0000" {
					block.WriteString(fsd.BeaconCodeLine(s.atcCallsign, snap.Callsign, snap.Squawk))
				}
				st.fpSent = true
			}
		}

		s.broadcast(block.String())
	}
}

// drainWeather forwards one answered METAR request per tick.
func (s *Server) drainWeather() {
	if s.weather == nil {
		return
	}
	result, ok := s.weather.Poll()
	if !ok {
		return
	}
	if result.Err != nil {
		log.Printf("No METAR for %s: %v", result.Station, result.Err)
		return
	}
	s.broadcast(fsd.MetarLine(s.atcCallsign, result.METAR))
}

// readClients drains each socket without blocking and dispatches every
// complete line received.
func (s *Server) readClients() {
	buf := make([]byte, 4096)

	for _, c := range s.clients {
		if c.dead {
			continue
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(readWindow)); err != nil {
			c.dead = true
			continue
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.pending = append(c.pending, buf[:n]...)
		}
		if err != nil {
			if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
				log.Printf("Client %s read failed: %v", c.conn.RemoteAddr(), err)
				c.dead = true
				continue
			}
		}

		for {
			i := bytes.IndexByte(c.pending, '\n')
			if i < 0 {
				break
			}
			line := string(c.pending[:i])
			c.pending = c.pending[i+1:]
			s.dispatch(c, line)
		}
	}
}

// dispatch handles one inbound line from one client.
func (s *Server) dispatch(c *client, line string) {
	switch q := fsd.Parse(line).(type) {
	case fsd.ATCValidationQuery:
		c.callsign = q.From
		// Station callsigns carry a facility suffix; that client becomes
		// the session's controller for beacon and METAR lines.
		if strings.Contains(q.From, "_") {
			s.atcCallsign = q.From
		}
		if q.Target != "" {
			s.send(c, fsd.ValidateATCWithCallsign(q.Target))
		} else {
			s.send(c, fsd.ValidateATCWithoutCallsign(q.From))
		}

	case fsd.FlightPlanQuery:
		track, ok := s.tracker.TrackByCallsign(q.Callsign)
		if !ok || track.FlightPlan == nil {
			return
		}
		s.send(c, fsd.FlightPlanLine(track.FlightPlan, &track.Snapshot))

	case fsd.PlaneInfoRequest:
		track, ok := s.tracker.TrackByCallsign(q.To)
		if !ok {
			return
		}
		s.send(c, fsd.PlaneInfoLine(q.To, q.From, &track.Snapshot))

	case fsd.MetarRequest:
		if q.IsResponse || s.weather == nil {
			return
		}
		s.weather.Request(q.Station)
	}
}

// publishStatus pushes the current airspace view to the status sink.
func (s *Server) publishStatus() {
	tracks := s.tracker.Tracks()
	aircraft := make([]api.AircraftStatus, 0, len(tracks))

	for hex, track := range tracks {
		snap := track.Snapshot
		pos := track.Position.GetNoUpdate()
		aircraft = append(aircraft, api.AircraftStatus{
			Hex:           hex,
			Callsign:      snap.Callsign,
			Latitude:      pos.Lat,
			Longitude:     pos.Lon,
			Altitude:      snap.Altitude,
			GroundSpeed:   snap.GroundSpeed,
			Heading:       snap.Heading,
			Squawk:        snap.Squawk,
			Model:         snap.Model,
			Origin:        snap.Origin,
			Destination:   snap.Destination,
			Provider:      snap.Provider,
			HasFlightPlan: track.FlightPlan != nil,
		})
	}

	s.status.Publish(api.Status{
		Airport:   s.airport,
		Clients:   len(s.clients),
		Buffering: s.tracker.IsBuffering(),
		Aircraft:  aircraft,
		UpdatedAt: time.Now(),
	})
}

// send writes one outbound chunk to a single client; a failed write marks
// the client for removal.
func (s *Server) send(c *client, data string) bool {
	if c.dead {
		return false
	}
	if _, err := c.conn.Write([]byte(data)); err != nil {
		log.Printf("Dropping client %s: %v", c.conn.RemoteAddr(), err)
		c.dead = true
		return false
	}
	return true
}

// broadcast writes to every client, keeping only those whose write
// succeeded.
func (s *Server) broadcast(data string) {
	for _, c := range s.clients {
		s.send(c, data)
	}
}

// pruneDead closes and removes clients that failed a read or write.
func (s *Server) pruneDead() {
	kept := s.clients[:0]
	for _, c := range s.clients {
		if c.dead {
			c.conn.Close()
			continue
		}
		kept = append(kept, c)
	}
	s.clients = kept
}
