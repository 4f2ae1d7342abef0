package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/unklstewy/fsdbridge/pkg/flightaware"
	"github.com/unklstewy/fsdbridge/pkg/pool"
	"github.com/unklstewy/fsdbridge/pkg/provider"
)

// writeTimeout bounds each archive write so a stalled database releases
// the write worker within a couple of ticks' worth of traffic.
const writeTimeout = 2 * time.Second

// Archive mirrors tracker events into the database. It satisfies the
// tracker's Recorder interface: write failures are logged and swallowed
// because the archive is best-effort.
//
// Writes run on a single background worker so the session loop never
// waits on the database; one worker keeps them in submission order.
type Archive struct {
	db     *DB
	writes *pool.Pool[func(), struct{}]
}

// NewArchive creates an archive writer over an open connection and starts
// its write worker.
func NewArchive(db *DB) *Archive {
	a := &Archive{
		db:     db,
		writes: pool.New[func(), struct{}](1),
	}
	a.writes.Run(func(write func()) struct{} {
		write()
		return struct{}{}
	})
	return a
}

// drainDone discards completed-write markers; nothing consumes them, and
// the pool keeps results until polled.
func (a *Archive) drainDone() {
	for {
		if _, ok := a.writes.Poll(); !ok {
			return
		}
	}
}

// Stop shuts the write worker down. Queued writes are abandoned.
func (a *Archive) Stop() {
	a.writes.Stop()
}

// RecordSighting queues an upsert of the latest observation for an
// airframe. Returns immediately.
func (a *Archive) RecordSighting(snap provider.Snapshot) {
	a.drainDone()
	a.writes.Submit(func() { a.writeSighting(snap) })
}

func (a *Archive) writeSighting(snap provider.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	now := time.Now().UTC()
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO sightings (
			hex, callsign, latitude, longitude, altitude_ft,
			ground_speed_kts, heading_deg, squawk, on_ground,
			model, origin, destination, provider,
			first_seen, last_seen, position_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14, 1
		)
		ON CONFLICT (hex) DO UPDATE SET
			callsign = EXCLUDED.callsign,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			altitude_ft = EXCLUDED.altitude_ft,
			ground_speed_kts = EXCLUDED.ground_speed_kts,
			heading_deg = EXCLUDED.heading_deg,
			squawk = EXCLUDED.squawk,
			on_ground = EXCLUDED.on_ground,
			model = EXCLUDED.model,
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			provider = EXCLUDED.provider,
			last_seen = EXCLUDED.last_seen,
			position_count = sightings.position_count + 1`,
		snap.Hex, snap.Callsign, snap.Latitude, snap.Longitude, snap.Altitude,
		snap.GroundSpeed, snap.Heading, snap.Squawk, snap.OnGround,
		snap.Model, snap.Origin, snap.Destination, snap.Provider, now,
	)
	if err != nil {
		log.Printf("WARNING: failed to archive sighting for %s: %v", snap.Callsign, err)
	}
}

// RecordFlightPlan queues a store of a fetched flight plan keyed by
// callsign. Returns immediately.
func (a *Archive) RecordFlightPlan(callsign string, fp *flightaware.FlightPlan) {
	a.drainDone()
	a.writes.Submit(func() { a.writeFlightPlan(callsign, fp) })
}

func (a *Archive) writeFlightPlan(callsign string, fp *flightaware.FlightPlan) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO flight_plans (
			callsign, origin, origin_gate, destination, destination_gate,
			aircraft_type, speed_kts, altitude_ft, route,
			scheduled_departure, scheduled_arrival, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (callsign) DO UPDATE SET
			origin = EXCLUDED.origin,
			origin_gate = EXCLUDED.origin_gate,
			destination = EXCLUDED.destination,
			destination_gate = EXCLUDED.destination_gate,
			aircraft_type = EXCLUDED.aircraft_type,
			speed_kts = EXCLUDED.speed_kts,
			altitude_ft = EXCLUDED.altitude_ft,
			route = EXCLUDED.route,
			scheduled_departure = EXCLUDED.scheduled_departure,
			scheduled_arrival = EXCLUDED.scheduled_arrival,
			fetched_at = EXCLUDED.fetched_at`,
		callsign, fp.Origin.ICAO, fp.Origin.Gate,
		fp.Destination.ICAO, fp.Destination.Gate,
		fp.AircraftType, fp.Speed, fp.Altitude, fp.Route,
		fp.ScheduledDeparture, fp.ScheduledArrival, time.Now().UTC(),
	)
	if err != nil {
		log.Printf("WARNING: failed to archive flight plan for %s: %v", callsign, err)
	}
}

// Sighting is one archived airframe row.
type Sighting struct {
	Hex         string
	Callsign    string
	Latitude    float64
	Longitude   float64
	Altitude    int
	GroundSpeed int
	Heading     int
	Squawk      string
	Model       string
	Origin      string
	Destination string
	Provider    string
	FirstSeen   time.Time
	LastSeen    time.Time
	Positions   int
}

// RecentSightings returns the most recently refreshed sightings, newest
// first.
func (a *Archive) RecentSightings(ctx context.Context, limit int) ([]Sighting, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT hex, callsign, latitude, longitude, altitude_ft,
		        ground_speed_kts, heading_deg, squawk, model,
		        origin, destination, provider,
		        first_seen, last_seen, position_count
		 FROM sightings
		 ORDER BY last_seen DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	var sightings []Sighting
	for rows.Next() {
		var s Sighting
		if err := rows.Scan(
			&s.Hex, &s.Callsign, &s.Latitude, &s.Longitude, &s.Altitude,
			&s.GroundSpeed, &s.Heading, &s.Squawk, &s.Model,
			&s.Origin, &s.Destination, &s.Provider,
			&s.FirstSeen, &s.LastSeen, &s.Positions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sightings = append(sightings, s)
	}

	return sightings, rows.Err()
}

// StoredFlightPlan is one archived flight-plan row.
type StoredFlightPlan struct {
	Callsign           string
	Origin             string
	OriginGate         string
	Destination        string
	DestinationGate    string
	AircraftType       string
	Speed              int
	Altitude           int
	Route              string
	ScheduledDeparture *time.Time
	ScheduledArrival   *time.Time
	FetchedAt          time.Time
}

// FlightPlans returns all archived flight plans, newest first.
func (a *Archive) FlightPlans(ctx context.Context, limit int) ([]StoredFlightPlan, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT callsign, origin, origin_gate, destination, destination_gate,
		        aircraft_type, speed_kts, altitude_ft, route,
		        scheduled_departure, scheduled_arrival, fetched_at
		 FROM flight_plans
		 ORDER BY fetched_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight plans: %w", err)
	}
	defer rows.Close()

	var plans []StoredFlightPlan
	for rows.Next() {
		var p StoredFlightPlan
		if err := rows.Scan(
			&p.Callsign, &p.Origin, &p.OriginGate,
			&p.Destination, &p.DestinationGate,
			&p.AircraftType, &p.Speed, &p.Altitude, &p.Route,
			&p.ScheduledDeparture, &p.ScheduledArrival, &p.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flight plan: %w", err)
		}
		plans = append(plans, p)
	}

	return plans, rows.Err()
}
