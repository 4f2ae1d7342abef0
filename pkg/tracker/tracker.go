// Package tracker owns the live view of the airspace: it polls the
// configured position providers on a fixed cadence, fuses their results
// into identity-stable tracks, buffers batches to implement the playback
// delay, dead-reckons positions between polls, and triggers flight-plan
// enrichment for airline traffic.
//
// The tracker is not safe for concurrent use. The session loop owns it and
// is the only caller; background work (provider polling, flight-plan
// fetches) happens on worker pools whose results are drained from Tick.
package tracker

import (
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/unklstewy/fsdbridge/pkg/flightaware"
	"github.com/unklstewy/fsdbridge/pkg/geo"
	"github.com/unklstewy/fsdbridge/pkg/pool"
	"github.com/unklstewy/fsdbridge/pkg/provider"
)

const (
	// pollRate is the wall-clock spacing between provider poll cycles.
	pollRate = 3 * time.Second

	// evictionHorizon drops a track whose position has not been refreshed.
	// Wall-clock age is used rather than batch absence so one flaky poll
	// cycle does not wipe the radar.
	evictionHorizon = 20 * time.Second
)

// registrationPattern recognizes tail-number shaped callsigns, which are
// allowed to be short. Everything else needs more than four characters to
// weed out feeds that put the type code in the callsign field.
var registrationPattern = regexp.MustCompile(`^(?:[A-Z]-[A-Z]{4}|[A-Z]{2}-[A-Z]{3}|N[0-9]{1,5}[A-Z]{0,2})$`)

// Track is the durable per-aircraft record, keyed by Mode-S hex.
type Track struct {
	ID string

	// Snapshot is the latest fused observation.
	Snapshot provider.Snapshot

	// Position extrapolates the last confirmed fix.
	Position geo.Interpolator

	// FlightPlan is set at most once, when enrichment succeeds.
	FlightPlan *flightaware.FlightPlan

	// FPAttempted is set when a flight-plan request is issued (or ruled
	// out) and never cleared, so lookups are never retried.
	FPAttempted bool

	// LastPositionWall is when the last position update was accepted.
	LastPositionWall time.Time

	// lastProviderTS gates updates: only strictly newer provider
	// timestamps are applied.
	lastProviderTS int64
}

// FlightPlanSource is the slice of the flight-plan enricher the tracker
// uses. Nil disables enrichment.
type FlightPlanSource interface {
	Request(id, callsign string)
	Poll() (flightaware.Result, bool)
}

// Recorder receives track events for the optional archive. Implementations
// must tolerate being called on every accepted update.
type Recorder interface {
	RecordSighting(snap provider.Snapshot)
	RecordFlightPlan(callsign string, fp *flightaware.FlightPlan)
}

// batchEntry preserves provider duplicates: the same hex may appear once
// per provider within a batch.
type batchEntry struct {
	hex  string
	snap provider.Snapshot
}

// Options configures a Tracker.
type Options struct {
	// Floor and Ceiling bound the altitude band in feet; snapshots outside
	// it are never admitted.
	Floor   int
	Ceiling int

	// FlightPlans enables flight-plan enrichment when non-nil.
	FlightPlans FlightPlanSource

	// Recorder mirrors accepted updates into the archive when non-nil.
	Recorder Recorder
}

// Tracker is the airspace engine. Construct with New, start background
// polling with Run, then call Tick from the session loop.
type Tracker struct {
	providers []provider.Provider
	fetchPool *pool.Pool[struct{}, []batchEntry]

	flightPlans FlightPlanSource
	recorder    Recorder

	tracks    map[string]*Track
	callsigns map[string]string // callsign -> hex

	buffer    [][]batchEntry
	buffering bool

	lastPoll time.Time

	floor   int
	ceiling int
}

// New creates a tracker over the given providers.
func New(providers []provider.Provider, opts Options) *Tracker {
	return &Tracker{
		providers:   providers,
		fetchPool:   pool.New[struct{}, []batchEntry](1),
		flightPlans: opts.FlightPlans,
		recorder:    opts.Recorder,
		tracks:      make(map[string]*Track),
		callsigns:   make(map[string]string),
		floor:       opts.Floor,
		ceiling:     opts.Ceiling,
	}
}

// Run starts the background poll worker. The first poll cycle is requested
// on the next Tick.
func (t *Tracker) Run() {
	t.fetchPool.Run(func(struct{}) []batchEntry {
		return t.fetchAll()
	})
}

// Stop shuts down the poll worker.
func (t *Tracker) Stop() {
	t.fetchPool.Stop()
}

// fetchAll queries every provider and merges the results into one batch,
// keeping duplicates so fusion can pick per aircraft. Runs on the poll
// worker; it must not touch tracker state.
func (t *Tracker) fetchAll() []batchEntry {
	var batch []batchEntry

	for _, p := range t.providers {
		aircraft, err := p.Fetch()
		if err != nil {
			log.Printf("WARNING: %s poll failed: %v", p.Name(), err)
			continue
		}
		for hex, snap := range aircraft {
			batch = append(batch, batchEntry{hex: hex, snap: snap})
		}
	}

	return batch
}

// Tick advances the tracker: requests a poll cycle when due, moves
// completed batches through the buffer (applying at most one), evicts
// stale tracks, and drains one flight-plan result.
func (t *Tracker) Tick() {
	if time.Since(t.lastPoll) >= pollRate {
		t.lastPoll = time.Now()
		t.fetchPool.Submit(struct{}{})
	}

	// Completed poll cycles arrive at roughly pollRate spacing, so batch
	// application is naturally paced to the poll cadence: each arrival
	// releases the oldest buffered batch.
	if batch, ok := t.fetchPool.Poll(); ok {
		t.buffer = append(t.buffer, batch)
		if !t.buffering {
			next := t.buffer[0]
			t.buffer = t.buffer[1:]
			t.applyBatch(next)
		}
	}

	if !t.buffering {
		t.evictStale(time.Now())
	}

	t.drainFlightPlan()
}

// applyBatch runs admission, fusion and update for one snapshot batch.
func (t *Tracker) applyBatch(batch []batchEntry) {
	processed := make(map[string]bool, len(batch))

	for _, entry := range batch {
		// First accepted snapshot per hex wins within a batch.
		if processed[entry.hex] {
			continue
		}

		snap := entry.snap
		callsign := strings.TrimSpace(snap.Callsign)
		if callsign == "" {
			continue
		}
		if snap.Altitude < t.floor || snap.Altitude > t.ceiling {
			continue
		}
		snap.Callsign = callsign

		if _, exists := t.tracks[entry.hex]; !exists {
			t.createTrack(entry.hex, snap)
		} else {
			t.updateTrack(entry.hex, snap)
		}
		t.triggerFlightPlan(entry.hex)

		processed[entry.hex] = true
	}
}

// createTrack admits a new aircraft if its callsign is unused and plausible.
func (t *Tracker) createTrack(hex string, snap provider.Snapshot) {
	if _, taken := t.callsigns[snap.Callsign]; taken {
		return
	}
	// Feeds sometimes put the type code in the callsign field; short
	// callsigns are only believable as registrations.
	if len(snap.Callsign) <= 4 && !registrationPattern.MatchString(snap.Callsign) {
		return
	}

	log.Printf("Creating %s (%s) via %s", snap.Callsign, hex, snap.Provider)

	track := &Track{
		ID:               hex,
		Snapshot:         snap,
		Position:         geo.NewInterpolator(snap.Latitude, snap.Longitude, snap.Heading, snap.GroundSpeed),
		LastPositionWall: time.Now(),
		lastProviderTS:   snap.Timestamp,
	}

	t.tracks[hex] = track
	t.callsigns[snap.Callsign] = hex

	if t.recorder != nil {
		t.recorder.RecordSighting(snap)
	}
}

// updateTrack applies a snapshot to an existing track when the provider
// timestamp advances. Older or equal timestamps are dropped silently.
func (t *Tracker) updateTrack(hex string, snap provider.Snapshot) {
	track := t.tracks[hex]

	if snap.Timestamp <= track.lastProviderTS {
		return
	}

	// The callsign index is keyed by the creating snapshot; a provider
	// renaming a live hex would break the one-to-one map, so keep the
	// original callsign.
	snap.Callsign = track.Snapshot.Callsign

	track.Snapshot = snap
	track.Position = geo.NewInterpolator(snap.Latitude, snap.Longitude, snap.Heading, snap.GroundSpeed)
	track.LastPositionWall = time.Now()
	track.lastProviderTS = snap.Timestamp

	if t.recorder != nil {
		t.recorder.RecordSighting(snap)
	}
}

// triggerFlightPlan issues at most one flight-plan request per track.
// Non-airline callsigns are marked attempted without a request; GA and
// registration traffic never has a filed plan to find.
func (t *Tracker) triggerFlightPlan(hex string) {
	track, ok := t.tracks[hex]
	if !ok || track.FPAttempted || track.FlightPlan != nil {
		return
	}
	track.FPAttempted = true

	if t.flightPlans == nil || !track.Snapshot.IsAirline() {
		return
	}

	log.Printf("Requesting flight plan for %s", track.Snapshot.Callsign)
	t.flightPlans.Request(hex, track.Snapshot.Callsign)
}

// drainFlightPlan consumes at most one enrichment result per tick.
func (t *Tracker) drainFlightPlan() {
	if t.flightPlans == nil {
		return
	}

	result, ok := t.flightPlans.Poll()
	if !ok {
		return
	}

	if result.Err != nil {
		log.Printf("No flight plan for %s: %v", result.Callsign, result.Err)
		return
	}

	track, ok := t.tracks[result.ID]
	if !ok {
		return // evicted while the fetch was in flight
	}
	if track.FlightPlan != nil {
		return
	}

	log.Printf("Received flight plan for %s", result.Callsign)
	track.FlightPlan = result.FlightPlan

	if t.recorder != nil {
		t.recorder.RecordFlightPlan(track.Snapshot.Callsign, result.FlightPlan)
	}
}

// evictStale removes tracks whose position is older than the eviction
// horizon, keeping the callsign index in step.
func (t *Tracker) evictStale(now time.Time) {
	for hex, track := range t.tracks {
		if now.Sub(track.LastPositionWall) <= evictionHorizon {
			continue
		}
		log.Printf("Removing %s (no position for %s)", track.Snapshot.Callsign, evictionHorizon)
		delete(t.callsigns, track.Snapshot.Callsign)
		delete(t.tracks, hex)
	}
}

// Tracks returns the live tracks. Callers may advance the interpolators;
// the map itself must not be mutated.
func (t *Tracker) Tracks() map[string]*Track {
	return t.tracks
}

// TrackByCallsign resolves a track through the callsign index.
func (t *Tracker) TrackByCallsign(callsign string) (*Track, bool) {
	hex, ok := t.callsigns[callsign]
	if !ok {
		return nil, false
	}
	track, ok := t.tracks[hex]
	return track, ok
}

// Exists reports whether a hex is currently tracked.
func (t *Tracker) Exists(hex string) bool {
	_, ok := t.tracks[hex]
	return ok
}

// StartBuffering holds fetched batches unapplied so the view can replay
// them later with a fixed delay.
func (t *Tracker) StartBuffering() { t.buffering = true }

// StopBuffering resumes applying batches, oldest first, one per completed
// poll cycle.
func (t *Tracker) StopBuffering() { t.buffering = false }

// IsBuffering reports whether batches are being held.
func (t *Tracker) IsBuffering() bool { return t.buffering }
