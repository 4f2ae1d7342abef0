package flightaware

import (
	"context"

	"github.com/unklstewy/fsdbridge/pkg/pool"
)

// enricherWorkers is the fetch concurrency. Five keeps a burst of new
// airliners from queueing behind one slow page load without hammering the
// site.
const enricherWorkers = 5

// Request identifies one flight-plan lookup.
type Request struct {
	// ID is the track identity (Mode-S hex) the result is matched back to.
	ID       string
	Callsign string
}

// Result is the outcome of one lookup. Exactly one of FlightPlan/Err is
// set. The tracker never retries a failed lookup; the attempt flag on the
// track stays set either way.
type Result struct {
	ID         string
	Callsign   string
	FlightPlan *FlightPlan
	Err        error
}

// Enricher resolves flight plans for airline callsigns in the background.
type Enricher struct {
	client *Client
	pool   *pool.Pool[Request, Result]
}

// NewEnricher wraps a client in a worker pool. Run must be called before
// results are produced.
func NewEnricher(client *Client) *Enricher {
	return &Enricher{
		client: client,
		pool:   pool.New[Request, Result](enricherWorkers),
	}
}

// Run starts the fetch workers.
func (e *Enricher) Run() {
	e.pool.Run(func(job Request) Result {
		fp, err := e.client.GetFlightPlan(context.Background(), job.Callsign)
		return Result{
			ID:         job.ID,
			Callsign:   job.Callsign,
			FlightPlan: fp,
			Err:        err,
		}
	})
}

// Request enqueues a lookup. Non-blocking. Callers guard against duplicate
// submissions per track; the enricher does not deduplicate.
func (e *Enricher) Request(id, callsign string) {
	e.pool.Submit(Request{ID: id, Callsign: callsign})
}

// Poll returns one completed lookup if available. Non-blocking.
func (e *Enricher) Poll() (Result, bool) {
	return e.pool.Poll()
}

// Stop shuts the workers down at their next idle wake.
func (e *Enricher) Stop() {
	e.pool.Stop()
}
