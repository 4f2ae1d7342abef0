// Package api serves a small read-only HTTP status surface next to the FSD
// port: what the bridge is tracking right now and, when the archive is
// enabled, what it has seen before. The session loop publishes snapshots
// into it; handlers never touch the tracker directly.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unklstewy/fsdbridge/internal/db"
)

// AircraftStatus is one tracked aircraft as exposed over HTTP.
type AircraftStatus struct {
	Hex           string  `json:"hex"`
	Callsign      string  `json:"callsign"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Altitude      int     `json:"altitude"`
	GroundSpeed   int     `json:"ground_speed"`
	Heading       int     `json:"heading"`
	Squawk        string  `json:"squawk"`
	Model         string  `json:"model"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Provider      string  `json:"provider"`
	HasFlightPlan bool    `json:"has_flight_plan"`
}

// Status is the published view of one bridge instant.
type Status struct {
	Airport   string           `json:"airport"`
	Clients   int              `json:"clients"`
	Buffering bool             `json:"buffering"`
	Aircraft  []AircraftStatus `json:"aircraft"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Server is the HTTP status server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	archive    *db.Archive

	mu     sync.RWMutex
	status Status
}

// New creates the status server. archive may be nil when archiving is
// disabled; the archive routes then answer 404.
func New(addr string, archive *db.Archive) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		archive: archive,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/aircraft", s.handleAircraft)

		if s.archive != nil {
			r.Get("/archive/sightings", s.handleSightings)
			r.Get("/archive/flightplans", s.handleFlightPlans)
		}
	})
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		log.Printf("Status API listening on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("WARNING: status API stopped: %v", err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Publish replaces the status snapshot served by the read endpoints.
// Safe to call from the session loop while handlers are reading.
func (s *Server) Publish(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: failed to encode response: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	aircraft := s.status.Aircraft
	s.mu.RUnlock()

	if aircraft == nil {
		aircraft = []AircraftStatus{}
	}
	s.writeJSON(w, http.StatusOK, aircraft)
}

// queryLimit parses ?limit= with a default and an upper bound.
func queryLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func (s *Server) handleSightings(w http.ResponseWriter, r *http.Request) {
	sightings, err := s.archive.RecentSightings(r.Context(), queryLimit(r, 100, 1000))
	if err != nil {
		log.Printf("WARNING: failed to load sightings: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive query failed"})
		return
	}
	if sightings == nil {
		sightings = []db.Sighting{}
	}
	s.writeJSON(w, http.StatusOK, sightings)
}

func (s *Server) handleFlightPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.archive.FlightPlans(r.Context(), queryLimit(r, 100, 1000))
	if err != nil {
		log.Printf("WARNING: failed to load flight plans: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive query failed"})
		return
	}
	if plans == nil {
		plans = []db.StoredFlightPlan{}
	}
	s.writeJSON(w, http.StatusOK, plans)
}
