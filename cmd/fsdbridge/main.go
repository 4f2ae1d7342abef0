// fsdbridge injects live real-world traffic into a simulator ATC client.
// It polls public position feeds for the airspace around the configured
// airport and serves the result as an FSD network on 127.0.0.1:6809.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/unklstewy/fsdbridge/internal/api"
	"github.com/unklstewy/fsdbridge/internal/db"
	"github.com/unklstewy/fsdbridge/internal/session"
	"github.com/unklstewy/fsdbridge/pkg/airports"
	"github.com/unklstewy/fsdbridge/pkg/config"
	"github.com/unklstewy/fsdbridge/pkg/flightaware"
	"github.com/unklstewy/fsdbridge/pkg/provider"
	"github.com/unklstewy/fsdbridge/pkg/tracker"
	"github.com/unklstewy/fsdbridge/pkg/wx"
)

// archiveRetention is how long sightings are kept before the startup
// cleanup removes them. Flight plans are kept indefinitely.
const archiveRetention = 7 * 24 * time.Hour

// fatal reports a startup problem and waits for a keystroke before exiting
// so the message survives when the bridge was launched by double-click.
func fatal(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	fmt.Println("Press Enter to exit.")
	bufio.NewReader(os.Stdin).ReadString('\n')
	os.Exit(0)
}

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	airportsPath := flag.String("airports", "airports.csv", "Path to the airport database CSV")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  fsdbridge - live traffic FSD bridge")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if os.IsNotExist(err) {
		if saveErr := config.Default().Save(*configPath); saveErr != nil {
			fatal("Failed to create %s: %v", *configPath, saveErr)
		}
		fatal("Created %s with defaults. Set the airport and restart.", *configPath)
	}
	if err != nil {
		fatal("Failed to load configuration: %v", err)
	}
	if cfg.Airport == "" {
		fatal("No airport configured. Set \"airport\" in %s.", *configPath)
	}
	log.Printf("Configuration loaded from: %s", *configPath)
	log.Printf("Airport: %s, range %.0f mi, band %d..%d ft, delay %ds",
		cfg.Airport, cfg.Range, cfg.Floor, cfg.Ceiling, cfg.Delay)

	airportDB, err := airports.Load(*airportsPath)
	if err != nil {
		fatal("Failed to load airport database: %v", err)
	}

	bounds, ok := airportDB.BoundsFromRadius(cfg.Airport, cfg.Range)
	if !ok {
		fatal("Unknown airport %q in %s.", cfg.Airport, *airportsPath)
	}
	center, _ := airportDB.Position(cfg.Airport)
	log.Printf("Radar rectangle: %.4f,%.4f to %.4f,%.4f",
		bounds.Lat1, bounds.Lon1, bounds.Lat2, bounds.Lon2)

	providers := []provider.Provider{
		provider.NewFlightRadar24("", bounds, airportDB),
		provider.NewAirplanesLive("", center, cfg.Range),
	}

	var flightPlans tracker.FlightPlanSource
	var enricher *flightaware.Enricher
	if cfg.UseFlightAware {
		enricher = flightaware.NewEnricher(flightaware.NewClient(flightaware.ClientConfig{}))
		enricher.Run()
		defer enricher.Stop()
		flightPlans = enricher
		log.Println("Flight-plan enrichment enabled")
	}

	var recorder tracker.Recorder
	var archive *db.Archive
	if cfg.Archive.Enabled {
		database, err := db.Connect(cfg.Archive)
		if err != nil {
			fatal("Failed to connect to archive database: %v", err)
		}
		defer database.Close()

		if err := database.InitSchema(context.Background()); err != nil {
			fatal("Failed to initialize archive schema: %v", err)
		}
		if err := database.CleanupOldData(context.Background(), archiveRetention); err != nil {
			log.Printf("WARNING: failed to clean up old sightings: %v", err)
		}
		archive = db.NewArchive(database)
		defer archive.Stop()
		recorder = archive
		log.Println("Archive enabled")
	}

	tr := tracker.New(providers, tracker.Options{
		Floor:       cfg.Floor,
		Ceiling:     cfg.Ceiling,
		FlightPlans: flightPlans,
		Recorder:    recorder,
	})
	tr.Run()
	defer tr.Stop()

	weather := wx.New("")
	weather.Run()
	defer weather.Stop()

	srv, err := session.Listen(session.DefaultAddr, tr, weather, cfg.Delay)
	if err != nil {
		fatal("Failed to bind %s: %v", session.DefaultAddr, err)
	}
	defer srv.Close()
	log.Printf("FSD server listening on %s", session.DefaultAddr)

	if cfg.StatusAPI.Enabled {
		statusSrv := api.New(cfg.StatusAPI.Addr, archive)
		statusSrv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			statusSrv.Shutdown(ctx)
		}()
		srv.SetStatus(statusSrv, cfg.Airport)
	}

	// Sessions are serial: when the last client disconnects, go back to
	// waiting for the next one. Background pools keep running in between.
	for {
		if err := srv.Serve(); err != nil {
			fatal("FSD server failed: %v", err)
		}
	}
}
