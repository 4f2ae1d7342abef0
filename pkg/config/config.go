// Package config loads the bridge configuration from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the complete bridge configuration.
type Config struct {
	// Airport is the ICAO identifier the radar is centered on. Required;
	// there is no sensible default.
	Airport string `json:"airport"`

	// Range is the radar radius in statute miles.
	Range float64 `json:"range"`

	// Delay is the playback delay in seconds: how far behind real life the
	// ATC client sees the airspace. Zero means live.
	Delay int `json:"delay"`

	// Floor and Ceiling bound the altitude band, in feet. Aircraft outside
	// the band are never tracked.
	Floor   int `json:"floor"`
	Ceiling int `json:"ceiling"`

	// UseFlightAware enables flight-plan enrichment for airline traffic.
	UseFlightAware bool `json:"use_flightaware"`

	// Archive configures the optional Postgres sighting archive.
	Archive ArchiveConfig `json:"archive"`

	// StatusAPI configures the optional loopback HTTP status endpoint.
	StatusAPI StatusAPIConfig `json:"status_api"`
}

// ArchiveConfig holds the Postgres connection settings for the optional
// track archive. Disabled by default; the bridge runs fine without it.
type ArchiveConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`
}

// StatusAPIConfig holds the optional HTTP status API settings.
type StatusAPIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Airport:        "",
		Range:          30,
		Delay:          0,
		Floor:          0,
		Ceiling:        99999,
		UseFlightAware: true,
		Archive: ArchiveConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			Database: "fsdbridge",
			Username: "fsdbridge",
			SSLMode:  "disable",
		},
		StatusAPI: StatusAPIConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8139",
		},
	}
}

// Load reads the configuration file. A missing file is reported via
// os.IsNotExist so the caller can create one with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
