package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Airport != "" {
		t.Errorf("Expected empty default airport, got %q", cfg.Airport)
	}
	if cfg.Range != 30 {
		t.Errorf("Expected default range 30, got %f", cfg.Range)
	}
	if cfg.Delay != 0 {
		t.Errorf("Expected default delay 0, got %d", cfg.Delay)
	}
	if cfg.Floor != 0 || cfg.Ceiling != 99999 {
		t.Errorf("Expected altitude band 0..99999, got %d..%d", cfg.Floor, cfg.Ceiling)
	}
	if !cfg.UseFlightAware {
		t.Error("Expected FlightAware enabled by default")
	}
	if cfg.Archive.Enabled {
		t.Error("Expected archive disabled by default")
	}
	if cfg.StatusAPI.Enabled {
		t.Error("Expected status API disabled by default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if !os.IsNotExist(err) {
		t.Errorf("Expected os.IsNotExist error, got %v", err)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"airport":"KJFK","delay":10}`), 0644); err != nil {
		t.Fatalf("Failed to write config fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected load to succeed, got: %v", err)
	}
	if cfg.Airport != "KJFK" {
		t.Errorf("Expected airport KJFK, got %q", cfg.Airport)
	}
	if cfg.Delay != 10 {
		t.Errorf("Expected delay 10, got %d", cfg.Delay)
	}
	// Unset keys keep their defaults.
	if cfg.Range != 30 || cfg.Ceiling != 99999 || !cfg.UseFlightAware {
		t.Errorf("Expected defaults for unset keys, got %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Airport = "EGLL"
	cfg.Floor = 500

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Expected save to succeed, got: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Expected load to succeed, got: %v", err)
	}
	if loaded.Airport != "EGLL" || loaded.Floor != 500 {
		t.Errorf("Round trip lost data: %+v", loaded)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write config fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}
