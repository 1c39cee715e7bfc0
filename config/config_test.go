package config

import (
	"os"
	"path/filepath"
	"testing"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `api:
  address: ":8081"
  assessment_window_days: 14
logging:
  level: "debug"
metrics:
  prometheus_enabled: true
  prometheus_port: ":9191"
scoring:
  end_of_life_soh: 65
scheduling:
  taper_start_soc: 85
storage:
  backend: "sqlite"
  path: "/tmp/evcore-test.db"
catalog:
  stations:
    - id: "st-1"
      name: "Downtown"
      latitude: 48.85
      longitude: 2.35
      power_kw: 150
      connector: "ccs"
      capacity: 2
      status: "available"
  service_centers:
    - id: "svc-1"
      name: "North"
      latitude: 48.88
      longitude: 2.36
      specialties: ["battery"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"api.address", cfg.API.Address, ":8081"},
		{"api.window", cfg.API.AssessmentWindowDays, 14},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"metrics.prom", cfg.Metrics.PrometheusEnabled, true},
		{"metrics.port", cfg.Metrics.PrometheusPort, ":9191"},
		{"scoring.eol", cfg.Scoring.EndOfLifeSoH, 65.0},
		{"scoring.soh_weight_default", cfg.Scoring.SoHWeight, 0.60},
		{"scheduling.taper_start", cfg.Scheduling.TaperStartSoC, 85.0},
		{"scheduling.taper_factor_default", cfg.Scheduling.TaperFactor, 0.5},
		{"storage.backend", cfg.Storage.Backend, "sqlite"},
		{"storage.path", cfg.Storage.Path, "/tmp/evcore-test.db"},
		{"catalog.stations", len(cfg.Catalog.Stations), 1},
		{"catalog.centers", len(cfg.Catalog.ServiceCenters), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}

	st := cfg.Catalog.Stations[0].Station()
	if st.Capacity != 2 || st.PowerKW != 150 {
		t.Errorf("station seed conversion: %+v", st)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api: {}\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.API.Address != ":8080" {
		t.Errorf("api address default: %s", cfg.API.Address)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level default: %s", cfg.Logging.Level)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("storage backend default: %s", cfg.Storage.Backend)
	}
	if cfg.Scoring.EndOfLifeSoH != 70 {
		t.Errorf("scoring default: %v", cfg.Scoring.EndOfLifeSoH)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "config.toml")); err == nil {
		t.Errorf("expected unsupported format error")
	}

	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected log level validation error")
	}

	dupe := filepath.Join(dir, "dupe.yaml")
	data := `catalog:
  stations:
    - id: "st-1"
      latitude: 0
      longitude: 0
      power_kw: 50
      capacity: 1
    - id: "st-1"
      latitude: 1
      longitude: 1
      power_kw: 50
      capacity: 1
`
	if err := os.WriteFile(dupe, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(dupe); err == nil {
		t.Errorf("expected duplicate station id error")
	}
}
