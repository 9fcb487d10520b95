package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("expected base_url 'http://localhost:8000', got %q", cfg.API.BaseURL)
	}
	if cfg.API.Paths.OrderPlans != "/api/orderplans" {
		t.Errorf("expected order plans path '/api/orderplans', got %q", cfg.API.Paths.OrderPlans)
	}
	if cfg.API.PageSize != 20 {
		t.Errorf("expected page size 20, got %d", cfg.API.PageSize)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Backend.Port != 8000 {
		t.Errorf("expected backend port 8000, got %d", cfg.Backend.Port)
	}
	if cfg.Sources.OpenAPI.APIKeyEnv != "G2B_API_KEY" {
		t.Errorf("expected api_key_env 'G2B_API_KEY', got %q", cfg.Sources.OpenAPI.APIKeyEnv)
	}
	sched := cfg.Backend.Schedule
	if !sched.Enabled || sched.DaysBack != 2 || sched.Interval() != time.Hour {
		t.Errorf("expected hourly two-day schedule, got %+v", sched)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
api:
  base_url: https://g2b.example.com
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.API.BaseURL != "https://g2b.example.com" {
		t.Errorf("expected custom base_url, got %q", cfg.API.BaseURL)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.API.TimeoutSeconds != 30 {
		t.Errorf("expected default timeout 30, got %d", cfg.API.TimeoutSeconds)
	}
	if cfg.API.Paths.BidNotices != "/api/biddings" {
		t.Errorf("expected default bid notices path, got %q", cfg.API.Paths.BidNotices)
	}
	if cfg.Dashboard.DailyDays != 30 || cfg.Dashboard.TopN != 5 {
		t.Errorf("expected dashboard defaults, got %+v", cfg.Dashboard)
	}
}

func TestParseRejectsPageSize(t *testing.T) {
	if _, err := parse([]byte("api:\n  page_size: 500\n")); err == nil {
		t.Error("expected error for page size over 100")
	}
}

func TestParseSchedule(t *testing.T) {
	cfg, err := parse([]byte("backend:\n  port: 9001\n  schedule:\n    enabled: false\n    interval_minutes: 15\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched := cfg.Backend.Schedule
	if sched.Enabled {
		t.Error("expected schedule disabled")
	}
	if sched.Interval() != 15*time.Minute {
		t.Errorf("expected 15m interval, got %v", sched.Interval())
	}
	if sched.DaysBack != 2 {
		t.Errorf("expected default days_back 2, got %d", sched.DaysBack)
	}

	if _, err := parse([]byte("backend:\n  schedule:\n    interval_minutes: 0\n")); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvTimeout, "")
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg, _ := parse(DefaultConfigYAML)
	env := map[string]string{
		EnvAPIURL:  " http://10.0.0.5:8000 ",
		EnvTimeout: "5",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("expected overridden base_url, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout() != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.API.Timeout())
	}

	env[EnvTimeout] = "soon"
	if err := cfg.applyEnv(lookup); err == nil {
		t.Error("expected error for non-numeric timeout")
	}
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// Register for restore, then unset so the .env value applies.
	t.Setenv(EnvAPIURL, "")
	os.Unsetenv(EnvAPIURL)
	t.Setenv(EnvTimeout, "")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvAPIURL+"=http://dotenv:9999\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.API.BaseURL != "http://dotenv:9999" {
		t.Errorf("expected base_url from .env, got %q", cfg.API.BaseURL)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DBPath() != filepath.Join("/custom/path", "g2bdash.db") {
		t.Errorf("unexpected db path %q", cfg.DBPath())
	}
}
