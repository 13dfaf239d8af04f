package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/betsnipe_test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scraper.Interval() != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", cfg.Scraper.Interval())
	}
	if cfg.Scraper.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.Scraper.RequestTimeout())
	}
	if cfg.Scraper.MaxConcurrentRequests != 10 {
		t.Errorf("MaxConcurrentRequests = %d, want 10", cfg.Scraper.MaxConcurrentRequests)
	}
	if cfg.Matching.TimeWindowMinutes != 120 {
		t.Errorf("TimeWindowMinutes = %d, want 120", cfg.Matching.TimeWindowMinutes)
	}
	if cfg.Matching.SimilarityThreshold != 75.0 {
		t.Errorf("SimilarityThreshold = %v, want 75", cfg.Matching.SimilarityThreshold)
	}
	if !cfg.Scraper.EnableOddsHistory {
		t.Error("EnableOddsHistory should default to true")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/betsnipe_test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "scraper:\n" +
		"  request_timeout_seconds: 12\n" +
		"  max_concurrent_requests: 3\n" +
		"matching:\n" +
		"  match_time_window_minutes: 45\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scraper.RequestTimeout() != 12*time.Second {
		t.Errorf("RequestTimeout = %v, want 12s", cfg.Scraper.RequestTimeout())
	}
	if cfg.Scraper.MaxConcurrentRequests != 3 {
		t.Errorf("MaxConcurrentRequests = %d, want 3", cfg.Scraper.MaxConcurrentRequests)
	}
	if cfg.Matching.TimeWindowMinutes != 45 {
		t.Errorf("TimeWindowMinutes = %d, want 45", cfg.Matching.TimeWindowMinutes)
	}
	// Keys the file leaves out keep their defaults.
	if cfg.Scraper.Interval() != 2*time.Second {
		t.Errorf("Interval = %v, want default 2s", cfg.Scraper.Interval())
	}
}

func TestLoadRejectsMissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error without database_url")
	}
}

func TestLoadRejectsNonPositiveConcurrency(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/betsnipe_test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "scraper:\n  max_concurrent_requests: -1\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative max_concurrent_requests")
	}
}
