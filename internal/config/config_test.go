package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Cache.DefaultTTL.Std() != time.Hour {
		t.Fatalf("unexpected cache ttl: %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Payment.PricePerRequest != 0.001 || cfg.Payment.Currency != "USD" {
		t.Fatalf("unexpected payment defaults: %v %s", cfg.Payment.PricePerRequest, cfg.Payment.Currency)
	}
	if cfg.Queue.Workers != 2 || cfg.Queue.Depth != 256 {
		t.Fatalf("unexpected queue defaults: %+v", cfg.Queue)
	}
	if cfg.Queue.Retention.Std() != 24*time.Hour || cfg.Queue.CleanupInterval.Std() != time.Hour {
		t.Fatalf("unexpected retention defaults: %+v", cfg.Queue)
	}
	if len(cfg.Social.Accounts) == 0 {
		t.Fatal("expected default monitored accounts")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  addr: ":9090"
cache:
  defaultTtl: 30m
queue:
  workers: 4
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("yaml addr not applied: %s", cfg.Server.Addr)
	}
	if cfg.Cache.DefaultTTL.Std() != 30*time.Minute {
		t.Fatalf("yaml ttl not applied: %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Queue.Workers != 4 {
		t.Fatalf("yaml workers not applied: %d", cfg.Queue.Workers)
	}
	// Untouched sections keep their defaults.
	if cfg.Queue.Depth != 256 {
		t.Fatalf("default depth lost: %d", cfg.Queue.Depth)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(httpAddrEnv, ":7070")
	t.Setenv(databaseDSNEnv, "postgres://env/db")
	t.Setenv(facilitatorURLEnv, "https://pay.example")

	cfg := Load()

	if cfg.Server.Addr != ":7070" {
		t.Fatalf("env addr must win: %s", cfg.Server.Addr)
	}
	if cfg.Database.DSN != "postgres://env/db" {
		t.Fatalf("env dsn not applied: %s", cfg.Database.DSN)
	}
	if cfg.Payment.FacilitatorURL != "https://pay.example" {
		t.Fatalf("env facilitator not applied: %s", cfg.Payment.FacilitatorURL)
	}
}

func TestLoadUnreadableFileFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected defaults on unreadable file, got %s", cfg.Server.Addr)
	}
}
