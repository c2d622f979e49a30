package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, "profile_"+name+".yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "mainnet", `
name: mainnet
node_stream_url: http://node-7:9999/events/main
protocol_version: 1.4.8
store:
  driver: postgres
  dsn: postgres://sidecar@db:5432/events?sslmode=disable
redis:
  addr: redis:6379
  channel: mainnet:events
replay_limit: 5000
`)

	p, err := LoadProfile(dir, "mainnet")
	if err != nil {
		t.Fatalf("LoadProfile(mainnet): %v", err)
	}
	if p.Name != "mainnet" {
		t.Errorf("expected name 'mainnet', got %q", p.Name)
	}
	if p.Store.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %q", p.Store.Driver)
	}
	if p.Redis.Channel != "mainnet:events" {
		t.Errorf("expected mainnet:events channel, got %q", p.Redis.Channel)
	}
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, err := LoadProfile(t.TempDir(), "nope")
	if err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestLoadProfile_NameDefaultsFromFilename(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "testnet", "replay_limit: 10\n")

	p, err := LoadProfile(dir, "TESTNET")
	if err != nil {
		t.Fatalf("LoadProfile(TESTNET): %v", err)
	}
	if p.Name != "testnet" {
		t.Errorf("expected name 'testnet', got %q", p.Name)
	}
}

func TestProfileApply_OverridesSetFieldsOnly(t *testing.T) {
	cfg := Load()
	original := *cfg

	p := &Profile{
		Name:            "overlay",
		ProtocolVersion: "2.0.0",
		Store:           Store{Driver: "postgres", DSN: "postgres://db/events"},
		ReplayLimit:     77,
	}
	p.Apply(cfg)

	if cfg.ProtocolVersion != "2.0.0" {
		t.Errorf("expected protocol version override, got %q", cfg.ProtocolVersion)
	}
	if cfg.StoreDriver != "postgres" || cfg.StoreDSN != "postgres://db/events" {
		t.Errorf("expected store override, got %q %q", cfg.StoreDriver, cfg.StoreDSN)
	}
	if cfg.ReplayLimit != 77 {
		t.Errorf("expected replay limit 77, got %d", cfg.ReplayLimit)
	}
	// Unset fields keep their environment values.
	if cfg.BindAddr != original.BindAddr {
		t.Errorf("bind addr changed unexpectedly: %q", cfg.BindAddr)
	}
	if cfg.RateLimitRPS != original.RateLimitRPS {
		t.Errorf("rate limit changed unexpectedly: %v", cfg.RateLimitRPS)
	}
}
