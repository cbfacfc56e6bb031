package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.CompletionTimeout != 60*time.Second {
		t.Fatalf("completion timeout = %v", cfg.CompletionTimeout)
	}
	if cfg.RegistryTimeout != 30*time.Second {
		t.Fatalf("registry timeout = %v", cfg.RegistryTimeout)
	}
	if cfg.RegistryURL != "" {
		t.Fatalf("registry url = %q, want empty by default", cfg.RegistryURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("RECORDS_DB_PATH", "/tmp/rec.db")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("RAND_SEED", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.RecordsDBPath != "/tmp/rec.db" {
		t.Fatalf("records db path = %q", cfg.RecordsDBPath)
	}
	if cfg.CompletionTimeout != 5*time.Second {
		t.Fatalf("completion timeout = %v", cfg.CompletionTimeout)
	}
	if cfg.Seed() != 42 {
		t.Fatalf("seed = %d", cfg.Seed())
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("load succeeded without an api key")
	}
}

func TestSeedFallsBackToClock(t *testing.T) {
	var c Config
	if c.Seed() == 0 {
		t.Fatal("zero seed from clock fallback")
	}
}
