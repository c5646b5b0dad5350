package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", config.Server.Port)
	}
	if config.Storage.Backend != "badger" {
		t.Errorf("default storage backend = %q, want badger", config.Storage.Backend)
	}
	if got := config.Ledger.GetStartingBalance().String(); got != "1000" {
		t.Errorf("default starting balance = %s, want 1000", got)
	}
	if config.PriceFeed.GetInterval() != 5*time.Second {
		t.Errorf("default price feed interval = %s, want 5s", config.PriceFeed.GetInterval())
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig("does-not-exist.toml")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", config.Server.Port)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "startrade.toml")
	content := `
environment = "production"

[server]
port = 9090

[ledger]
starting_balance = "2500.50"

[pricefeed]
interval = "2s"

[storage]
backend = "memory"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if config.Environment != "production" {
		t.Errorf("environment = %q, want production", config.Environment)
	}
	if config.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", config.Server.Port)
	}
	if got := config.Ledger.GetStartingBalance().String(); got != "2500.5" {
		t.Errorf("starting balance = %s, want 2500.5", got)
	}
	if config.PriceFeed.GetInterval() != 2*time.Second {
		t.Errorf("interval = %s, want 2s", config.PriceFeed.GetInterval())
	}
	if config.Storage.Backend != "memory" {
		t.Errorf("backend = %q, want memory", config.Storage.Backend)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STARTRADE_PORT", "7070")
	t.Setenv("STARTRADE_STORAGE_BACKEND", "memory")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", config.Server.Port)
	}
	if config.Storage.Backend != "memory" {
		t.Errorf("backend = %q, want memory", config.Storage.Backend)
	}
}

func TestInvalidDurationsFallBack(t *testing.T) {
	pf := PriceFeedConfig{Interval: "not-a-duration"}
	if pf.GetInterval() != 5*time.Second {
		t.Errorf("interval fallback = %s, want 5s", pf.GetInterval())
	}

	lc := LedgerConfig{StartingBalance: "-50"}
	if got := lc.GetStartingBalance().String(); got != "1000" {
		t.Errorf("negative starting balance should fall back to 1000, got %s", got)
	}
}
