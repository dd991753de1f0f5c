package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageBackend != BackendKeyValue {
		t.Fatalf("expected default backend %q, got %q", BackendKeyValue, cfg.StorageBackend)
	}
	if cfg.DatabasePath != "vidnotes.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
	if cfg.HideDelay != 100*time.Millisecond {
		t.Fatalf("unexpected hide delay %v", cfg.HideDelay)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	configViper := NewViper()
	configViper.Set("storage.backend", "carrier-pigeon")

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadRequiresPathForSelectedBackend(t *testing.T) {
	configViper := NewViper()
	configViper.Set("storage.backend", BackendVideoScoped)
	configViper.Set("storage.notes_dir", "  ")

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for blank notes dir")
	}

	configViper = NewViper()
	configViper.Set("storage.database_path", "")
	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for blank database path")
	}
}
