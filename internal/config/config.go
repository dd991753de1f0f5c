package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend selection values for storage.backend.
const (
	BackendKeyValue    = "keyvalue"
	BackendVideoScoped = "videoscoped"
)

const (
	envPrefix            = "VIDNOTES"
	defaultBackend       = BackendKeyValue
	defaultDatabasePath  = "vidnotes.db"
	defaultNotesDir      = "notes"
	defaultLogLevel      = "info"
	defaultHideDelayMsec = 100
)

// AppConfig captures runtime configuration for the annotation engine.
type AppConfig struct {
	StorageBackend string
	DatabasePath   string
	NotesDir       string
	LogLevel       string
	HideDelay      time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("storage.backend", defaultBackend)
	configViper.SetDefault("storage.database_path", defaultDatabasePath)
	configViper.SetDefault("storage.notes_dir", defaultNotesDir)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("tooltip.hide_delay_ms", defaultHideDelayMsec)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		StorageBackend: configViper.GetString("storage.backend"),
		DatabasePath:   configViper.GetString("storage.database_path"),
		NotesDir:       configViper.GetString("storage.notes_dir"),
		LogLevel:       configViper.GetString("log.level"),
		HideDelay:      time.Duration(configViper.GetInt("tooltip.hide_delay_ms")) * time.Millisecond,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.StorageBackend {
	case BackendKeyValue:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("storage.database_path is required")
		}
	case BackendVideoScoped:
		if strings.TrimSpace(c.NotesDir) == "" {
			return fmt.Errorf("storage.notes_dir is required")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q", BackendKeyValue, BackendVideoScoped)
	}
	if c.HideDelay < 0 {
		return fmt.Errorf("tooltip.hide_delay_ms must not be negative")
	}
	return nil
}
