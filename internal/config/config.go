package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port int
}

// StoreConfig selects where the form's preferences live.
type StoreConfig struct {
	Backend    string // file, sqlite, defaults or memory
	Namespace  string
	DataDir    string
	FlushDelay string
}

type LogConfig struct {
	Level string
}

// Store backends accepted by store.backend.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendDefaults = "defaults"
	BackendMemory   = "memory"
)

var backends = map[string]bool{
	BackendFile:     true,
	BackendSQLite:   true,
	BackendDefaults: true,
	BackendMemory:   true,
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Store: StoreConfig{
			Backend:    BackendFile,
			Namespace:  "UserPreferences",
			DataDir:    defaultDataDir(),
			FlushDelay: "100ms",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// FlushDelayDuration parses Store.FlushDelay, falling back to 100ms.
func (c Config) FlushDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.Store.FlushDelay)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.prefkeep.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/prefkeep/config.json.
//
// Environment variables (PREFKEEP_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if !backends[cfg.Store.Backend] {
		return fmt.Errorf("invalid config: store.backend %q (want one of file, sqlite, defaults, memory)", cfg.Store.Backend)
	}
	if cfg.Store.Namespace == "" {
		return fmt.Errorf("invalid config: store.namespace must not be empty")
	}
	if err := checkValue("store.flush_delay", cfg.Store.FlushDelay); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", cfg.Server.Port)
	}
	return nil
}
