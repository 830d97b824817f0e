package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PREFKEEP_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "store.backend", typ: kString, env: "PREFKEEP_STORE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Store.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Backend },
	},
	{
		key: "store.namespace", typ: kString, env: "PREFKEEP_STORE_NAMESPACE",
		apply:   func(cfg *Config, v any) { cfg.Store.Namespace = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Namespace },
	},
	{
		key: "store.data_dir", typ: kString, env: "PREFKEEP_STORE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Store.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.DataDir },
	},
	{
		key: "store.flush_delay", typ: kString, env: "PREFKEEP_STORE_FLUSH_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Store.FlushDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.FlushDelay },
	},
	{
		key: "log.level", typ: kString, env: "PREFKEEP_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
