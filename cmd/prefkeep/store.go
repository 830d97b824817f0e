package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kalambet/prefkeep/internal/config"
	"github.com/kalambet/prefkeep/internal/prefs"
	"github.com/kalambet/prefkeep/internal/storage"
)

// defaultsBundle prefixes the UserDefaults domain of each namespace.
const defaultsBundle = "com.prefkeep.app"

// openedStore is a preference store plus whatever must be closed after it.
type openedStore struct {
	*prefs.Shared
	db *storage.Store // nil unless the sqlite backend is used
}

// Close flushes queued writes, then releases the backend.
func (s *openedStore) Close() error {
	err := s.Shared.Close()
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

func openStore(cfg config.Config) (*openedStore, error) {
	var (
		backend prefs.Backend
		db      *storage.Store
	)
	switch cfg.Store.Backend {
	case config.BackendFile:
		b, err := prefs.NewFileBackend(filepath.Join(cfg.Store.DataDir, "shared_prefs"), cfg.Store.Namespace)
		if err != nil {
			return nil, fmt.Errorf("opening preferences file: %w", err)
		}
		backend = b
	case config.BackendSQLite:
		s, err := storage.Open(cfg.Store.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		db = s
		backend = s.Namespace(cfg.Store.Namespace)
	case config.BackendDefaults:
		b, err := prefs.NewDefaultsBackend(defaultsBundle, cfg.Store.Namespace)
		if err != nil {
			return nil, fmt.Errorf("opening defaults domain: %w", err)
		}
		backend = b
	case config.BackendMemory:
		backend = prefs.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return &openedStore{
		Shared: prefs.NewShared(backend, cfg.FlushDelayDuration()),
		db:     db,
	}, nil
}
