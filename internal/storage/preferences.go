package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kalambet/prefkeep/internal/prefs"
)

// --- Preferences ---

func (s *Store) SetPreference(namespace, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO preferences (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetPreference(namespace, key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM preferences WHERE namespace = ? AND key = ?", namespace, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// DeletePreference removes one key. Removing a missing key is not an error.
func (s *Store) DeletePreference(namespace, key string) error {
	_, err := s.db.Exec("DELETE FROM preferences WHERE namespace = ? AND key = ?", namespace, key)
	return err
}

// ListPreferences returns every key of namespace ordered by key.
func (s *Store) ListPreferences(namespace string) ([]Preference, error) {
	rows, err := s.db.Query(`
		SELECT namespace, key, value, updated_at
		FROM preferences WHERE namespace = ? ORDER BY key ASC`, namespace,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Preference
	for rows.Next() {
		var p Preference
		var updatedAt string
		if err := rows.Scan(&p.Namespace, &p.Key, &p.Value, &updatedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		p.UpdatedAt = t
		results = append(results, p)
	}
	return results, rows.Err()
}

// ClearNamespace deletes every key of namespace and returns how many were removed.
func (s *Store) ClearNamespace(namespace string) (int64, error) {
	res, err := s.db.Exec("DELETE FROM preferences WHERE namespace = ?", namespace)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ApplyPreferences writes every operation of e to namespace in one transaction.
func (s *Store) ApplyPreferences(namespace string, e prefs.Edit) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning preferences transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, op := range e.Ops {
		switch op.Kind {
		case prefs.OpPut:
			_, err = tx.Exec(`
				INSERT INTO preferences (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				namespace, op.Key, op.Value, now,
			)
		case prefs.OpRemove:
			_, err = tx.Exec("DELETE FROM preferences WHERE namespace = ? AND key = ?", namespace, op.Key)
		}
		if err != nil {
			return fmt.Errorf("applying %s of %q: %w", op.Kind, op.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing preferences: %w", err)
	}
	return nil
}

// NamespaceBackend exposes one namespace of the Store as a prefs.Backend.
type NamespaceBackend struct {
	store     *Store
	namespace string
}

// Namespace returns a backend bound to namespace.
func (s *Store) Namespace(namespace string) *NamespaceBackend {
	return &NamespaceBackend{store: s, namespace: namespace}
}

func (b *NamespaceBackend) GetString(key string) (string, bool, error) {
	v, err := b.store.GetPreference(b.namespace, key)
	if err == ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *NamespaceBackend) SetString(key, val string) error {
	return b.store.SetPreference(b.namespace, key, val)
}

func (b *NamespaceBackend) Delete(key string) error {
	return b.store.DeletePreference(b.namespace, key)
}

func (b *NamespaceBackend) WriteBatch(e prefs.Edit) error {
	return b.store.ApplyPreferences(b.namespace, e)
}
