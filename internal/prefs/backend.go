package prefs

import "errors"

// ErrUnsupportedBackend is returned when a backend is not available on the
// current platform.
var ErrUnsupportedBackend = errors.New("preference backend not supported on this platform")

// Backend abstracts the platform storage behind a preference namespace.
// Deleting a key that does not exist is not an error.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	SetString(key, val string) error
	Delete(key string) error
}

// BatchWriter is implemented by backends that can persist a whole Edit in
// one write. Shared prefers it over per-key calls when available.
type BatchWriter interface {
	WriteBatch(e Edit) error
}

// Reader is the read side of a preference store.
type Reader interface {
	GetString(key, def string) string
}

// Store is the capability handed to code that reads and writes preferences.
// Apply records an edit and persists it eventually; Commit persists it
// before returning.
type Store interface {
	Reader
	Apply(e Edit)
	Commit(e Edit) error
}
