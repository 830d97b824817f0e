package prefs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/kalambet/prefkeep/internal/fsutil"
)

// FileBackend stores one namespace as JSON in dir/<namespace>.json.
// Values that are not valid UTF-8 are kept base64-encoded under "raw" so
// every string round-trips byte for byte.
type FileBackend struct {
	path string

	mu   sync.RWMutex
	data map[string]string
}

// fileDoc is the on-disk layout of a namespace file.
type fileDoc struct {
	Values map[string]string `json:"values"`
	Raw    map[string][]byte `json:"raw,omitempty"`
}

func encodeDoc(data map[string]string) fileDoc {
	doc := fileDoc{Values: make(map[string]string, len(data))}
	for k, v := range data {
		if utf8.ValidString(v) {
			doc.Values[k] = v
			continue
		}
		if doc.Raw == nil {
			doc.Raw = make(map[string][]byte)
		}
		doc.Raw[k] = []byte(v)
	}
	return doc
}

func (d fileDoc) decode() map[string]string {
	data := make(map[string]string, len(d.Values)+len(d.Raw))
	for k, v := range d.Values {
		data[k] = v
	}
	for k, v := range d.Raw {
		data[k] = string(v)
	}
	return data
}

// NewFileBackend opens the namespace file under dir. A missing file is an
// empty namespace; an unreadable one is logged and treated as empty.
func NewFileBackend(dir, namespace string) (*FileBackend, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	b := &FileBackend{
		path: filepath.Join(dir, namespace+".json"),
		data: make(map[string]string),
	}
	b.load()
	return b, nil
}

// Path returns the file the namespace is persisted to.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) load() {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read preferences file, starting empty", "path", b.path, "error", err)
		}
		return
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("could not parse preferences file, starting empty", "path", b.path, "error", err)
		return
	}
	b.data = doc.decode()
}

// save rewrites the whole file. Caller must hold b.mu.
func (b *FileBackend) save() error {
	data, err := json.MarshalIndent(encodeDoc(b.data), "", "  ")
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(b.path, data, 0o600); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

func (b *FileBackend) GetString(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *FileBackend) SetString(key, val string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = val
	return b.save()
}

func (b *FileBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return nil
	}
	delete(b.data, key)
	return b.save()
}

// WriteBatch applies every operation in e and rewrites the file once.
func (b *FileBackend) WriteBatch(e Edit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.ApplyTo(b.data)
	return b.save()
}
