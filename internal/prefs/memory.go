package prefs

import "sync"

// MemoryBackend keeps a namespace in process memory only.
type MemoryBackend struct {
	mu sync.RWMutex
	kv map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{kv: make(map[string]string)}
}

func (m *MemoryBackend) GetString(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *MemoryBackend) SetString(key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = val
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

// Snapshot returns a copy of the stored keys.
func (m *MemoryBackend) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make(map[string]string, len(m.kv))
	for k, v := range m.kv {
		cp[k] = v
	}
	return cp
}
