package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Commit after Close.
var ErrClosed = errors.New("preference store closed")

type cacheEntry struct {
	value   string
	present bool
}

// Shared provides cached access to a Backend. Reads hit the backend once per
// key; Apply updates the cache and leaves persistence to a background flusher.
type Shared struct {
	backend Backend
	delay   time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	cache   map[string]cacheEntry
	pending []Op
	closed  bool

	// writeMu serializes backend writes between the flusher and Commit.
	writeMu sync.Mutex

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewShared creates a Shared store over backend and starts its flusher.
// If flushDelay is <= 0, it defaults to 100ms.
func NewShared(backend Backend, flushDelay time.Duration) *Shared {
	if flushDelay <= 0 {
		flushDelay = 100 * time.Millisecond
	}
	s := &Shared{
		backend: backend,
		delay:   flushDelay,
		logger:  slog.Default(),
		cache:   make(map[string]cacheEntry),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// GetString returns the value stored under key, or def when the key is
// absent or the backend cannot be read.
func (s *Shared) GetString(key, def string) string {
	s.mu.Lock()
	e, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		if e.present {
			return e.value
		}
		return def
	}

	v, present, err := s.backend.GetString(key)
	if err != nil {
		s.logger.Warn("reading preference failed, using default", "key", key, "error", err)
		return def
	}

	s.mu.Lock()
	// An Apply may have landed while the backend was read; it wins.
	if cur, ok := s.cache[key]; ok {
		e = cur
	} else {
		e = cacheEntry{value: v, present: present}
		s.cache[key] = e
	}
	s.mu.Unlock()

	if e.present {
		return e.value
	}
	return def
}

// Apply makes e visible to readers immediately and queues it for persistence.
func (s *Shared) Apply(e Edit) {
	if e.Empty() {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("apply after close, edit dropped", "ops", len(e.Ops))
		return
	}
	s.record(e)
	s.mu.Unlock()
	s.signal()
}

// Commit makes e visible and persists it, together with anything queued by
// earlier Apply calls, before returning.
func (s *Shared) Commit(e Edit) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.record(e)
	s.mu.Unlock()
	return s.flush()
}

// Pending returns the number of operations not yet persisted.
func (s *Shared) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops the flusher after a final flush and returns its error.
func (s *Shared) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	<-s.done
	return s.flush()
}

// record must be called with s.mu held.
func (s *Shared) record(e Edit) {
	for _, op := range e.Ops {
		switch op.Kind {
		case OpPut:
			s.cache[op.Key] = cacheEntry{value: op.Value, present: true}
		case OpRemove:
			s.cache[op.Key] = cacheEntry{}
		}
	}
	s.pending = append(s.pending, e.Ops...)
}

func (s *Shared) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		// Let bursts of Apply calls coalesce into one write.
		select {
		case <-s.stop:
			return
		case <-time.After(s.delay):
		}

		if err := s.flush(); err != nil {
			s.logger.Warn("flushing preferences failed, will retry", "error", err, "after", s.delay)
			s.signal()
		}
	}
}

// signal wakes the flusher without blocking.
func (s *Shared) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Shared) flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	ops := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	batch := Edit{Ops: ops}.compact()
	if err := s.write(batch); err != nil {
		s.mu.Lock()
		s.pending = append(batch.Ops, s.pending...)
		s.mu.Unlock()
		return err
	}
	s.logger.Debug("preferences flushed", "ops", len(batch.Ops))
	return nil
}

func (s *Shared) write(e Edit) error {
	if bw, ok := s.backend.(BatchWriter); ok {
		return bw.WriteBatch(e)
	}
	for _, op := range e.Ops {
		var err error
		switch op.Kind {
		case OpPut:
			err = s.backend.SetString(op.Key, op.Value)
		case OpRemove:
			err = s.backend.Delete(op.Key)
		}
		if err != nil {
			return fmt.Errorf("writing %s of %q: %w", op.Kind, op.Key, err)
		}
	}
	return nil
}
