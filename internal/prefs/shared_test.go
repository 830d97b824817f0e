package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// countingBackend wraps a MemoryBackend and records reads and write failures.
type countingBackend struct {
	*MemoryBackend
	reads    atomic.Int32
	setCalls atomic.Int32
	failSet  atomic.Bool
	readErr  error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{MemoryBackend: NewMemoryBackend()}
}

func (c *countingBackend) GetString(key string) (string, bool, error) {
	c.reads.Add(1)
	if c.readErr != nil {
		return "", false, c.readErr
	}
	return c.MemoryBackend.GetString(key)
}

func (c *countingBackend) SetString(key, val string) error {
	c.setCalls.Add(1)
	if c.failSet.Load() {
		return errors.New("disk full")
	}
	return c.MemoryBackend.SetString(key, val)
}

// batchBackend records each WriteBatch call.
type batchBackend struct {
	*MemoryBackend
	mu      sync.Mutex
	batches []Edit
}

func (b *batchBackend) WriteBatch(e Edit) error {
	b.mu.Lock()
	b.batches = append(b.batches, e)
	b.mu.Unlock()
	for _, op := range e.Ops {
		if op.Kind == OpPut {
			b.MemoryBackend.SetString(op.Key, op.Value)
		} else {
			b.MemoryBackend.Delete(op.Key)
		}
	}
	return nil
}

func newTestShared(t *testing.T, b Backend) *Shared {
	t.Helper()
	s := NewShared(b, 5*time.Millisecond)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestShared_GetStringDefault(t *testing.T) {
	s := newTestShared(t, NewMemoryBackend())
	assert.Equal(t, "fallback", s.GetString("nama", "fallback"))
	assert.Equal(t, "", s.GetString("nama", ""))
}

func TestShared_CachesAfterFirstRead(t *testing.T) {
	b := newCountingBackend()
	b.MemoryBackend.SetString("nama", "Ana")
	s := newTestShared(t, b)

	for i := 0; i < 5; i++ {
		assert.Equal(t, "Ana", s.GetString("nama", ""))
	}
	assert.Equal(t, int32(1), b.reads.Load())

	// Absence is cached too.
	s.GetString("email", "")
	s.GetString("email", "")
	assert.Equal(t, int32(2), b.reads.Load())
}

func TestShared_ReadErrorReturnsDefault(t *testing.T) {
	b := newCountingBackend()
	b.readErr = errors.New("permission denied")
	s := newTestShared(t, b)

	assert.Equal(t, "def", s.GetString("nama", "def"))
	assert.Equal(t, "def", s.GetString("nama", "def"))
	assert.Equal(t, int32(2), b.reads.Load(), "failed reads must not be cached")
}

func TestShared_ApplyVisibleImmediately(t *testing.T) {
	b := NewMemoryBackend()
	s := NewShared(b, time.Hour)
	defer s.Close()

	var e Edit
	e.Put("nama", "Ana").Put("email", "ana@x.com")
	s.Apply(e)

	assert.Equal(t, "Ana", s.GetString("nama", ""))
	assert.Equal(t, "ana@x.com", s.GetString("email", ""))
	assert.Equal(t, 2, s.Pending())
	assert.Empty(t, b.Snapshot(), "apply must not block on persistence")
}

func TestShared_ApplyPersistsEventually(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestShared(t, b)

	var e Edit
	e.Put("nama", "Ana")
	s.Apply(e)

	require.Eventually(t, func() bool {
		v, ok, _ := b.GetString("nama")
		return ok && v == "Ana"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending())
}

func TestShared_CloseFlushes(t *testing.T) {
	b := NewMemoryBackend()
	s := NewShared(b, time.Hour)

	var e Edit
	e.Put("nama", "Ana").Put("email", "ana@x.com")
	s.Apply(e)
	require.NoError(t, s.Close())

	assert.Equal(t, map[string]string{"nama": "Ana", "email": "ana@x.com"}, b.Snapshot())
	require.NoError(t, s.Close(), "second close is a no-op")
}

func TestShared_CommitIsSynchronous(t *testing.T) {
	b := NewMemoryBackend()
	s := NewShared(b, time.Hour)
	defer s.Close()

	var first Edit
	first.Put("nama", "Ana")
	s.Apply(first)

	var second Edit
	second.Put("email", "ana@x.com")
	require.NoError(t, s.Commit(second))

	assert.Equal(t, map[string]string{"nama": "Ana", "email": "ana@x.com"}, b.Snapshot())
}

func TestShared_CommitAfterClose(t *testing.T) {
	s := NewShared(NewMemoryBackend(), 0)
	require.NoError(t, s.Close())

	var e Edit
	e.Put("nama", "Ana")
	assert.ErrorIs(t, s.Commit(e), ErrClosed)
}

func TestShared_FailedFlushIsRetried(t *testing.T) {
	b := newCountingBackend()
	b.failSet.Store(true)
	s := NewShared(b, time.Hour)

	var e Edit
	e.Put("nama", "Ana")
	err := s.Commit(e)
	require.Error(t, err)
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, "Ana", s.GetString("nama", ""))

	b.failSet.Store(false)
	require.NoError(t, s.Close())
	assert.Equal(t, map[string]string{"nama": "Ana"}, b.MemoryBackend.Snapshot())
}

func TestShared_FlusherRetriesWithoutNewWrites(t *testing.T) {
	b := newCountingBackend()
	b.failSet.Store(true)
	s := newTestShared(t, b)

	var e Edit
	e.Put("nama", "Ana")
	s.Apply(e)

	// Let at least one flush fail, then heal the backend without touching the store.
	require.Eventually(t, func() bool { return b.setCalls.Load() > 0 }, time.Second, time.Millisecond)
	b.failSet.Store(false)

	require.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, map[string]string{"nama": "Ana"}, b.MemoryBackend.Snapshot())
}

func TestShared_UsesBatchWriterAndCompacts(t *testing.T) {
	b := &batchBackend{MemoryBackend: NewMemoryBackend()}
	s := NewShared(b, time.Hour)

	var e1, e2 Edit
	e1.Put("nama", "Ana").Put("email", "ana@x.com")
	e2.Remove("nama").Remove("email")
	s.Apply(e1)
	s.Apply(e2)
	require.NoError(t, s.Close())

	require.Len(t, b.batches, 1)
	assert.Equal(t, []Op{
		{Kind: OpRemove, Key: "nama"},
		{Kind: OpRemove, Key: "email"},
	}, b.batches[0].Ops)
	assert.Empty(t, b.Snapshot())
}

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	b1, err := NewFileBackend(dir, "UserPreferences")
	require.NoError(t, err)
	s1 := NewShared(b1, time.Millisecond)
	var e Edit
	e.Put("nama", "Ana").Put("email", "ana@x.com")
	s1.Apply(e)
	require.NoError(t, s1.Close())

	info, err := os.Stat(filepath.Join(dir, "UserPreferences.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	b2, err := NewFileBackend(dir, "UserPreferences")
	require.NoError(t, err)
	s2 := newTestShared(t, b2)
	assert.Equal(t, "Ana", s2.GetString("nama", ""))
	assert.Equal(t, "ana@x.com", s2.GetString("email", ""))
}

func TestFileBackend_KeepsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	const name = "An\xffa"

	b1, err := NewFileBackend(dir, "UserPreferences")
	require.NoError(t, err)
	s1 := NewShared(b1, time.Hour)
	var e Edit
	e.Put("nama", name).Put("email", "ana@x.com")
	s1.Apply(e)
	require.NoError(t, s1.Close())

	b2, err := NewFileBackend(dir, "UserPreferences")
	require.NoError(t, err)
	v, ok, err := b2.GetString("nama")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, name, v)

	v, _, _ = b2.GetString("email")
	assert.Equal(t, "ana@x.com", v)
}

func TestFileBackend_RoundTripsArbitraryBytes(t *testing.T) {
	dir := t.TempDir()
	rapid.Check(t, func(t *rapid.T) {
		val := string(rapid.SliceOf(rapid.Byte()).Draw(t, "value"))

		b1, err := NewFileBackend(dir, "RoundTrip")
		require.NoError(t, err)
		require.NoError(t, b1.SetString("k", val))

		b2, err := NewFileBackend(dir, "RoundTrip")
		require.NoError(t, err)
		got, ok, err := b2.GetString("k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, val, got)
	})
}

func TestFileBackend_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UserPreferences.json"), []byte("{not json"), 0o600))

	b, err := NewFileBackend(dir, "UserPreferences")
	require.NoError(t, err)
	_, ok, err := b.GetString("nama")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.SetString("nama", "Ana"))
	v, ok, err := b.GetString("nama")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ana", v)
}

func TestFileBackend_DeleteMissingKey(t *testing.T) {
	b, err := NewFileBackend(t.TempDir(), "UserPreferences")
	require.NoError(t, err)
	assert.NoError(t, b.Delete("nama"))
	_, statErr := os.Stat(b.Path())
	assert.True(t, os.IsNotExist(statErr), "deleting a missing key must not create the file")
}

func TestFileBackend_RequiresNamespace(t *testing.T) {
	_, err := NewFileBackend(t.TempDir(), "")
	assert.Error(t, err)
}

func TestEdit_ApplyTo(t *testing.T) {
	m := map[string]string{"nama": "old", "other": "x"}
	var e Edit
	e.Put("nama", "new").Remove("other").Put("email", "a@b.c")
	e.ApplyTo(m)
	assert.Equal(t, map[string]string{"nama": "new", "email": "a@b.c"}, m)
	assert.False(t, e.Empty())
	assert.True(t, Edit{}.Empty())
}
