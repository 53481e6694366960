package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store standing in for the database tier.
type fakeStore struct {
	entries map[string]Entry
	findErr error
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]Entry)}
}

func (s *fakeStore) FindByKey(key string) (*Entry, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *fakeStore) Save(entry *Entry) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries[entry.Key] = *entry
	return nil
}

func TestGetMissOnUnsetKey(t *testing.T) {
	c := New(newFakeStore(), time.Hour)

	lookup, err := c.Get("nope")
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
}

func TestPutThenGetFresh(t *testing.T) {
	store := newFakeStore()
	c := New(store, time.Hour)

	require.NoError(t, c.Put("k1", `{"x":1}`))

	lookup, err := c.Get("k1")
	require.NoError(t, err)
	assert.True(t, lookup.Hit)
	assert.True(t, lookup.Fresh)
	assert.Equal(t, `{"x":1}`, lookup.Payload)

	// The persisted tier saw the write too.
	persisted, err := store.FindByKey("k1")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, `{"x":1}`, persisted.Payload)
	assert.WithinDuration(t, time.Now().Add(time.Hour), persisted.ExpiresAt, 2*time.Second)
}

func TestPutOverwriteLastWriteWins(t *testing.T) {
	c := New(newFakeStore(), time.Hour)

	require.NoError(t, c.Put("k", "first"))
	require.NoError(t, c.Put("k", "second"))

	lookup, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "second", lookup.Payload)
}

func TestExpiryBoundary(t *testing.T) {
	store := newFakeStore()
	c := New(store, time.Hour)

	// Just short of expiry: fresh.
	store.entries["soon"] = Entry{Key: "soon", Payload: "p", ExpiresAt: time.Now().Add(50 * time.Millisecond)}
	lookup, err := c.Get("soon")
	require.NoError(t, err)
	assert.True(t, lookup.Hit)
	assert.True(t, lookup.Fresh)

	// Just past expiry: stale, but the payload survives.
	store.entries["past"] = Entry{Key: "past", Payload: "old", ExpiresAt: time.Now().Add(-time.Millisecond)}
	lookup, err = c.Get("past")
	require.NoError(t, err)
	assert.True(t, lookup.Hit)
	assert.False(t, lookup.Fresh)
	assert.Equal(t, "old", lookup.Payload)
}

func TestGetRefillsMemoryFromStore(t *testing.T) {
	store := newFakeStore()
	store.entries["k"] = Entry{Key: "k", Payload: "persisted", ExpiresAt: time.Now().Add(time.Hour)}
	c := New(store, time.Hour)

	first, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, first.Hit)

	// Remove the persisted row; the memory tier must now answer alone.
	delete(store.entries, "k")
	second, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, second.Hit)
	assert.Equal(t, "persisted", second.Payload)
}

func TestGetPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("db down")
	c := New(store, time.Hour)

	_, err := c.Get("k")
	assert.Error(t, err)
}

func TestPutKeepsMemoryOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db down")
	c := New(store, time.Hour)

	assert.Error(t, c.Put("k", "v"))

	// The current process still benefits from the memory tier.
	lookup, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, lookup.Hit)
	assert.Equal(t, "v", lookup.Payload)
}
