package persistence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leoherzog/seedless-sub001/internal/kv"
	"github.com/leoherzog/seedless-sub001/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putSnapshot(t *testing.T, backend kv.Store, key string, savedAt int64) {
	t.Helper()
	data, err := json.Marshal(store.Snapshot{SavedAt: savedAt})
	require.NoError(t, err)
	require.NoError(t, backend.Set(key, data))
}

func TestCleanupOld_EvictsOnlySnapshotsOlderThanRetention(t *testing.T) {
	backend := kv.NewMemoryStore()
	a := NewAdapter(backend, "", time.Hour, time.Minute, nil, nil)

	now := time.Now()
	putSnapshot(t, backend, "room:stale", now.Add(-2*time.Hour).UnixMilli())
	putSnapshot(t, backend, "room:fresh", now.UnixMilli())

	a.CleanupOld()

	_, err := backend.Get("room:stale")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = backend.Get("room:fresh")
	assert.NoError(t, err)
}

func TestCleanupOld_IgnoresCorruptEntriesRatherThanDeletingThem(t *testing.T) {
	backend := kv.NewMemoryStore()
	a := NewAdapter(backend, "", time.Hour, time.Minute, nil, nil)
	require.NoError(t, backend.Set("room:corrupt", []byte("not json")))

	a.CleanupOld()

	_, err := backend.Get("room:corrupt")
	assert.NoError(t, err, "a snapshot that fails to decode should be left alone, not treated as expired")
}

func TestLoad_EvictsAndReturnsFalseOnceRetentionElapses(t *testing.T) {
	backend := kv.NewMemoryStore()
	a := NewAdapter(backend, "", time.Hour, time.Minute, nil, nil)
	putSnapshot(t, backend, a.roomKey("room1"), time.Now().Add(-2*time.Hour).UnixMilli())

	_, ok := a.Load("room1")

	assert.False(t, ok)
	_, err := backend.Get(a.roomKey("room1"))
	assert.ErrorIs(t, err, kv.ErrNotFound, "Load must evict the stale entry as a side effect")
}
