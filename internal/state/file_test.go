package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish_state.json")
	published := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	store := NewFileStore(path)
	require.NoError(t, store.Load())

	_, ok := store.Get("decrypt", "gaming")
	assert.False(t, ok)

	require.NoError(t, store.Update("decrypt", "gaming", published))

	reloaded := NewFileStore(path)
	require.NoError(t, reloaded.Load())
	got, ok := reloaded.Get("decrypt", "gaming")
	require.True(t, ok)
	assert.True(t, got.Equal(published))
}

func TestFileStore_PersistedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish_state.json")
	store := NewFileStore(path)
	require.NoError(t, store.Load())
	require.NoError(t, store.Update("decrypt", "coins", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// The file is a plain JSON object of objects with RFC 3339 timestamps.
	var doc map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2025-03-10T12:00:00Z", doc["decrypt"]["coins"])
}

func TestFileStore_MissingFileBootstrapsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, store.Load())
	_, ok := store.Get("decrypt", "gaming")
	assert.False(t, ok)
}

func TestFileStore_CorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewFileStore(path)
	require.NoError(t, store.Load())
	_, ok := store.Get("decrypt", "gaming")
	assert.False(t, ok)

	// A later update still persists a valid document.
	require.NoError(t, store.Update("decrypt", "gaming", time.Now().UTC()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestFileStore_UpdateKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish_state.json")
	store := NewFileStore(path)
	require.NoError(t, store.Load())

	t1 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	require.NoError(t, store.Update("decrypt", "gaming", t1))
	require.NoError(t, store.Update("beincrypto", "press release", t2))

	got, ok := store.Get("decrypt", "gaming")
	require.True(t, ok)
	assert.True(t, got.Equal(t1))
	got, ok = store.Get("beincrypto", "press release")
	require.True(t, ok)
	assert.True(t, got.Equal(t2))
}
