package cache

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test cache store
func createTestStore(t *testing.T) *Store {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "cache.db")
	store, err := New(dbPath, nil)
	require.NoError(t, err, "should create cache store")
	t.Cleanup(func() { store.Close() })
	return store
}

type version struct {
	ID      int    `json:"id"`
	Version string `json:"version"`
}

// TestSaveLoad_RoundTrip verifies a saved value is loaded back unchanged
func TestSaveLoad_RoundTrip(t *testing.T) {
	store := createTestStore(t)

	require.NoError(t, store.Save(KeyAPIVersion, version{ID: 1, Version: "2.3"}))

	got, ok := Load[version](store, KeyAPIVersion)
	require.True(t, ok)
	assert.Equal(t, version{ID: 1, Version: "2.3"}, got)
}

// TestSave_Overwrites verifies saving twice keeps the latest value
func TestNew_CreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), ".campus", "cache.db")

	store, err := New(dsn, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save("k", 1))
	assert.FileExists(t, dsn)
}

func TestSave_Overwrites(t *testing.T) {
	store := createTestStore(t)

	require.NoError(t, store.Save("k", "first"))
	require.NoError(t, store.Save("k", "second"))

	got, ok := Load[string](store, "k")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestLoad_Missing(t *testing.T) {
	store := createTestStore(t)

	got, ok := Load[version](store, "absent")
	assert.False(t, ok)
	assert.Zero(t, got)
}

// TestLoad_TypeMismatchIsSoftFailure verifies a payload of another shape is
// reported as absent
func TestLoad_TypeMismatchIsSoftFailure(t *testing.T) {
	store := createTestStore(t)
	require.NoError(t, store.Save("k", []string{"a", "b"}))

	got, ok := Load[version](store, "k")
	assert.False(t, ok)
	assert.Zero(t, got)

	list, ok := Load[[]string](store, "k")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, list)
}

func TestLoad_AfterCloseIsSoftFailure(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Save("k", 1))
	require.NoError(t, store.Close())

	_, ok := Load[int](store, "k")
	assert.False(t, ok)
}

func TestSave_UnencodableValue(t *testing.T) {
	store := createTestStore(t)

	err := store.Save("nan", math.NaN())

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "nan", storageErr.Key)
}

// TestDelete_Idempotent verifies deleting absent keys succeeds
func TestDelete_Idempotent(t *testing.T) {
	store := createTestStore(t)
	require.NoError(t, store.Save("k", 1))

	require.NoError(t, store.Delete("k"))
	require.NoError(t, store.Delete("k"))

	_, ok := Load[int](store, "k")
	assert.False(t, ok)
}

func TestDelete_ClosedStore(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	var storageErr *StorageError
	assert.ErrorAs(t, store.Delete("k"), &storageErr)
}

func TestKeysAndClear(t *testing.T) {
	store := createTestStore(t)
	require.NoError(t, store.Save("b", 2))
	require.NoError(t, store.Save("a", 1))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, store.Clear())
	keys, err = store.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// TestStore_Persists verifies entries survive reopening the database
func TestStore_Persists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	store, err := New(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(KeyAPIVersion, version{ID: 7, Version: "1.0"}))
	require.NoError(t, store.Close())

	reopened, err := New(dbPath, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := Load[version](reopened, KeyAPIVersion)
	require.True(t, ok)
	assert.Equal(t, 7, got.ID)
}

func TestMemoryStore(t *testing.T) {
	store, err := New(MemoryDSN, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save("k", true))
	got, ok := Load[bool](store, "k")
	require.True(t, ok)
	assert.True(t, got)
}
