// Package cache is a small persistent key/value store for portal data that
// should survive restarts, such as the last seen API version.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/campus/logger"
	"go.uber.org/zap"
)

// KeyAPIVersion holds the last known portal API version.
const KeyAPIVersion = "apiVersion"

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// StorageError reports a failed write or delete of a cache entry.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to store cache entry %q: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store manages cached values using SQLite. Values are stored as JSON.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New creates a cache store with the given database path. The directory of a
// plain file path is created if missing.
func New(dsn string, log *zap.Logger) (*Store, error) {
	if dsn != MemoryDSN && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: gets its own database.
	if dsn == MemoryDSN {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, log: logger.OrNop(log).With(zap.String("component", "cache"))}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the cache table if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores value under key, replacing any previous entry.
func (s *Store) Save(key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return &StorageError{Key: key, Err: err}
	}

	query := "INSERT OR REPLACE INTO cache (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)"
	if _, err := s.db.Exec(query, key, payload); err != nil {
		return &StorageError{Key: key, Err: err}
	}
	return nil
}

// Load returns the value stored under key. Missing entries, read failures
// and payloads that do not decode as T all report ok == false; the latter
// two are logged at debug level.
func Load[T any](s *Store, key string) (T, bool) {
	var zero T

	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM cache WHERE key = ?", key).Scan(&payload)
	if err == sql.ErrNoRows {
		return zero, false
	}
	if err != nil {
		s.log.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}

	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		s.log.Debug("cache entry does not decode", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", zero)), zap.Error(err))
		return zero, false
	}
	return value, true
}

// Delete removes the entry under key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM cache WHERE key = ?", key); err != nil {
		return &StorageError{Key: key, Err: err}
	}
	return nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM cache"); err != nil {
		return &StorageError{Key: "*", Err: err}
	}
	return nil
}

// Keys lists stored keys in lexical order.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM cache ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
