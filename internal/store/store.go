// Package store caches assembled briefs in SQLite, keyed by calendar date
// and request parameters.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"execbrief/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed brief cache.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store instance, creating the database file under
// dataDir if needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "execbrief.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	briefsTable := `
	CREATE TABLE IF NOT EXISTS briefs (
		cache_key TEXT PRIMARY KEY,
		brief_date TEXT,
		time_range TEXT,
		payload TEXT,
		generated_at DATETIME
	);`

	if _, err := s.db.Exec(briefsTable); err != nil {
		return fmt.Errorf("failed to create briefs table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertBrief writes a brief under its cache key. The write is a whole
// object upsert: recomputing and overwriting same-day data is safe, and
// last writer wins on a concurrent recompute.
func (s *Store) UpsertBrief(cacheKey string, brief *core.Brief) error {
	payload, err := json.Marshal(brief)
	if err != nil {
		return fmt.Errorf("failed to encode brief: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO briefs (cache_key, brief_date, time_range, payload, generated_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query,
		cacheKey,
		brief.GeneratedAt.Format("2006-01-02"),
		brief.TimeRange,
		string(payload),
		brief.GeneratedAt,
	)
	return err
}

// GetBrief retrieves a cached brief no older than maxAge. A cache miss
// returns (nil, nil).
func (s *Store) GetBrief(cacheKey string, maxAge time.Duration) (*core.Brief, error) {
	query := `
	SELECT payload FROM briefs
	WHERE cache_key = ? AND generated_at > ?`

	cutoff := time.Now().UTC().Add(-maxAge)
	row := s.db.QueryRow(query, cacheKey, cutoff)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan brief: %w", err)
	}

	var brief core.Brief
	if err := json.Unmarshal([]byte(payload), &brief); err != nil {
		return nil, fmt.Errorf("failed to decode cached brief: %w", err)
	}
	return &brief, nil
}

// Stats returns statistics about the brief cache.
func (s *Store) Stats() (*core.CacheStats, error) {
	stats := &core.CacheStats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM briefs").Scan(&stats.BriefCount); err != nil {
		return nil, fmt.Errorf("failed to count briefs: %w", err)
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.CacheSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}

// CleanupOldBriefs removes briefs generated before the retention window.
func (s *Store) CleanupOldBriefs(maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)
	if _, err := s.db.Exec("DELETE FROM briefs WHERE generated_at < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean old briefs: %w", err)
	}
	return nil
}
