// Package storage persists engine snapshots to SQLite between runs.
//
// The engine itself stays in-memory; this layer only saves and restores its
// snapshot value at the process boundary.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/insightd/internal/engine"
)

// Store wraps a SQLite database holding the latest engine snapshot.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) a SQLite database in dataDir and ensures the
// schema. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "insightd.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db, logger: logger.Named("storage")}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		saved_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`)
	return err
}

// SaveSnapshot replaces the stored snapshot with the given one.
func (s *Store) SaveSnapshot(snap engine.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO snapshots (id, saved_at, payload) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, payload = excluded.payload`,
		time.Now().UTC().Format(time.RFC3339), payload)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	s.logger.Debug("snapshot saved", zap.Int("bytes", len(payload)))
	return nil
}

// LoadSnapshot returns the stored snapshot. A missing or corrupt snapshot is
// not an error: the engine starts fresh, and corruption is logged.
func (s *Store) LoadSnapshot() (engine.Snapshot, bool) {
	var savedAt string
	var payload []byte
	err := s.db.QueryRow(`SELECT saved_at, payload FROM snapshots WHERE id = 1`).Scan(&savedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Snapshot{}, false
	}
	if err != nil {
		s.logger.Warn("reading snapshot failed, starting fresh", zap.Error(err))
		return engine.Snapshot{}, false
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		s.logger.Warn("snapshot corrupt, starting fresh",
			zap.String("saved_at", savedAt),
			zap.Error(err))
		return engine.Snapshot{}, false
	}
	return snap, true
}
