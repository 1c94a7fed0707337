package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// alertsKey is the fixed key the alert list lives under. The whole list is
// stored as one JSON array and rewritten on every mutation.
const alertsKey = "fxwatch-alerts"

// Store implements the ports.AlertStore interface on a SQLite key-value table.
type Store struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite store.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewStore creates a new SQLite store instance.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite store")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/fxwatch.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{db: db, logger: cfg.Logger}

	if err := store.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite store ready", map[string]interface{}{"path": dbPath})

	return store, nil
}

// initializeSchema creates the key-value table if it doesn't exist.
func (s *Store) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS local_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating local_state table: %w", err)
	}
	return nil
}

// LoadAlerts retrieves the stored alert list. An empty store yields an empty
// slice.
func (s *Store) LoadAlerts(ctx context.Context) ([]*domain.Alert, error) {
	op := "LoadAlerts"
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_state WHERE key = ?`, alertsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []*domain.Alert{}, nil
	}
	if err != nil {
		err = fmt.Errorf("%s failed: %w: %w", op, ports.ErrQueryFailed, err)
		s.logger.Error(ctx, err, "failed to read alert list")
		return nil, err
	}

	var alerts []*domain.Alert
	if err := json.Unmarshal([]byte(raw), &alerts); err != nil {
		// A corrupt value is unrecoverable; surface it rather than silently
		// dropping the user's alerts.
		err = fmt.Errorf("%s failed: %w: stored alert list is not valid JSON: %w", op, ports.ErrQueryFailed, err)
		s.logger.Error(ctx, err, "failed to decode alert list")
		return nil, err
	}
	if alerts == nil {
		alerts = []*domain.Alert{}
	}
	s.logger.Debug(ctx, op+" successful", map[string]interface{}{"count": len(alerts)})
	return alerts, nil
}

// SaveAlerts replaces the stored alert list.
func (s *Store) SaveAlerts(ctx context.Context, alerts []*domain.Alert) error {
	op := "SaveAlerts"
	if alerts == nil {
		alerts = []*domain.Alert{}
	}
	raw, err := json.Marshal(alerts)
	if err != nil {
		err = fmt.Errorf("%s failed: %w: %w", op, ports.ErrUpdateFailed, err)
		s.logger.Error(ctx, err, "failed to encode alert list")
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		alertsKey, string(raw), time.Now().UTC())
	if err != nil {
		err = fmt.Errorf("%s failed: %w: %w", op, ports.ErrUpdateFailed, err)
		s.logger.Error(ctx, err, "failed to write alert list")
		return err
	}
	s.logger.Debug(ctx, op+" successful", map[string]interface{}{"count": len(alerts)})
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
