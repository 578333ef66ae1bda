// Package store provides the durable SQLite cache behind showdeck.
//
// The store owns three tables:
//   - records: one row per show, keyed by the upstream identifier
//   - favorites: ids of shows the user follows
//   - saved: ids of shows the user bookmarked
//
// Both membership tables reference records(id) with ON DELETE CASCADE, so
// removing a show removes its memberships.
//
// The database runs the pure-Go ncruces driver with WAL and a busy timeout,
// which lets concurrent readers proceed while writers are serialized by SQLite.
//
// Schema creation is lazy: every operation makes sure the schema exists first,
// and concurrent first callers share a single in-flight initialization.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"golang.org/x/sync/singleflight"
)

// Config holds tuning for the store.
type Config struct {
	// Workers bounds how many upserts of one batch run at the same time.
	Workers int

	// MaxOpenConns caps the connection pool.
	MaxOpenConns int

	// Logger receives per-record batch failures.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:      4,
		MaxOpenConns: 25,
		Logger:       log.New(os.Stderr, "[store] ", log.LstdFlags),
	}
}

// DB wraps the SQLite connection pool.
type DB struct {
	conn   *sql.DB
	path   string
	config *Config

	initGroup  singleflight.Group
	ready      atomic.Bool
	schemaRuns atomic.Int32
}

// Open creates a connection to the database file at path, creating parent
// directories as needed. The schema is created on first use.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	return OpenWithConfig(path, DefaultConfig())
}

// OpenWithConfig opens the database with custom configuration.
func OpenWithConfig(path string, config *Config) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 25
	}

	filePath := strings.TrimPrefix(path, "file:")
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them,
	// foreign_keys in particular is per connection.
	dsn := "file:" + filePath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_txlock=immediate"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		conn:   conn,
		path:   filePath,
		config: config,
	}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close checkpoints the WAL and closes the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		db.config.Logger.Printf("Warning: failed to checkpoint WAL: %v", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	rank INTEGER,
	title TEXT,
	image TEXT,
	rating REAL,
	votes INTEGER,
	releaseDate TEXT,
	plot TEXT,
	titleGenres TEXT, -- JSON array
	episodes INTEGER,
	seasons INTEGER,
	trailer TEXT
);

CREATE TABLE IF NOT EXISTS favorites (
	id TEXT PRIMARY KEY REFERENCES records(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS saved (
	id TEXT PRIMARY KEY REFERENCES records(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_records_rank ON records(rank);
CREATE INDEX IF NOT EXISTS idx_records_releaseDate ON records(releaseDate);
CREATE INDEX IF NOT EXISTS idx_records_title ON records(title);
`

// InitSchema creates the schema if it does not exist. Safe to call repeatedly.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	return db.ensureSchema(ctx)
}

// ensureSchema runs schema creation once. Concurrent callers wait on the same
// in-flight run; a failed run leaves the store uninitialized so the next
// caller retries.
func (db *DB) ensureSchema(ctx context.Context) error {
	if db.ready.Load() {
		return nil
	}

	// The shared run must not die with whichever caller happened to start it.
	runCtx := context.WithoutCancel(ctx)
	_, err, _ := db.initGroup.Do("schema", func() (interface{}, error) {
		if db.ready.Load() {
			return nil, nil
		}
		db.schemaRuns.Add(1)
		if _, err := db.conn.ExecContext(runCtx, schemaSQL); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		db.ready.Store(true)
		return nil, nil
	})
	return err
}
