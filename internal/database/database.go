package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection shared by the expense repository,
// the preference store and the alarm registry.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

var ErrNotFound = errors.New("not found")

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

// NewDB opens the database at path, applies pending migrations and
// verifies the connection.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := RunMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return &DB{DB: db, path: path, logger: logger}, nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// Check is used by the readiness probe.
func (db *DB) Check(ctx context.Context) error {
	return db.PingContext(ctx)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
