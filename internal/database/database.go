package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection pool for the timeslots table.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	// ErrSlotUnavailable is returned by BookSlot when the slot does not
	// exist or is already booked. The two causes are deliberately not
	// distinguished.
	ErrSlotUnavailable = errors.New("slot is already booked or does not exist")

	// ErrNotBooked is returned by CancelSlot when the slot does not exist
	// or holds no booking.
	ErrNotBooked = errors.New("no booked appointment found for this slot")
)

// NewDB opens the database and bootstraps the schema.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL for concurrent readers, busy timeout so writers queue instead of
	// failing, and immediate transactions so book/cancel take the write
	// lock before their precondition check.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:     db,
		logger: logger,
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS timeslots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			is_booked BOOLEAN NOT NULL DEFAULT 0,
			customer_name TEXT,
			customer_email TEXT,
			customer_phone TEXT
		)`,

		// Re-running generation for a day must never duplicate a slot.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_timeslots_date_start ON timeslots(date, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_timeslots_date_booked ON timeslots(date, is_booked)`,
		`CREATE INDEX IF NOT EXISTS idx_timeslots_booked ON timeslots(is_booked)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
