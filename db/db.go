package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS operations (
	id                   TEXT PRIMARY KEY,
	kind                 TEXT NOT NULL,
	outcome              TEXT NOT NULL,
	gate_state           TEXT,
	error_kind           TEXT,
	message              TEXT,
	timeout_remaining_ms INTEGER DEFAULT 0,
	started_at           TEXT NOT NULL,
	finished_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS operations_finished_at ON operations (finished_at);
`

// Open opens (creating if needed) the SQLite database at dbPath and applies the schema.
func Open(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases coherent and serializes writers
	conn.SetMaxOpenConns(1)

	if err := ApplySchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func ApplySchema(conn *sql.DB) error {
	if _, err := conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SeedSettings writes each key/value only when the key has no stored value yet,
// so values saved at runtime survive restarts.
func SeedSettings(conn *sql.DB, seeds map[string]string) error {
	tx, err := StartTransaction(conn)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range seeds {
		if value == "" {
			continue
		}
		_, err = tx.Exec(`INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`, key, value, now())
		if err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}

	if err := CommitTransaction(tx); err != nil {
		return err
	}

	log.Debug().Int("seeds", len(seeds)).Msg("Settings seeded from config")
	return nil
}
