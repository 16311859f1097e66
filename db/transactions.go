package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/gate-remote/internal/model"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// fixed width so that string ordering in SQL matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func SetSetting(db *sql.DB, key, value string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value, now())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("update setting %s: %w", key, err)
	}
	return tx.Commit()
}

func DeleteSettings(db *sql.DB, keys ...string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	for _, key := range keys {
		if _, err := tx.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
			tx.Rollback()
			return fmt.Errorf("delete setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func RecordOperation(db *sql.DB, op model.Operation) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO operations (id, kind, outcome, gate_state, error_kind, message, timeout_remaining_ms, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, string(op.Kind), string(op.Outcome), string(op.GateState), op.ErrorKind, op.Message, op.TimeoutRemainingMs,
		op.StartedAt.UTC().Format(timeLayout), op.FinishedAt.UTC().Format(timeLayout))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert operation %s: %w", op.ID, err)
	}
	return tx.Commit()
}

// PruneOperations keeps only the newest keep rows of the history.
func PruneOperations(db *sql.DB, keep int) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("start transaction: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM operations WHERE id NOT IN (
		SELECT id FROM operations ORDER BY finished_at DESC LIMIT ?)`, keep)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prune operations: %w", err)
	}
	removed, _ := result.RowsAffected()
	return removed, tx.Commit()
}
