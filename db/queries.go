package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/thatsimonsguy/gate-remote/internal/model"
)

// GetSetting returns the stored value and whether the key exists.
func GetSetting(db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// GetRecentOperations returns up to limit operations, newest first.
func GetRecentOperations(db *sql.DB, limit int) ([]model.Operation, error) {
	rows, err := db.Query(`SELECT id, kind, outcome, gate_state, error_kind, message, timeout_remaining_ms, started_at, finished_at
		FROM operations ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []model.Operation
	for rows.Next() {
		var op model.Operation
		var kind, outcome string
		var gateState, errorKind, message sql.NullString
		var timeoutRemaining sql.NullInt64
		var startedAt, finishedAt string

		err = rows.Scan(&op.ID, &kind, &outcome, &gateState, &errorKind, &message, &timeoutRemaining, &startedAt, &finishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		op.Kind = model.OperationKind(kind)
		op.Outcome = model.OperationOutcome(outcome)
		op.GateState = model.GateState(gateState.String)
		op.ErrorKind = errorKind.String
		op.Message = message.String
		op.TimeoutRemainingMs = timeoutRemaining.Int64
		op.StartedAt, _ = time.Parse(timeLayout, startedAt)
		op.FinishedAt, _ = time.Parse(timeLayout, finishedAt)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
