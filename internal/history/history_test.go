package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/gate-remote/db"
	"github.com/thatsimonsguy/gate-remote/internal/model"
)

func TestRecorder_AssignsIDsAndPrunes(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	rec := NewRecorder(conn, 3)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec.Record(model.Operation{
			Kind:       model.OperationRefresh,
			Outcome:    model.OutcomeSucceeded,
			GateState:  model.GateClosed,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		})
	}

	ops, err := rec.Recent(0)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	// newest first
	assert.Equal(t, base.Add(4*time.Minute+time.Second), ops[0].FinishedAt.UTC())
	assert.Equal(t, base.Add(2*time.Minute+time.Second), ops[2].FinishedAt.UTC())
	for _, op := range ops {
		assert.Len(t, op.ID, 36)
	}
}

func TestRecorder_KeepsGivenID(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	rec := NewRecorder(conn, 0)
	now := time.Now().UTC()
	rec.Record(model.Operation{
		ID:         "fixed-id",
		Kind:       model.OperationOpen,
		Outcome:    model.OutcomeFailed,
		ErrorKind:  "server_rejected",
		Message:    "bad token",
		StartedAt:  now,
		FinishedAt: now,
	})

	ops, err := rec.Recent(10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "fixed-id", ops[0].ID)
	assert.Equal(t, "bad token", ops[0].Message)
	assert.Equal(t, DefaultKeep, rec.keep)
}
