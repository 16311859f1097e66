// Package history persists a bounded log of gate operations.
package history

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/db"
	"github.com/thatsimonsguy/gate-remote/internal/model"
)

const DefaultKeep = 500

type Recorder struct {
	conn *sql.DB
	keep int
}

func NewRecorder(conn *sql.DB, keep int) *Recorder {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Recorder{conn: conn, keep: keep}
}

// Record stores op, assigning an ID if it has none, and prunes rows beyond
// the retention limit. Failures are logged; history never blocks the gate.
func (r *Recorder) Record(op model.Operation) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}

	if err := db.RecordOperation(r.conn, op); err != nil {
		log.Error().Err(err).Str("kind", string(op.Kind)).Msg("Failed to record gate operation")
		return
	}

	pruned, err := db.PruneOperations(r.conn, r.keep)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to prune operation history")
		return
	}
	if pruned > 0 {
		log.Debug().Int64("pruned", pruned).Msg("Pruned operation history")
	}
}

func (r *Recorder) Recent(limit int) ([]model.Operation, error) {
	if limit <= 0 || limit > r.keep {
		limit = r.keep
	}
	return db.GetRecentOperations(r.conn, limit)
}
