package shutdown

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/internal/datadog"
)

const gracePeriod = 5 * time.Second

var exit = os.Exit

type Stopper interface {
	Shutdown()
}

// Graceful stops accepting API requests, tears down the orchestrator and its
// countdown, then flushes metrics and closes the database. Nil arguments are skipped.
func Graceful(server *http.Server, gate Stopper, conn *sql.DB) {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), gracePeriod)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("REST API server did not shut down cleanly")
		}
	}

	if gate != nil {
		gate.Shutdown()
	}

	datadog.Close()

	if conn != nil {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
	log.Info().Msg("Gate remote stopped")
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	exit(1)
}
