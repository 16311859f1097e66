// Package app assembles the gate client stack from a loaded config. Both the
// daemon and the CLI build on it.
package app

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/db"
	"github.com/thatsimonsguy/gate-remote/internal/config"
	"github.com/thatsimonsguy/gate-remote/internal/credentials"
	"github.com/thatsimonsguy/gate-remote/internal/gateapi"
	"github.com/thatsimonsguy/gate-remote/internal/health"
	"github.com/thatsimonsguy/gate-remote/internal/history"
	"github.com/thatsimonsguy/gate-remote/internal/orchestrator"
	"github.com/thatsimonsguy/gate-remote/internal/transport"
)

type Stack struct {
	Conn         *sql.DB
	Credentials  *credentials.Store
	Durations    *credentials.Durations
	Gate         *gateapi.Adapter
	Prober       *health.Prober
	History      *history.Recorder
	Orchestrator *orchestrator.Orchestrator
}

// Build opens the database, seeds credentials from the config and wires the
// transport, adapter, prober and orchestrator. The orchestrator is not started.
func Build(cfg *config.Config, opts ...orchestrator.Option) (*Stack, error) {
	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	seeds := map[string]string{
		credentials.KeyAPIURL:      cfg.APIURL,
		credentials.KeyBearerToken: cfg.BearerToken,
	}
	if err := db.SeedSettings(conn, seeds); err != nil {
		conn.Close()
		return nil, fmt.Errorf("seed credentials: %w", err)
	}

	store := credentials.NewStore(conn)
	durations := credentials.NewDurations(store, cfg.OpeningSeconds, cfg.ClosingSeconds)
	client := transport.NewClient(store, time.Duration(cfg.RequestTimeoutSeconds)*time.Second)
	adapter := gateapi.New(client)
	recorder := history.NewRecorder(conn, history.DefaultKeep)

	opts = append([]orchestrator.Option{orchestrator.WithRecorder(recorder)}, opts...)

	configured, err := store.Configured()
	if err != nil {
		log.Warn().Err(err).Msg("Could not read stored credentials")
	} else if !configured {
		log.Warn().Msg("Gate API URL or bearer token not set; gate commands will be refused until configured")
	}

	return &Stack{
		Conn:         conn,
		Credentials:  store,
		Durations:    durations,
		Gate:         adapter,
		Prober:       health.NewProber(adapter),
		History:      recorder,
		Orchestrator: orchestrator.New(adapter, durations, opts...),
	}, nil
}

// Close shuts the orchestrator down and releases the database.
func (s *Stack) Close() {
	s.Orchestrator.Shutdown()
	if err := s.Conn.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}
