// Package poller keeps the displayed gate state fresh by refreshing it on a
// fixed interval while the gate is idle.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/internal/orchestrator"
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

var after = time.After

// Run starts the poll loop in the background and returns a channel closed
// when it exits. A non-positive interval disables polling.
func Run(ctx context.Context, r Refresher, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		log.Info().Msg("Gate status polling disabled")
		close(done)
		return done
	}

	go func() {
		defer close(done)
		log.Info().Dur("interval", interval).Msg("Starting gate status poller")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Gate status poller stopped")
				return
			case <-after(interval):
			}

			poll(ctx, r)
		}
	}()
	return done
}

func poll(ctx context.Context, r Refresher) {
	err := r.Refresh(ctx)
	switch {
	case err == nil:
		log.Debug().Msg("Polled gate status")
	case errors.Is(err, orchestrator.ErrBusy):
		log.Debug().Msg("Gate operation in progress, skipping poll")
	case errors.Is(err, orchestrator.ErrSuperseded), errors.Is(err, orchestrator.ErrShutdown):
	default:
		log.Warn().Err(err).Msg("Gate status poll failed")
	}
}
