package health

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/internal/datadog"
	"github.com/thatsimonsguy/gate-remote/internal/model"
	"github.com/thatsimonsguy/gate-remote/internal/transport"
)

type StatusGetter interface {
	GetStatus(ctx context.Context) (model.GateStatusReport, error)
}

// Prober answers whether the configured endpoint and credentials currently
// produce a recognized gate state. It is not a gate-state query.
type Prober struct {
	api StatusGetter
}

func NewProber(api StatusGetter) *Prober {
	return &Prober{api: api}
}

func (p *Prober) IsHealthy(ctx context.Context) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Health probe panicked")
			healthy = false
		}
		value := 0.0
		if healthy {
			value = 1
		}
		datadog.Gauge("gate.health", value)
	}()

	report, err := p.api.GetStatus(ctx)
	if err != nil {
		log.Debug().Err(err).Str("kind", string(transport.KindOf(err))).Msg("Health probe failed")
		return false
	}
	if !report.State.Valid() {
		log.Debug().Str("status", string(report.State)).Msg("Health probe got unrecognized gate state")
		return false
	}
	return true
}
