package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/internal/datadog"
	"github.com/thatsimonsguy/gate-remote/internal/model"
	"github.com/thatsimonsguy/gate-remote/internal/transport"
)

const DefaultSeconds = 15

var (
	// ErrBusy is returned without any network call while a command is in
	// flight or a countdown is running.
	ErrBusy = errors.New("gate operation already in progress")
	// ErrSuperseded is returned when a later request (or Shutdown) made this result stale.
	ErrSuperseded = errors.New("result superseded by a newer request")
	ErrShutdown   = errors.New("orchestrator shut down")
)

type GateAPI interface {
	GetStatus(ctx context.Context) (model.GateStatusReport, error)
	Operate(ctx context.Context, dir model.Direction) (model.GateOperationAck, error)
}

type DurationSource interface {
	OpeningSeconds() int
	ClosingSeconds() int
}

type Recorder interface {
	Record(op model.Operation)
}

type Notifier interface {
	Send(title, message string) error
}

type Listener func(DisplayState)

type Option func(*Orchestrator)

// WithListener registers a callback for every display-state change. Listeners
// run with the orchestrator lock held, in transition order, and must not call
// back into the orchestrator.
func WithListener(l Listener) Option {
	return func(o *Orchestrator) { o.listeners = append(o.listeners, l) }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithTickerFactory(f TickerFactory) Option {
	return func(o *Orchestrator) { o.countdown = NewCountdown(f) }
}

type Snapshot struct {
	State          DisplayState
	OpeningSeconds int
	ClosingSeconds int
	LastAck        *model.GateOperationAck
	LastReport     *model.GateStatusReport
}

type Orchestrator struct {
	api       GateAPI
	durations DurationSource
	recorder  Recorder
	notifier  Notifier
	listeners []Listener
	countdown *Countdown
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      DisplayState
	seq        uint64
	lastAck    *model.GateOperationAck
	lastReport *model.GateStatusReport
	closed     bool
}

func New(api GateAPI, durations DurationSource, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		api:       api,
		durations: durations,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		state:     Probing{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.countdown == nil {
		o.countdown = NewCountdown(nil)
	}

	// nothing is known until the first status fetch completes
	o.mu.Lock()
	o.setStateLocked(Idle{Gate: model.GateUnknown})
	o.mu.Unlock()
	return o
}

// Start issues the first status refresh in the background.
func (o *Orchestrator) Start() {
	go func() {
		if err := o.Refresh(o.ctx); err != nil {
			log.Warn().Err(err).Msg("Initial gate status refresh failed")
		}
	}()
}

// Shutdown cancels any countdown and discards every outstanding result.
// Later calls to Refresh, Open and Close return ErrShutdown.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.seq++
	o.countdown.Cancel()
	o.mu.Unlock()

	o.cancel()
	o.countdown.Wait()
	log.Info().Msg("Gate orchestrator shut down")
}

func (o *Orchestrator) State() DisplayState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Snapshot() Snapshot {
	opening, closing := o.configuredSeconds()

	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		State:          o.state,
		OpeningSeconds: opening,
		ClosingSeconds: closing,
		LastAck:        o.lastAck,
		LastReport:     o.lastReport,
	}
}

// Refresh fetches the gate status. It is legal from Idle, Error and Probing;
// a refresh issued while another is outstanding supersedes it.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrShutdown
	}
	if busy(o.state) {
		state := o.state
		o.mu.Unlock()
		log.Debug().Str("state", string(state.Kind())).Msg("Refresh rejected while gate operation in progress")
		return ErrBusy
	}
	seq := o.beginLocked(Probing{})
	o.mu.Unlock()

	return o.probe(ctx, seq)
}

func (o *Orchestrator) Open(ctx context.Context) (model.GateOperationAck, error) {
	return o.command(ctx, model.DirectionOpening)
}

func (o *Orchestrator) Close(ctx context.Context) (model.GateOperationAck, error) {
	return o.command(ctx, model.DirectionClosing)
}

func (o *Orchestrator) command(ctx context.Context, dir model.Direction) (model.GateOperationAck, error) {
	kind := operationKind(dir)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return model.GateOperationAck{}, ErrShutdown
	}
	if busy(o.state) {
		state := o.state
		o.mu.Unlock()
		datadog.Incr("gate.command.rejected", "direction:"+string(dir))
		log.Info().
			Str("direction", string(dir)).
			Str("state", string(state.Kind())).
			Msg("Gate command rejected while another operation is in progress")
		return model.GateOperationAck{}, ErrBusy
	}
	seq := o.beginLocked(CommandInFlight{Direction: dir})
	o.mu.Unlock()

	started := o.now()
	datadog.Incr("gate.command", "direction:"+string(dir))
	log.Info().Str("direction", string(dir)).Msg("Sending gate command")

	ack, err := o.api.Operate(ctx, dir)

	// read before locking; the store may hit the database
	seconds := o.secondsFor(dir)

	o.mu.Lock()
	if seq != o.seq || o.closed {
		o.mu.Unlock()
		log.Debug().Str("direction", string(dir)).Msg("Discarding superseded gate command result")
		o.record(model.Operation{Kind: kind, Outcome: model.OutcomeSuperseded, StartedAt: started})
		return ack, ErrSuperseded
	}
	if err != nil {
		failure := o.failLocked(err)
		o.mu.Unlock()
		log.Error().Err(err).Str("direction", string(dir)).Msg("Gate command failed")
		if failure.ErrorKind == transport.KindServerRejected {
			o.notify("Gate command rejected", fmt.Sprintf("The gate rejected the %s command: %s", dir.Command(), failure.Message))
		}
		o.record(failureOperation(kind, failure, started))
		return ack, err
	}

	a := ack
	o.lastAck = &a
	o.startCountdownLocked(dir, seconds)
	o.mu.Unlock()

	log.Info().
		Str("direction", string(dir)).
		Int("local_seconds", seconds).
		Int64("server_timeout_remaining_ms", ack.TimeoutRemainingMs).
		Bool("sensor_open", ack.SensorOpen).
		Bool("sensor_closed", ack.SensorClosed).
		Msg("Gate acknowledged command, counting down")

	if ack.AlertActive {
		o.notify("Gate alert", fmt.Sprintf("The gate reported an active alert while %s.", dir))
	}
	o.record(model.Operation{
		Kind:               kind,
		Outcome:            model.OutcomeSucceeded,
		TimeoutRemainingMs: ack.TimeoutRemainingMs,
		StartedAt:          started,
	})
	return ack, nil
}

func (o *Orchestrator) probe(ctx context.Context, seq uint64) error {
	started := o.now()
	datadog.Incr("gate.refresh")

	report, err := o.api.GetStatus(ctx)
	if err == nil && !report.State.Valid() {
		err = &transport.Error{
			Kind:    transport.KindInvalidResponse,
			Status:  200,
			Message: fmt.Sprintf("unrecognized gate state %q", report.State),
			RawBody: string(report.State),
		}
	}

	o.mu.Lock()
	if seq != o.seq || o.closed {
		o.mu.Unlock()
		log.Debug().Msg("Discarding superseded gate status result")
		o.record(model.Operation{Kind: model.OperationRefresh, Outcome: model.OutcomeSuperseded, StartedAt: started})
		return ErrSuperseded
	}
	if err != nil {
		failure := o.failLocked(err)
		o.mu.Unlock()
		log.Warn().Err(err).Msg("Gate status refresh failed")
		o.record(failureOperation(model.OperationRefresh, failure, started))
		return err
	}

	r := report
	o.lastReport = &r
	o.setStateLocked(Idle{Gate: report.State})
	o.mu.Unlock()

	log.Debug().Str("gate", string(report.State)).Msg("Gate status refreshed")
	o.record(model.Operation{
		Kind:      model.OperationRefresh,
		Outcome:   model.OutcomeSucceeded,
		GateState: report.State,
		StartedAt: started,
	})
	return nil
}

// beginLocked stamps a new request, tears down any countdown and enters next.
func (o *Orchestrator) beginLocked(next DisplayState) uint64 {
	o.seq++
	o.countdown.Cancel()
	o.setStateLocked(next)
	return o.seq
}

func (o *Orchestrator) startCountdownLocked(dir model.Direction, seconds int) {
	token := o.seq
	o.setStateLocked(CountingDown{Direction: dir, Remaining: seconds})
	o.countdown.Start(seconds,
		func(remaining int) { o.tick(token, remaining) },
		func() { o.expire(token) },
	)
}

func (o *Orchestrator) tick(token uint64, remaining int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cd, ok := o.state.(CountingDown)
	if token != o.seq || o.closed || !ok {
		return
	}
	o.setStateLocked(CountingDown{Direction: cd.Direction, Remaining: remaining})
	datadog.Gauge("gate.countdown.remaining", float64(remaining), "direction:"+string(cd.Direction))
}

// expire reconciles the local estimate with the server once the countdown reaches zero.
func (o *Orchestrator) expire(token uint64) {
	o.mu.Lock()
	cd, ok := o.state.(CountingDown)
	if token != o.seq || o.closed || !ok {
		o.mu.Unlock()
		return
	}
	seq := o.beginLocked(Probing{})
	o.mu.Unlock()

	log.Debug().Str("direction", string(cd.Direction)).Msg("Countdown finished, refreshing gate status")
	if err := o.probe(o.ctx, seq); err != nil && !errors.Is(err, ErrSuperseded) {
		log.Warn().Err(err).Msg("Post-countdown refresh failed")
	}
}

func (o *Orchestrator) failLocked(err error) ErrorState {
	failure := Classify(err)
	o.setStateLocked(failure)
	datadog.Incr("gate.error", "kind:"+string(failure.ErrorKind))
	return failure
}

func (o *Orchestrator) setStateLocked(s DisplayState) {
	o.state = s
	for _, l := range o.listeners {
		l(s)
	}
}

func (o *Orchestrator) secondsFor(dir model.Direction) int {
	opening, closing := o.configuredSeconds()
	if dir == model.DirectionClosing {
		return closing
	}
	return opening
}

func (o *Orchestrator) configuredSeconds() (int, int) {
	opening, closing := DefaultSeconds, DefaultSeconds
	if o.durations != nil {
		if v := o.durations.OpeningSeconds(); v > 0 {
			opening = v
		}
		if v := o.durations.ClosingSeconds(); v > 0 {
			closing = v
		}
	}
	return opening, closing
}

func (o *Orchestrator) record(op model.Operation) {
	if o.recorder == nil {
		return
	}
	op.FinishedAt = o.now()
	o.recorder.Record(op)
}

func (o *Orchestrator) notify(title, message string) {
	if o.notifier == nil {
		return
	}
	// delivery can take up to the notifier's HTTP timeout; commands must not wait on it
	go func() {
		if err := o.notifier.Send(title, message); err != nil {
			log.Warn().Err(err).Str("title", title).Msg("Failed to send gate notification")
		}
	}()
}

func busy(s DisplayState) bool {
	switch s.(type) {
	case CommandInFlight, CountingDown:
		return true
	default:
		return false
	}
}

func operationKind(dir model.Direction) model.OperationKind {
	if dir == model.DirectionClosing {
		return model.OperationClose
	}
	return model.OperationOpen
}

func failureOperation(kind model.OperationKind, failure ErrorState, started time.Time) model.Operation {
	return model.Operation{
		Kind:      kind,
		Outcome:   model.OutcomeFailed,
		ErrorKind: string(failure.ErrorKind),
		Message:   failure.Message,
		StartedAt: started,
	}
}
