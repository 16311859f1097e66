package model

import "time"

type GateState string

const (
	GateOpen    GateState = "open"
	GateClosed  GateState = "closed"
	GateOpening GateState = "opening"
	GateClosing GateState = "closing"
	GateUnknown GateState = "unknown"
)

// Valid reports whether the state is one of the five values the gate server may report.
func (s GateState) Valid() bool {
	switch s {
	case GateOpen, GateClosed, GateOpening, GateClosing, GateUnknown:
		return true
	default:
		return false
	}
}

type Direction string

const (
	DirectionOpening Direction = "opening"
	DirectionClosing Direction = "closing"
)

func (d Direction) Valid() bool {
	return d == DirectionOpening || d == DirectionClosing
}

// Command is the verb sent to the gate server for this direction ("open" or "close").
func (d Direction) Command() string {
	if d == DirectionClosing {
		return "close"
	}
	return "open"
}

type GateStatusReport struct {
	State                GateState `json:"state"`
	Message              string    `json:"message,omitempty"`
	ProtocolVersion      *string   `json:"protocol_version,omitempty"`
	ServerTimestamp      *string   `json:"server_timestamp,omitempty"`
	AutoCloseEnabled     *bool     `json:"auto_close_enabled,omitempty"`
	AutoCloseTimeMs      *int64    `json:"auto_close_time_ms,omitempty"`
	AutoCloseRemainingMs *int64    `json:"auto_close_remaining_ms,omitempty"`
}

// GateOperationAck is the server's synchronous answer to an open/close command.
// TimeoutRemainingMs is the server's own estimate; it never drives the local countdown.
type GateOperationAck struct {
	RequestedTransition Direction `json:"requested_transition"`
	SensorClosed        bool      `json:"sensor_closed"`
	SensorOpen          bool      `json:"sensor_open"`
	OperationElapsedMs  int64     `json:"operation_elapsed_ms"`
	TimeoutRemainingMs  int64     `json:"timeout_remaining_ms"`
	AlertActive         bool      `json:"alert_active"`
	AutoCloseEnabled    bool      `json:"auto_close_enabled"`
}

type OperationKind string

const (
	OperationRefresh OperationKind = "refresh"
	OperationOpen    OperationKind = "open"
	OperationClose   OperationKind = "close"
)

type OperationOutcome string

const (
	OutcomeSucceeded  OperationOutcome = "succeeded"
	OutcomeFailed     OperationOutcome = "failed"
	OutcomeSuperseded OperationOutcome = "superseded"
)

// Operation is one row of the local operation history.
type Operation struct {
	ID                 string           `json:"id"`
	Kind               OperationKind    `json:"kind"`
	Outcome            OperationOutcome `json:"outcome"`
	GateState          GateState        `json:"gate_state,omitempty"`
	ErrorKind          string           `json:"error_kind,omitempty"`
	Message            string           `json:"message,omitempty"`
	TimeoutRemainingMs int64            `json:"timeout_remaining_ms,omitempty"`
	StartedAt          time.Time        `json:"started_at"`
	FinishedAt         time.Time        `json:"finished_at"`
}
