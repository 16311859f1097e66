package orchestrator

import (
	"fmt"

	"github.com/thatsimonsguy/gate-remote/internal/model"
	"github.com/thatsimonsguy/gate-remote/internal/transport"
)

type StateKind string

const (
	KindIdle            StateKind = "idle"
	KindProbing         StateKind = "probing"
	KindCommandInFlight StateKind = "command_in_flight"
	KindCountingDown    StateKind = "counting_down"
	KindError           StateKind = "error"
)

// DisplayState is the single state the presentation layer renders. The
// implementations below are the only ones; switch on them exhaustively.
type DisplayState interface {
	Kind() StateKind
	displayState()
}

// Idle is the resting state carrying the last server-reported gate state.
type Idle struct {
	Gate model.GateState
}

// Probing means a status fetch is outstanding.
type Probing struct{}

// CommandInFlight means an open/close request was sent and not yet acknowledged.
type CommandInFlight struct {
	Direction model.Direction
}

// CountingDown is the local, non-authoritative estimate of a running transition.
type CountingDown struct {
	Direction model.Direction
	Remaining int
}

// ErrorState holds the classified failure of the last operation.
type ErrorState struct {
	ErrorKind transport.Kind
	Status    int
	Message   string
}

func (Idle) Kind() StateKind            { return KindIdle }
func (Probing) Kind() StateKind         { return KindProbing }
func (CommandInFlight) Kind() StateKind { return KindCommandInFlight }
func (CountingDown) Kind() StateKind    { return KindCountingDown }
func (ErrorState) Kind() StateKind      { return KindError }

func (Idle) displayState()            {}
func (Probing) displayState()         {}
func (CommandInFlight) displayState() {}
func (CountingDown) displayState()    {}
func (ErrorState) displayState()      {}

const (
	MessageUnconfigured = "Gate API URL and bearer token are not configured"
	MessageConnectivity = "Unable to reach the gate controller"
)

// Classify maps an operation failure onto the error state shown to the user.
// The transport kind is preserved so callers can tell a configuration
// prompt from a transient failure.
func Classify(err error) ErrorState {
	terr, ok := transport.AsError(err)
	if !ok {
		return ErrorState{ErrorKind: transport.KindConnectionFailed, Message: MessageConnectivity}
	}

	switch terr.Kind {
	case transport.KindUnconfigured:
		return ErrorState{ErrorKind: terr.Kind, Message: MessageUnconfigured}
	case transport.KindServerRejected:
		return ErrorState{ErrorKind: terr.Kind, Status: terr.Status, Message: terr.Message}
	case transport.KindInvalidResponse:
		if terr.Message != "" {
			return ErrorState{ErrorKind: terr.Kind, Status: terr.Status, Message: terr.Message}
		}
		return ErrorState{ErrorKind: terr.Kind, Status: terr.Status, Message: MessageConnectivity}
	default:
		return ErrorState{ErrorKind: terr.Kind, Status: terr.Status, Message: MessageConnectivity}
	}
}

// View is the flattened, serializable form of a DisplayState.
type View struct {
	State     StateKind       `json:"state"`
	Gate      model.GateState `json:"gate,omitempty"`
	Direction model.Direction `json:"direction,omitempty"`
	Remaining int             `json:"remaining_seconds,omitempty"`
	ErrorKind transport.Kind  `json:"error_kind,omitempty"`
	Status    int             `json:"http_status,omitempty"`
	Message   string          `json:"message,omitempty"`
	Label     string          `json:"label"`
	Busy      bool            `json:"busy"`
}

func Describe(s DisplayState) View {
	switch st := s.(type) {
	case Idle:
		return View{State: st.Kind(), Gate: st.Gate, Label: gateLabel(st.Gate)}
	case Probing:
		return View{State: st.Kind(), Label: "Checking gate status..."}
	case CommandInFlight:
		return View{State: st.Kind(), Direction: st.Direction, Busy: true, Label: fmt.Sprintf("Sending %s command...", st.Direction.Command())}
	case CountingDown:
		return View{
			State:     st.Kind(),
			Direction: st.Direction,
			Remaining: st.Remaining,
			Busy:      true,
			Label:     fmt.Sprintf("%s... %ds", directionLabel(st.Direction), st.Remaining),
		}
	case ErrorState:
		return View{State: st.Kind(), ErrorKind: st.ErrorKind, Status: st.Status, Message: st.Message, Label: "Error: " + st.Message}
	default:
		panic(fmt.Sprintf("orchestrator: unhandled display state %T", s))
	}
}

func gateLabel(g model.GateState) string {
	switch g {
	case model.GateOpen:
		return "Open"
	case model.GateClosed:
		return "Closed"
	case model.GateOpening:
		return "Opening"
	case model.GateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

func directionLabel(d model.Direction) string {
	if d == model.DirectionClosing {
		return "Closing"
	}
	return "Opening"
}
