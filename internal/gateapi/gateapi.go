package gateapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"github.com/thatsimonsguy/gate-remote/internal/model"
	"github.com/thatsimonsguy/gate-remote/internal/transport"
)

const (
	StatusPath = "/gate/status"
	OpenPath   = "/gate/open"
	ClosePath  = "/gate/close"
)

type Requester interface {
	Request(ctx context.Context, method, path string, body any) (json.RawMessage, error)
}

type Adapter struct {
	client Requester
}

func New(client Requester) *Adapter {
	return &Adapter{client: client}
}

type statusResponse struct {
	Status             string   `json:"status"`
	Message            string   `json:"message,omitempty"`
	Version            *string  `json:"version,omitempty"`
	Timestamp          *string  `json:"timestamp,omitempty"`
	AutoCloseEnabled   *bool    `json:"auto_close_enabled,omitempty"`
	AutoCloseTime      *float64 `json:"auto_close_time,omitempty"`
	AutoCloseRemaining *float64 `json:"auto_close_remaining,omitempty"`
}

type operationResponse struct {
	Status           string  `json:"status"`
	SensorClosed     bool    `json:"sensor_closed"`
	SensorOpen       bool    `json:"sensor_open"`
	OperationTime    float64 `json:"operation_time"`
	TimeoutRemaining float64 `json:"timeout_remaining"`
	AlertActive      bool    `json:"alert_active"`
	AutoCloseEnabled bool    `json:"auto_close_enabled"`
}

// GetStatus returns the server-reported state verbatim, including values
// outside the five recognized states; callers decide what to do with those.
func (a *Adapter) GetStatus(ctx context.Context) (model.GateStatusReport, error) {
	raw, err := a.client.Request(ctx, http.MethodGet, StatusPath, nil)
	if err != nil {
		return model.GateStatusReport{}, err
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return model.GateStatusReport{}, decodeError(raw, err)
	}

	return model.GateStatusReport{
		State:                model.GateState(resp.Status),
		Message:              resp.Message,
		ProtocolVersion:      resp.Version,
		ServerTimestamp:      resp.Timestamp,
		AutoCloseEnabled:     resp.AutoCloseEnabled,
		AutoCloseTimeMs:      millis(resp.AutoCloseTime),
		AutoCloseRemainingMs: millis(resp.AutoCloseRemaining),
	}, nil
}

func (a *Adapter) Open(ctx context.Context) (model.GateOperationAck, error) {
	return a.operate(ctx, OpenPath, model.DirectionOpening)
}

func (a *Adapter) Close(ctx context.Context) (model.GateOperationAck, error) {
	return a.operate(ctx, ClosePath, model.DirectionClosing)
}

// Operate dispatches on direction; the orchestrator uses it so open and close share one code path.
func (a *Adapter) Operate(ctx context.Context, dir model.Direction) (model.GateOperationAck, error) {
	if dir == model.DirectionClosing {
		return a.Close(ctx)
	}
	return a.Open(ctx)
}

func (a *Adapter) operate(ctx context.Context, path string, requested model.Direction) (model.GateOperationAck, error) {
	raw, err := a.client.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return model.GateOperationAck{}, err
	}

	var resp operationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return model.GateOperationAck{}, decodeError(raw, err)
	}

	transition := model.Direction(resp.Status)
	if !transition.Valid() {
		transition = requested
	}

	return model.GateOperationAck{
		RequestedTransition: transition,
		SensorClosed:        resp.SensorClosed,
		SensorOpen:          resp.SensorOpen,
		OperationElapsedMs:  int64(math.Round(resp.OperationTime)),
		TimeoutRemainingMs:  int64(math.Round(resp.TimeoutRemaining)),
		AlertActive:         resp.AlertActive,
		AutoCloseEnabled:    resp.AutoCloseEnabled,
	}, nil
}

func millis(v *float64) *int64 {
	if v == nil {
		return nil
	}
	ms := int64(math.Round(*v))
	return &ms
}

func decodeError(raw json.RawMessage, err error) error {
	return &transport.Error{
		Kind:    transport.KindInvalidResponse,
		Status:  http.StatusOK,
		RawBody: string(raw),
		Err:     err,
	}
}
