package gateapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/gate-remote/internal/model"
	"github.com/thatsimonsguy/gate-remote/internal/transport"
)

type creds struct{ url string }

func (c creds) APIURL() (string, bool, error)      { return c.url, true, nil }
func (c creds) BearerToken() (string, bool, error) { return "token", true, nil }

func newAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(transport.NewClient(creds{url: srv.URL}, time.Second))
}

func TestGetStatus_MapsAllFields(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, StatusPath, r.URL.Path)
		w.Write([]byte(`{"status":"open","message":"ok","version":"1.2","timestamp":"2024-01-01T00:00:00Z","auto_close_enabled":true,"auto_close_time":300000,"auto_close_remaining":12000}`))
	})

	report, err := a.GetStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.GateOpen, report.State)
	assert.Equal(t, "ok", report.Message)
	require.NotNil(t, report.ProtocolVersion)
	assert.Equal(t, "1.2", *report.ProtocolVersion)
	require.NotNil(t, report.ServerTimestamp)
	require.NotNil(t, report.AutoCloseEnabled)
	assert.True(t, *report.AutoCloseEnabled)
	require.NotNil(t, report.AutoCloseRemainingMs)
	assert.Equal(t, int64(12000), *report.AutoCloseRemainingMs)
	require.NotNil(t, report.AutoCloseTimeMs)
	assert.Equal(t, int64(300000), *report.AutoCloseTimeMs)
}

func TestGetStatus_OptionalFieldsAbsent(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"closed"}`))
	})

	report, err := a.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.GateClosed, report.State)
	assert.Nil(t, report.ProtocolVersion)
	assert.Nil(t, report.AutoCloseEnabled)
	assert.Nil(t, report.AutoCloseRemainingMs)
}

func TestGetStatus_UnrecognizedStatePassedThrough(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"jammed"}`))
	})

	report, err := a.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.GateState("jammed"), report.State)
	assert.False(t, report.State.Valid())
}

func TestGetStatus_WrongShapeIsInvalidResponse(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["not","an","object"]`))
	})

	_, err := a.GetStatus(context.Background())
	require.Error(t, err)
	assert.Equal(t, transport.KindInvalidResponse, transport.KindOf(err))
}

func TestOpenAndClose(t *testing.T) {
	tests := []struct {
		name      string
		call      func(*Adapter) (model.GateOperationAck, error)
		path      string
		direction model.Direction
	}{
		{"open", func(a *Adapter) (model.GateOperationAck, error) { return a.Open(context.Background()) }, OpenPath, model.DirectionOpening},
		{"close", func(a *Adapter) (model.GateOperationAck, error) { return a.Close(context.Background()) }, ClosePath, model.DirectionClosing},
		{"operate closing", func(a *Adapter) (model.GateOperationAck, error) {
			return a.Operate(context.Background(), model.DirectionClosing)
		}, ClosePath, model.DirectionClosing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				json.NewEncoder(w).Encode(map[string]interface{}{
					"status":             string(tt.direction),
					"sensor_closed":      tt.direction == model.DirectionOpening,
					"sensor_open":        false,
					"operation_time":     120,
					"timeout_remaining":  14880.4,
					"alert_active":       true,
					"auto_close_enabled": false,
				})
			})

			ack, err := tt.call(a)
			require.NoError(t, err)
			assert.Equal(t, tt.path, gotPath)
			assert.Equal(t, tt.direction, ack.RequestedTransition)
			assert.Equal(t, int64(120), ack.OperationElapsedMs)
			assert.Equal(t, int64(14880), ack.TimeoutRemainingMs)
			assert.True(t, ack.AlertActive)
			assert.False(t, ack.AutoCloseEnabled)
		})
	}
}

func TestOpen_PropagatesTransportErrorUnchanged(t *testing.T) {
	calls := 0
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"gate already open"}`))
	})

	_, err := a.Open(context.Background())
	require.Error(t, err)

	terr, ok := transport.AsError(err)
	require.True(t, ok)
	assert.Equal(t, transport.KindServerRejected, terr.Kind)
	assert.Equal(t, "gate already open", terr.Message)
	assert.Equal(t, 1, calls, "adapter must not retry")
}
