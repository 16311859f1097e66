package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/internal/credentials"
	"github.com/thatsimonsguy/gate-remote/internal/model"
	"github.com/thatsimonsguy/gate-remote/internal/orchestrator"
	"github.com/thatsimonsguy/gate-remote/internal/transport"
)

const defaultHistoryLimit = 50

type Controller interface {
	Snapshot() orchestrator.Snapshot
	Refresh(ctx context.Context) error
	Open(ctx context.Context) (model.GateOperationAck, error)
	Close(ctx context.Context) (model.GateOperationAck, error)
}

type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

type HistoryReader interface {
	Recent(limit int) ([]model.Operation, error)
}

type Server struct {
	gate    Controller
	health  HealthChecker
	creds   *credentials.Store
	history HistoryReader
}

type GateResponse struct {
	orchestrator.View
	OpeningSeconds int                     `json:"opening_seconds"`
	ClosingSeconds int                     `json:"closing_seconds"`
	LastAck        *model.GateOperationAck `json:"last_ack,omitempty"`
	LastReport     *model.GateStatusReport `json:"last_report,omitempty"`
}

type CommandResponse struct {
	Ack   model.GateOperationAck `json:"ack"`
	State orchestrator.View      `json:"state"`
}

type HealthResponse struct {
	Healthy bool `json:"healthy"`
}

type CredentialsRequest struct {
	APIURL      string `json:"api_url"`
	BearerToken string `json:"bearer_token"`
}

type CredentialsResponse struct {
	APIURL      string `json:"api_url"`
	BearerToken string `json:"bearer_token"`
	Configured  bool   `json:"configured"`
}

type DurationsRequest struct {
	OpeningSeconds *int `json:"opening_seconds"`
	ClosingSeconds *int `json:"closing_seconds"`
}

type DurationsResponse struct {
	OpeningSeconds int `json:"opening_seconds"`
	ClosingSeconds int `json:"closing_seconds"`
}

type ErrorResponse struct {
	Error        string             `json:"error"`
	Unconfigured bool               `json:"unconfigured,omitempty"`
	State        *orchestrator.View `json:"state,omitempty"`
}

func NewServer(gate Controller, health HealthChecker, creds *credentials.Store, history HistoryReader) *Server {
	return &Server{
		gate:    gate,
		health:  health,
		creds:   creds,
		history: history,
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/credentials", s.getCredentials).Methods(http.MethodGet)
	r.HandleFunc("/api/credentials", s.putCredentials).Methods(http.MethodPut)
	r.HandleFunc("/api/credentials", s.deleteCredentials).Methods(http.MethodDelete)
	r.HandleFunc("/api/settings/durations", s.getDurations).Methods(http.MethodGet)
	r.HandleFunc("/api/settings/durations", s.putDurations).Methods(http.MethodPut)

	// gate routes sit on the root router so wrong methods reach MethodNotAllowedHandler
	gated := func(h http.HandlerFunc) http.Handler { return s.requireCredentials(h) }
	r.Handle("/api/gate", gated(s.getGate)).Methods(http.MethodGet)
	r.Handle("/api/gate/open", gated(s.openGate)).Methods(http.MethodPost)
	r.Handle("/api/gate/close", gated(s.closeGate)).Methods(http.MethodPost)
	r.Handle("/api/gate/refresh", gated(s.refreshGate)).Methods(http.MethodPost)
	r.Handle("/api/gate/health", gated(s.getHealth)).Methods(http.MethodGet)
	r.Handle("/api/gate/history", gated(s.getHistory)).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return corsMiddleware(r)
}

// Start serves the API on addr in the background. The caller owns shutdown.
func (s *Server) Start(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", addr).Msg("Starting REST API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("address", addr).Msg("REST API server failed")
		}
	}()
	return srv
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireCredentials keeps every gate route behind the credential prompt
// until both the endpoint and the token are stored.
func (s *Server) requireCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		configured, err := s.creds.Configured()
		if err != nil {
			log.Error().Err(err).Msg("Failed to read stored credentials")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !configured {
			writeJSON(w, http.StatusPreconditionRequired, ErrorResponse{
				Error:        orchestrator.MessageUnconfigured,
				Unconfigured: true,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getGate(w http.ResponseWriter, r *http.Request) {
	snap := s.gate.Snapshot()
	writeJSON(w, http.StatusOK, GateResponse{
		View:           orchestrator.Describe(snap.State),
		OpeningSeconds: snap.OpeningSeconds,
		ClosingSeconds: snap.ClosingSeconds,
		LastAck:        snap.LastAck,
		LastReport:     snap.LastReport,
	})
}

func (s *Server) openGate(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, model.DirectionOpening)
}

func (s *Server) closeGate(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, model.DirectionClosing)
}

func (s *Server) command(w http.ResponseWriter, r *http.Request, dir model.Direction) {
	var (
		ack model.GateOperationAck
		err error
	)
	// the gate keeps moving after a client disconnects; the transport timeout bounds the call
	ctx := context.WithoutCancel(r.Context())
	if dir == model.DirectionClosing {
		ack, err = s.gate.Close(ctx)
	} else {
		ack, err = s.gate.Open(ctx)
	}
	if err != nil {
		s.writeGateError(w, err)
		return
	}

	log.Info().Str("direction", string(dir)).Msg("Gate command accepted via API")
	writeJSON(w, http.StatusAccepted, CommandResponse{
		Ack:   ack,
		State: orchestrator.Describe(s.gate.Snapshot().State),
	})
}

func (s *Server) refreshGate(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Refresh(r.Context()); err != nil {
		s.writeGateError(w, err)
		return
	}
	s.getGate(w, r)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Healthy: s.health.IsHealthy(r.Context())})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ops, err := s.history.Recent(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read operation history")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ops == nil {
		ops = []model.Operation{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func (s *Server) getCredentials(w http.ResponseWriter, r *http.Request) {
	url, hasURL, err := s.creds.APIURL()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	token, hasToken, err := s.creds.BearerToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CredentialsResponse{
		APIURL:      url,
		BearerToken: credentials.MaskToken(token),
		Configured:  hasURL && hasToken,
	})
}

func (s *Server) putCredentials(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.APIURL) == "" || strings.TrimSpace(req.BearerToken) == "" {
		writeError(w, http.StatusBadRequest, "api_url and bearer_token are both required")
		return
	}

	if err := s.creds.SaveAPIURL(req.APIURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.creds.SaveBearerToken(req.BearerToken); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Info().Str("api_url", strings.TrimSpace(req.APIURL)).Msg("Gate credentials updated via API")

	// pick up the new endpoint right away; a busy gate is refreshed after its countdown
	go func() {
		if err := s.gate.Refresh(context.Background()); err != nil && !errors.Is(err, orchestrator.ErrBusy) {
			log.Warn().Err(err).Msg("Refresh after credential update failed")
		}
	}()

	s.getCredentials(w, r)
}

func (s *Server) deleteCredentials(w http.ResponseWriter, r *http.Request) {
	if err := s.creds.Clear(); err != nil {
		log.Error().Err(err).Msg("Failed to clear credentials")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Info().Msg("Gate credentials cleared via API")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getDurations(w http.ResponseWriter, r *http.Request) {
	snap := s.gate.Snapshot()
	writeJSON(w, http.StatusOK, DurationsResponse{OpeningSeconds: snap.OpeningSeconds, ClosingSeconds: snap.ClosingSeconds})
}

func (s *Server) putDurations(w http.ResponseWriter, r *http.Request) {
	var req DurationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.OpeningSeconds == nil && req.ClosingSeconds == nil {
		writeError(w, http.StatusBadRequest, "opening_seconds or closing_seconds is required")
		return
	}
	if (req.OpeningSeconds != nil && *req.OpeningSeconds <= 0) || (req.ClosingSeconds != nil && *req.ClosingSeconds <= 0) {
		writeError(w, http.StatusBadRequest, "durations must be positive whole seconds")
		return
	}

	if req.OpeningSeconds != nil {
		if err := s.creds.SaveOpeningSeconds(*req.OpeningSeconds); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.ClosingSeconds != nil {
		if err := s.creds.SaveClosingSeconds(*req.ClosingSeconds); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	log.Info().Msg("Operation durations updated via API")

	s.getDurations(w, r)
}

func (s *Server) writeGateError(w http.ResponseWriter, err error) {
	view := orchestrator.Describe(s.gate.Snapshot().State)

	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), State: &view})
		return
	case errors.Is(err, orchestrator.ErrSuperseded):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), State: &view})
		return
	case errors.Is(err, orchestrator.ErrShutdown):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}

	failure := orchestrator.Classify(err)
	status := http.StatusBadGateway
	if failure.ErrorKind == transport.KindUnconfigured {
		status = http.StatusPreconditionRequired
	}
	writeJSON(w, status, ErrorResponse{
		Error:        failure.Message,
		Unconfigured: failure.ErrorKind == transport.KindUnconfigured,
		State:        &view,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}
