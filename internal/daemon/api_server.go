package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"fastchannels/internal/api"
	"fastchannels/internal/journal"
	"fastchannels/internal/logging"
	"fastchannels/internal/services"
)

// EventBridge caps an event at 256 KB.
const maxEventBytes = 256 << 10

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	shutdownGrace       = 30 * time.Second
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind, token string, d *Daemon, logger *slog.Logger) *apiServer {
	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/events", authMiddleware(token, srv.handleEvents))
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/history", authMiddleware(token, srv.handleHistory))
	if d.metrics != nil {
		mux.Handle("/metrics", d.metrics)
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Stage runs include jittered sleeps and propagation delays.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

func (s *apiServer) listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return nil, fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return listener, nil
}

func (s *apiServer) serve(listener net.Listener) error {
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}

func (s *apiServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "event exceeds 256 KB")
			return
		}
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	result, err := s.daemon.dispatcher.Dispatch(s.daemon.workContext(), body)
	code := statusFor(err)
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	s.writeJSON(w, code, result)
}

// statusFor maps a stage failure onto the response code the event bus acts
// on. API destinations retry 5xx and give up on other 4xx.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch services.Classify(err) {
	case services.ClassTransient:
		return http.StatusServiceUnavailable
	case services.ClassValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		StartedAt:      api.FormatTime(status.StartedAt),
		LockFilePath:   status.LockFilePath,
		JournalPath:    status.JournalPath,
		Deliveries:     status.Deliveries,
		DisabledStages: status.DisabledStages,
	})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.journal == nil {
		s.writeJSON(w, http.StatusOK, api.HistoryResponse{Deliveries: []api.Delivery{}})
		return
	}
	query := r.URL.Query()
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	rows, err := s.daemon.journal.List(r.Context(), journal.Filter{
		Stage:  strings.TrimSpace(query.Get("stage")),
		Status: strings.TrimSpace(query.Get("status")),
		Limit:  limit,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Deliveries: api.FromDeliveries(rows)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
