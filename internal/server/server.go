// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"diceledger/internal/eventlog"
	"diceledger/internal/ledger"
	"diceledger/internal/model"
)

// Ledger is the subset of the ledger service the HTTP surface needs.
type Ledger interface {
	RecordPoolCreated(ctx context.Context, in eventlog.PoolCreatedInput) (ledger.RecordResult, error)
	RecordBet(ctx context.Context, in eventlog.BetInput) (ledger.RecordResult, error)
	RecordPoolResolved(ctx context.Context, in eventlog.PoolResolvedInput) (ledger.RecordResult, error)
	GetBetsForPool(ctx context.Context, poolID uint64) ([]model.Event, error)
	GetPoolEvents(ctx context.Context, poolID uint64) ([]model.Event, error)
	GetBetsForUser(ctx context.Context, user string) ([]model.Event, error)
	GetLatestPoolID(ctx context.Context) (uint64, bool, error)
	GetPoolSummary(ctx context.Context, poolID uint64) (model.PoolSummary, error)
}

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
	// APIKey guards the write endpoints; empty disables the check.
	APIKey string
	// HealthCheck reports backing store health; nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

// Server serves the event and pool endpoints.
type Server struct {
	httpServer *http.Server
	ledger     Ledger
	health     func(ctx context.Context) error
	logger     *zap.Logger
}

// New registers all routes. A nil ledger makes every data endpoint answer 503.
func New(cfg Config, l Ledger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{ledger: l, health: cfg.HealthCheck, logger: logger}

	mux := http.NewServeMux()
	auth := requireAPIKey(cfg.APIKey)

	mux.Handle("POST /events/pool-created", auth(http.HandlerFunc(s.handlePoolCreated)))
	mux.Handle("POST /events/bet", auth(http.HandlerFunc(s.handleBet)))
	mux.Handle("POST /events/pool-resolved", auth(http.HandlerFunc(s.handlePoolResolved)))

	mux.HandleFunc("GET /pools/latest", s.handleLatestPool)
	mux.HandleFunc("GET /pools/{poolId}/bets", s.handlePoolBets)
	mux.HandleFunc("GET /pools/{poolId}/events", s.handlePoolEvents)
	mux.HandleFunc("GET /pools/{poolId}/summary", s.handlePoolSummary)
	mux.HandleFunc("GET /users/{address}/bets", s.handleUserBets)
	mux.HandleFunc("GET /health", s.handleHealth)

	var h http.Handler = mux
	h = requestLogging(logger)(h)
	h = cors(cfg.CORSOrigins)(h)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"store":     s.ledger != nil,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			status["status"] = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, http.StatusOK, status)
}
