package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hyperliquid-agent-bot-go/internal/assessment"
	"hyperliquid-agent-bot-go/internal/config"
	"hyperliquid-agent-bot-go/internal/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssessmentRunner runs one agent assessment. The orchestrator satisfies it.
type AssessmentRunner interface {
	Run(ctx context.Context, agentID string) (*assessment.RunResult, error)
}

// BatchRunner triggers one scheduler fan-out.
type BatchRunner interface {
	RunBatch(ctx context.Context) (scheduler.BatchResult, error)
}

// Server is the HTTP edge of the agent pipeline.
type Server struct {
	db        *gorm.DB
	runner    AssessmentRunner
	batches   BatchRunner
	executor  assessment.TradeExecutor
	auth      Authenticator
	logger    *zap.Logger
	httpServe *http.Server
}

// NewServer wires the HTTP surface from its collaborators.
func NewServer(cfg *config.Config, db *gorm.DB, runner AssessmentRunner, batches BatchRunner, executor assessment.TradeExecutor, logger *zap.Logger) *Server {
	s := &Server{
		db:       db,
		runner:   runner,
		batches:  batches,
		executor: executor,
		auth:     ServiceKeyAuth{Key: cfg.Auth.ServiceKey},
		logger:   logger,
	}
	s.httpServe = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/run_agent_assessment", s.requireAuth(s.handleRunAssessment))
	r.Post("/execute_hyperliquid_trade", s.requireAuth(s.handleExecuteTrade))
	r.Post("/agent_scheduler", s.requireAuth(s.handleScheduler))

	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServe.Addr))
	err := s.httpServe.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServe.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
