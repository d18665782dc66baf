package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"hyperliquid-agent-bot-go/internal/assessment"
	"hyperliquid-agent-bot-go/internal/llmparse"
	"hyperliquid-agent-bot-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type runAssessmentRequest struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleRunAssessment(w http.ResponseWriter, r *http.Request) {
	var req runAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.AgentID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("agent_id is required"))
		return
	}

	result, err := s.runner.Run(r.Context(), req.AgentID)
	if err != nil {
		s.logger.Error("Assessment run failed",
			zap.String("agent", req.AgentID),
			zap.Error(err))
		if errors.Is(err, assessment.ErrAgentNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

type executeTradeRequest struct {
	AgentID  string               `json:"agent_id"`
	Action   llmparse.TradeAction `json:"action"`
	Simulate bool                 `json:"simulate"`
}

type executeTradeResponse struct {
	Success      bool                     `json:"success"`
	TradeResults []assessment.TradeResult `json:"trade_results"`
	Message      string                   `json:"message,omitempty"`
}

// handleExecuteTrade runs one explicit trade action for an agent without a
// model call, reconciled against the agent's open positions the same way an
// assessment run would be.
func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req executeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.AgentID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("agent_id is required"))
		return
	}

	action, ok := llmparse.ParseActionType(string(req.Action.Action))
	if !ok || action == llmparse.ActionNoAction {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("action %q is not executable", req.Action.Action))
		return
	}
	req.Action.Action = action

	var agent models.Agent
	if err := s.db.First(&agent, "id = ?", req.AgentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", assessment.ErrAgentNotFound, req.AgentID))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	var open []models.TradingTrade
	err := s.db.Where("agent_id = ? AND status = ?", agent.ID, models.TradeStatusOpen).Find(&open).Error
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	decisions := assessment.Plan([]llmparse.TradeAction{req.Action}, open, s.logger)
	if len(decisions) == 0 {
		s.writeJSON(w, http.StatusOK, executeTradeResponse{
			Success:      true,
			TradeResults: []assessment.TradeResult{},
			Message:      "no executable decision",
		})
		return
	}

	results := make([]assessment.TradeResult, 0, len(decisions))
	for _, d := range decisions {
		results = append(results, s.executor.Execute(r.Context(), &agent, d, req.Simulate))
	}

	s.writeJSON(w, http.StatusOK, executeTradeResponse{Success: true, TradeResults: results})
}

func (s *Server) handleScheduler(w http.ResponseWriter, r *http.Request) {
	batch, err := s.batches.RunBatch(r.Context())
	if err != nil {
		s.logger.Error("Scheduler batch failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"processed":   batch.Processed,
		"total":       batch.Total,
		"concurrency": batch.Concurrency,
	})
}
