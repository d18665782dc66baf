package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hyperliquid-agent-bot-go/internal/assessment"
	"hyperliquid-agent-bot-go/internal/config"
	"hyperliquid-agent-bot-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Runner runs one assessment for one agent. The orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, agentID string) (*assessment.RunResult, error)
}

// BatchResult summarizes one fan-out over all active agents.
type BatchResult struct {
	Processed   int `json:"processed"`
	Total       int `json:"total"`
	Concurrency int `json:"concurrency"`
}

// Scheduler fans one orchestrator run out per active agent with bounded
// concurrency. One agent's failure never cancels its siblings.
type Scheduler struct {
	db     *gorm.DB
	runner Runner
	cfg    *config.Scheduler
	logger *zap.Logger
}

// NewScheduler creates a scheduler over the given runner.
func NewScheduler(db *gorm.DB, runner Runner, cfg *config.Scheduler, logger *zap.Logger) *Scheduler {
	return &Scheduler{db: db, runner: runner, cfg: cfg, logger: logger}
}

// RunBatch assesses every active agent once and waits for all runs to
// settle. Failed runs are logged and counted out of Processed; they do not
// fail the batch.
func (s *Scheduler) RunBatch(ctx context.Context) (BatchResult, error) {
	concurrency := s.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var agents []models.Agent
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&agents).Error; err != nil {
		return BatchResult{}, fmt.Errorf("load active agents: %w", err)
	}

	s.logger.Info("Scheduler batch starting",
		zap.Int("agents", len(agents)),
		zap.Int("concurrency", concurrency))

	var (
		mu        sync.Mutex
		processed int
	)

	g := &errgroup.Group{}
	g.SetLimit(concurrency)
	for _, agent := range agents {
		g.Go(func() error {
			result, err := s.runner.Run(ctx, agent.ID)
			if err != nil {
				s.logger.Error("Agent assessment failed",
					zap.String("agent", agent.ID),
					zap.String("name", agent.Name),
					zap.Error(err))
				return nil
			}

			mu.Lock()
			processed++
			mu.Unlock()

			s.logger.Info("Agent assessment finished",
				zap.String("agent", agent.ID),
				zap.Bool("skipped", result.Skipped),
				zap.Int("decisions", len(result.TradeResults)))
			return nil
		})
	}
	g.Wait()

	return BatchResult{Processed: processed, Total: len(agents), Concurrency: concurrency}, nil
}

// Start runs batches on a fixed interval until the context is cancelled.
// It is only used when auto-run is enabled; the HTTP trigger works either
// way.
func (s *Scheduler) Start(ctx context.Context) {
	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler loop stopped")
			return
		case <-ticker.C:
			if _, err := s.RunBatch(ctx); err != nil {
				s.logger.Error("Scheduler batch failed", zap.Error(err))
			}
		}
	}
}
