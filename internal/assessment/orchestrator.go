package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hyperliquid-agent-bot-go/internal/config"
	"hyperliquid-agent-bot-go/internal/hyperliquid"
	"hyperliquid-agent-bot-go/internal/llm"
	"hyperliquid-agent-bot-go/internal/llmparse"
	"hyperliquid-agent-bot-go/internal/models"
	"hyperliquid-agent-bot-go/internal/numeric"
	"hyperliquid-agent-bot-go/internal/pnl"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrAgentNotFound is returned when the requested agent row does not exist.
var ErrAgentNotFound = errors.New("agent not found")

// MarketData is the read surface of the exchange the orchestrator needs.
type MarketData interface {
	Refresh(ctx context.Context) error
	Snapshot() []hyperliquid.MarketAsset
	Candles(ctx context.Context, coin, interval string, limit int) ([]hyperliquid.Candle, error)
	Positions(ctx context.Context, address string) ([]hyperliquid.Position, error)
}

// ProviderResolver picks the LLM backend for an agent.
type ProviderResolver interface {
	Resolve(name string) llm.Provider
}

// RunResult is the outcome of one agent assessment run.
type RunResult struct {
	Success      bool                   `json:"success"`
	AssessmentID string                 `json:"assessment_id,omitempty"`
	AgentName    string                 `json:"agent_name,omitempty"`
	TradeActions []llmparse.TradeAction `json:"trade_actions"`
	TradeResults []TradeResult          `json:"trade_results"`
	Skipped      bool                   `json:"skipped,omitempty"`
	Message      string                 `json:"message,omitempty"`
}

// Orchestrator runs the full assessment sequence for one agent: load state,
// build the prompt, call the model, persist the assessment, recompute PnL,
// and execute whatever decisions survive reconciliation.
type Orchestrator struct {
	db        *gorm.DB
	providers ProviderResolver
	market    MarketData
	executor  TradeExecutor
	trading   *config.Trading
	logger    *zap.Logger
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(db *gorm.DB, providers ProviderResolver, market MarketData, executor TradeExecutor, trading *config.Trading, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		db:        db,
		providers: providers,
		market:    market,
		executor:  executor,
		trading:   trading,
		logger:    logger,
	}
}

// agentState is the joined result of the concurrent state loads.
type agentState struct {
	open     []models.TradingTrade
	closed   []models.TradingTrade
	market   []hyperliquid.MarketAsset
	exchange []hyperliquid.Position
	candles  map[string][]hyperliquid.Candle
}

// Run executes one assessment for the given agent. A model or exchange
// failure is fatal for this run only; the caller decides whether that fails
// anything else.
func (o *Orchestrator) Run(ctx context.Context, agentID string) (*RunResult, error) {
	var agent models.Agent
	if err := o.db.First(&agent, "id = ?", agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
		}
		return nil, fmt.Errorf("load agent %s: %w", agentID, err)
	}

	if !agent.IsActive {
		o.logger.Info("Agent inactive, skipping assessment", zap.String("agent", agent.ID))
		return &RunResult{Success: true, Skipped: true, AgentName: agent.Name, Message: "Agent inactive"}, nil
	}

	state, err := o.loadState(ctx, &agent)
	if err != nil {
		return nil, err
	}

	assessmentType := models.AssessmentMarketScan
	if len(state.open) > 0 {
		assessmentType = models.AssessmentPositionReview
	}

	prices := make(map[string]float64, len(state.market))
	for _, a := range state.market {
		prices[a.Symbol] = a.Price
	}

	capital := agent.InitialCapital
	if capital <= 0 {
		capital = o.trading.InitialCapital
	}
	metrics := pnl.Compute(capital, state.open, state.closed, prices)

	prompt, err := ResolvePrompt(o.db, &agent)
	if err != nil {
		return nil, err
	}
	userQuery := BuildUserQuery(prompt.UserTemplate, PromptContext{
		AgentName:         agent.Name,
		MarketPrices:      state.market,
		Candles:           state.candles,
		OpenPositions:     state.open,
		ClosedTrades:      state.closed,
		ExchangePositions: state.exchange,
		Metrics:           metrics,
	})

	provider := o.providers.Resolve(agent.ModelProvider)
	resp, err := provider.Call(ctx, prompt.SystemInstruction, userQuery, agent.ModelName)
	if err != nil {
		return nil, fmt.Errorf("model call for agent %s: %w", agent.ID, err)
	}

	actions := o.deriveActions(resp.Text, agent.ID)

	assessmentID, err := o.persistAssessment(&agent, assessmentType, state, resp.Text, userQuery, actions)
	if err != nil {
		return nil, err
	}

	o.persistSnapshot(agent.ID, metrics)

	decisions := Plan(actions, state.open, o.logger)
	results := make([]TradeResult, 0, len(decisions))
	for _, d := range decisions {
		results = append(results, o.executor.Execute(ctx, &agent, d, false))
	}

	return &RunResult{
		Success:      true,
		AssessmentID: assessmentID,
		AgentName:    agent.Name,
		TradeActions: actions,
		TradeResults: results,
	}, nil
}

// loadState fetches ledger rows and market data concurrently and joins them.
// Any single failure aborts the run; an assessment over partial state is
// worse than no assessment. Candle history follows in a second wave since
// the coin list depends on the agent's open positions.
func (o *Orchestrator) loadState(ctx context.Context, agent *models.Agent) (*agentState, error) {
	state := &agentState{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.db.WithContext(gctx).
			Where("agent_id = ? AND status = ?", agent.ID, models.TradeStatusOpen).
			Order("entry_timestamp asc").
			Find(&state.open).Error
		if err != nil {
			return fmt.Errorf("load open trades: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := o.db.WithContext(gctx).
			Where("agent_id = ? AND status = ?", agent.ID, models.TradeStatusClosed).
			Order("exit_timestamp desc").
			Limit(50).
			Find(&state.closed).Error
		if err != nil {
			return fmt.Errorf("load closed trades: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := o.market.Refresh(gctx); err != nil {
			return fmt.Errorf("load market data: %w", err)
		}
		state.market = o.market.Snapshot()
		return nil
	})

	if agent.WalletAddress != "" {
		g.Go(func() error {
			positions, err := o.market.Positions(gctx, agent.WalletAddress)
			if err != nil {
				return fmt.Errorf("load exchange positions: %w", err)
			}
			state.exchange = positions
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := o.loadCandles(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// loadCandles fetches candle history for the market-pulse coin plus every
// coin the agent currently holds.
func (o *Orchestrator) loadCandles(ctx context.Context, state *agentState) error {
	pulse := o.trading.CandleCoin
	if pulse == "" {
		pulse = "BTC"
	}

	coins := []string{pulse}
	seen := map[string]struct{}{pulse: {}}
	for _, trade := range state.open {
		if _, ok := seen[trade.Asset]; ok {
			continue
		}
		seen[trade.Asset] = struct{}{}
		coins = append(coins, trade.Asset)
	}

	var mu sync.Mutex
	state.candles = make(map[string][]hyperliquid.Candle, len(coins))

	g, gctx := errgroup.WithContext(ctx)
	for _, coin := range coins {
		g.Go(func() error {
			candles, err := o.market.Candles(gctx, coin, o.trading.CandleInterval, o.trading.CandleLimit)
			if err != nil {
				return fmt.Errorf("load candles for %s: %w", coin, err)
			}
			mu.Lock()
			state.candles[coin] = candles
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// deriveActions extracts trade actions from the model text, falling back to
// the legacy token format when structured parsing yields nothing.
func (o *Orchestrator) deriveActions(text, agentID string) []llmparse.TradeAction {
	if parsed := llmparse.Normalize(text); parsed != nil {
		return parsed.TradeActions
	}

	token := llmparse.ParseLegacyAction(text)
	o.logger.Warn("Structured parse failed, using legacy action",
		zap.String("agent", agentID),
		zap.String("token", token))

	if action, ok := llmparse.ActionFromLegacy(token); ok {
		return []llmparse.TradeAction{action}
	}
	return nil
}

// persistAssessment writes the audit row. The raw model text is stored even
// when nothing parseable came out of it.
func (o *Orchestrator) persistAssessment(agent *models.Agent, assessmentType string, state *agentState, responseText, promptUsed string, actions []llmparse.TradeAction) (string, error) {
	actionTaken := string(llmparse.ActionNoAction)
	if len(actions) > 0 {
		actionTaken = string(actions[0].Action)
		if actions[0].Asset != "" {
			actionTaken += "_" + actions[0].Asset
		}
	}

	row := models.Assessment{
		ID:                 uuid.NewString(),
		AgentID:            agent.ID,
		Timestamp:          time.Now().UTC(),
		Type:               assessmentType,
		MarketDataSnapshot: marshalOrEmpty(state.market),
		LLMPromptUsed:      promptUsed,
		LLMResponseText:    responseText,
		ParsedLLMResponse:  marshalOrEmpty(actions),
		TradeActionTaken:   actionTaken,
	}
	if err := o.db.Create(&row).Error; err != nil {
		return "", fmt.Errorf("persist assessment: %w", err)
	}
	return row.ID, nil
}

// persistSnapshot stores sanitized account metrics. A snapshot failure is
// logged and swallowed; the trading decision has already been made.
func (o *Orchestrator) persistSnapshot(agentID string, metrics pnl.Metrics) {
	opts := numeric.Options{AllowNegative: true, Logger: o.logger}

	row := models.PnLSnapshot{
		ID:            uuid.NewString(),
		AgentID:       agentID,
		Timestamp:     time.Now().UTC(),
		RealizedPnl:   numeric.Sanitize(metrics.RealizedPnl, opts),
		UnrealizedPnl: numeric.Sanitize(metrics.UnrealizedPnl, opts),
		AccountValue:  numeric.Sanitize(metrics.AccountValue, opts),
		MarginUsed:    numeric.Sanitize(metrics.MarginUsed, numeric.Options{Logger: o.logger}),
		RemainingCash: numeric.Sanitize(metrics.RemainingCash, opts),
	}
	if err := o.db.Create(&row).Error; err != nil {
		o.logger.Error("Failed to persist pnl snapshot",
			zap.String("agent", agentID),
			zap.Error(err))
	}
}

func marshalOrEmpty(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
