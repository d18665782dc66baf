package assessment

import (
	"context"
	"testing"

	"hyperliquid-agent-bot-go/internal/config"
	"hyperliquid-agent-bot-go/internal/hyperliquid"
	"hyperliquid-agent-bot-go/internal/llm"
	"hyperliquid-agent-bot-go/internal/llmparse"
	"hyperliquid-agent-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockProvider is a mock LLM backend.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Call(ctx context.Context, systemInstruction, userQuery, model string) (llm.Response, error) {
	args := m.Called(systemInstruction, userQuery, model)
	return args.Get(0).(llm.Response), args.Error(1)
}

// staticResolver returns the same provider for every name.
type staticResolver struct{ p llm.Provider }

func (r staticResolver) Resolve(string) llm.Provider { return r.p }

// MockMarket is a mock exchange read surface.
type MockMarket struct {
	mock.Mock
}

func (m *MockMarket) Refresh(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockMarket) Snapshot() []hyperliquid.MarketAsset {
	return m.Called().Get(0).([]hyperliquid.MarketAsset)
}

func (m *MockMarket) Candles(ctx context.Context, coin, interval string, limit int) ([]hyperliquid.Candle, error) {
	args := m.Called(coin, interval, limit)
	return args.Get(0).([]hyperliquid.Candle), args.Error(1)
}

func (m *MockMarket) Positions(ctx context.Context, address string) ([]hyperliquid.Position, error) {
	args := m.Called(address)
	return args.Get(0).([]hyperliquid.Position), args.Error(1)
}

// MockExecutor records decisions without touching any exchange.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, agent *models.Agent, d Decision, simulate bool) TradeResult {
	args := m.Called(agent, d, simulate)
	return args.Get(0).(TradeResult)
}

func setupOrchestratorTest(t *testing.T) (*gorm.DB, *MockProvider, *MockMarket, *MockExecutor, *Orchestrator) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Agent{}, &models.TradingTrade{}, &models.Assessment{}, &models.PnLSnapshot{}, &models.Prompt{})
	assert.NoError(t, err)

	provider := new(MockProvider)
	market := new(MockMarket)
	executor := new(MockExecutor)

	trading := &config.Trading{InitialCapital: 1000, DefaultTradeAmount: 100, CandleInterval: "1h", CandleLimit: 24, CandleCoin: "BTC"}
	orch := NewOrchestrator(db, staticResolver{provider}, market, executor, trading, zap.NewNop())

	return db, provider, market, executor, orch
}

func TestRunAgentNotFound(t *testing.T) {
	_, _, _, _, orch := setupOrchestratorTest(t)

	_, err := orch.Run(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestRunInactiveAgentSkips(t *testing.T) {
	// Arrange
	db, provider, market, executor, orch := setupOrchestratorTest(t)
	db.Create(&models.Agent{ID: "a1", Name: "sleeper", IsActive: false})

	// Act
	result, err := orch.Run(context.Background(), "a1")

	// Assert: no market fetch, no model call, no execution, no cost.
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Skipped)
	assert.Equal(t, "Agent inactive", result.Message)
	assert.Equal(t, "sleeper", result.AgentName)
	provider.AssertExpectations(t)
	market.AssertExpectations(t)
	executor.AssertExpectations(t)

	var count int64
	db.Model(&models.Assessment{}).Count(&count)
	assert.Zero(t, count)
}

func TestRunMarketScanOpensPosition(t *testing.T) {
	// Arrange
	db, provider, market, executor, orch := setupOrchestratorTest(t)
	db.Create(&models.Agent{ID: "a1", Name: "scout", IsActive: true, ModelProvider: "google", InitialCapital: 1000})

	market.On("Refresh").Return(nil)
	market.On("Snapshot").Return([]hyperliquid.MarketAsset{
		{Symbol: "BTC", Price: 60000, Change24h: 1.2},
	})
	market.On("Candles", "BTC", "1h", 24).Return([]hyperliquid.Candle{}, nil)

	provider.On("Call", mock.Anything, mock.Anything, mock.Anything).Return(llm.Response{
		Text: "Market looks strong.\n```json\n{\"headline\": {\"short_summary\": \"up only\"}, \"tradeActions\": [{\"action\": \"OPEN_LONG\", \"asset\": \"BTC\", \"leverage\": 2}]}\n```",
	}, nil)

	executor.On("Execute", mock.Anything, mock.Anything, false).Return(TradeResult{
		Action: llmparse.ActionOpenLong, Asset: "BTC", Success: true, Simulated: true, Status: "ok",
	})

	// Act
	result, err := orch.Run(context.Background(), "a1")

	// Assert
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Skipped)
	assert.Len(t, result.TradeActions, 1)
	assert.Len(t, result.TradeResults, 1)
	assert.True(t, result.TradeResults[0].Success)

	var row models.Assessment
	assert.NoError(t, db.First(&row, "id = ?", result.AssessmentID).Error)
	assert.Equal(t, models.AssessmentMarketScan, row.Type)
	assert.Contains(t, row.LLMResponseText, "OPEN_LONG")
	assert.Equal(t, "OPEN_LONG_BTC", row.TradeActionTaken)

	var snapshots int64
	db.Model(&models.PnLSnapshot{}).Count(&snapshots)
	assert.EqualValues(t, 1, snapshots)

	provider.AssertExpectations(t)
	market.AssertExpectations(t)
	executor.AssertExpectations(t)
}

func TestRunPositionReviewUsesLegacyFallback(t *testing.T) {
	// Arrange
	db, provider, market, executor, orch := setupOrchestratorTest(t)
	db.Create(&models.Agent{ID: "a1", Name: "closer", IsActive: true, InitialCapital: 1000})
	db.Create(&models.TradingTrade{
		ID: "t1", AgentID: "a1", PositionID: "p1", Asset: "ETH",
		Side: models.SideLong, Size: 100, EntryPrice: 2500, Leverage: 2,
		Status: models.TradeStatusOpen,
	})

	market.On("Refresh").Return(nil)
	market.On("Snapshot").Return([]hyperliquid.MarketAsset{{Symbol: "ETH", Price: 2600}})
	market.On("Candles", "BTC", "1h", 24).Return([]hyperliquid.Candle{}, nil)
	market.On("Candles", "ETH", "1h", 24).Return([]hyperliquid.Candle{}, nil)

	// No JSON anywhere, only a legacy token.
	provider.On("Call", mock.Anything, mock.Anything, mock.Anything).Return(llm.Response{
		Text: "Time to take profit. CLOSE_ETH",
	}, nil)

	executor.On("Execute", mock.Anything, mock.Anything, false).Return(TradeResult{
		Action: llmparse.ActionCloseLong, Asset: "ETH", Success: true,
	})

	// Act
	result, err := orch.Run(context.Background(), "a1")

	// Assert
	assert.NoError(t, err)
	assert.Len(t, result.TradeResults, 1)

	var row models.Assessment
	assert.NoError(t, db.First(&row, "id = ?", result.AssessmentID).Error)
	assert.Equal(t, models.AssessmentPositionReview, row.Type)

	// Held assets get their own candle fetch alongside the pulse coin.
	market.AssertCalled(t, "Candles", "ETH", "1h", 24)
	executor.AssertExpectations(t)
}

func TestRunFetchesExchangePositionsForWallet(t *testing.T) {
	// Arrange
	db, provider, market, _, orch := setupOrchestratorTest(t)
	db.Create(&models.Agent{
		ID: "a1", Name: "audited", IsActive: true,
		WalletAddress: "0xabc", InitialCapital: 1000,
	})

	market.On("Refresh").Return(nil)
	market.On("Snapshot").Return([]hyperliquid.MarketAsset{})
	market.On("Candles", "BTC", "1h", 24).Return([]hyperliquid.Candle{}, nil)
	market.On("Positions", "0xabc").Return([]hyperliquid.Position{
		{Coin: "BTC", Szi: 0.5, EntryPx: 59000},
	}, nil)

	provider.On("Call", mock.Anything, mock.Anything, mock.Anything).Return(llm.Response{
		Text: `{"tradeActions": []}`,
	}, nil)

	// Act
	result, err := orch.Run(context.Background(), "a1")

	// Assert: exchange-reported positions are fetched for the wallet.
	assert.NoError(t, err)
	assert.True(t, result.Success)
	market.AssertCalled(t, "Positions", "0xabc")
}

func TestRunFallsBackToConfiguredCapital(t *testing.T) {
	// Arrange
	db, provider, market, _, orch := setupOrchestratorTest(t)
	db.Create(&models.Agent{ID: "a1", Name: "fresh", IsActive: true, InitialCapital: 0})

	market.On("Refresh").Return(nil)
	market.On("Snapshot").Return([]hyperliquid.MarketAsset{})
	market.On("Candles", "BTC", "1h", 24).Return([]hyperliquid.Candle{}, nil)
	provider.On("Call", mock.Anything, mock.Anything, mock.Anything).Return(llm.Response{
		Text: `{"tradeActions": []}`,
	}, nil)

	// Act
	_, err := orch.Run(context.Background(), "a1")

	// Assert: an agent without its own capital uses the configured default.
	assert.NoError(t, err)
	var snap models.PnLSnapshot
	assert.NoError(t, db.First(&snap, "agent_id = ?", "a1").Error)
	assert.Equal(t, 1000.0, snap.AccountValue)
}

func TestRunModelFailureIsFatalForRun(t *testing.T) {
	// Arrange
	db, provider, market, _, orch := setupOrchestratorTest(t)
	db.Create(&models.Agent{ID: "a1", Name: "unlucky", IsActive: true})

	market.On("Refresh").Return(nil)
	market.On("Snapshot").Return([]hyperliquid.MarketAsset{})
	market.On("Candles", "BTC", "1h", 24).Return([]hyperliquid.Candle{}, nil)
	provider.On("Call", mock.Anything, mock.Anything, mock.Anything).Return(llm.Response{}, assert.AnError)

	// Act
	_, err := orch.Run(context.Background(), "a1")

	// Assert: the run fails and nothing is persisted.
	assert.Error(t, err)
	var count int64
	db.Model(&models.Assessment{}).Count(&count)
	assert.Zero(t, count)
}
