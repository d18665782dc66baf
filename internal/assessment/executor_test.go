package assessment

import (
	"context"
	"testing"

	"hyperliquid-agent-bot-go/internal/hyperliquid"
	"hyperliquid-agent-bot-go/internal/llmparse"
	"hyperliquid-agent-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockExchange is a mock order submitter.
type MockExchange struct {
	mock.Mock
}

func (m *MockExchange) Order(ctx context.Context, order hyperliquid.OrderRequest, walletKey string, testnet bool) (hyperliquid.OrderResult, error) {
	args := m.Called(order, walletKey, testnet)
	return args.Get(0).(hyperliquid.OrderResult), args.Error(1)
}

// staticAssets resolves every symbol to a fixed meta entry.
type staticAssets struct {
	assets map[string]hyperliquid.AssetMeta
}

func (s staticAssets) Lookup(ctx context.Context, symbol string) (hyperliquid.AssetMeta, error) {
	if a, ok := s.assets[symbol]; ok {
		return a, nil
	}
	return hyperliquid.AssetMeta{}, assert.AnError
}

func setupExecutorTest(t *testing.T) (*gorm.DB, *MockExchange) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.TradingTrade{})
	assert.NoError(t, err)

	return db, new(MockExchange)
}

func TestExecuteOpenWritesLedgerRow(t *testing.T) {
	// Arrange
	db, exchange := setupExecutorTest(t)
	assets := staticAssets{assets: map[string]hyperliquid.AssetMeta{
		"BTC": {Ticker: "BTC", AssetID: 0, SzDecimals: 5, MidPx: 60000},
	}}
	executor := NewExchangeExecutor(db, exchange, assets, zap.NewNop(), 100, false)
	agent := &models.Agent{ID: "a1", WalletKey: "0xkey"}

	exchange.On("Order", mock.Anything, "0xkey", false).Return(hyperliquid.OrderResult{Status: "ok"}, nil)

	// Act
	result := executor.Execute(context.Background(), agent, Decision{
		Action: llmparse.TradeAction{Action: llmparse.ActionOpenLong, Asset: "BTC", Leverage: 2},
	}, false)

	// Assert
	assert.True(t, result.Success)
	assert.False(t, result.Simulated)
	assert.Equal(t, "ok", result.Status)

	var trade models.TradingTrade
	assert.NoError(t, db.First(&trade, "agent_id = ?", "a1").Error)
	assert.Equal(t, "BTC", trade.Asset)
	assert.Equal(t, models.SideLong, trade.Side)
	assert.Equal(t, models.TradeStatusOpen, trade.Status)
	assert.Equal(t, 100.0, trade.Size)
	assert.Equal(t, 2.0, trade.Leverage)
	assert.Equal(t, 60000.0, trade.EntryPrice)
	assert.NotEmpty(t, trade.PositionID)

	exchange.AssertExpectations(t)
}

func TestExecuteUsesAgentNetwork(t *testing.T) {
	// Arrange
	db, exchange := setupExecutorTest(t)
	assets := staticAssets{assets: map[string]hyperliquid.AssetMeta{
		"BTC": {Ticker: "BTC", AssetID: 0, SzDecimals: 5, MidPx: 60000},
	}}
	executor := NewExchangeExecutor(db, exchange, assets, zap.NewNop(), 100, false)
	agent := &models.Agent{ID: "a1", WalletKey: "0xkey", IsTestnet: true}

	exchange.On("Order", mock.Anything, "0xkey", true).Return(hyperliquid.OrderResult{Status: "ok"}, nil)

	// Act
	result := executor.Execute(context.Background(), agent, Decision{
		Action: llmparse.TradeAction{Action: llmparse.ActionOpenLong, Asset: "BTC"},
	}, false)

	// Assert: the agent's network flag reaches the exchange call.
	assert.True(t, result.Success)
	exchange.AssertExpectations(t)
}

func TestExecuteSimulatedSkipsExchange(t *testing.T) {
	// Arrange
	db, exchange := setupExecutorTest(t)
	assets := staticAssets{assets: map[string]hyperliquid.AssetMeta{
		"ETH": {Ticker: "ETH", AssetID: 4, SzDecimals: 4, MidPx: 2500},
	}}
	executor := NewExchangeExecutor(db, exchange, assets, zap.NewNop(), 100, false)
	agent := &models.Agent{ID: "a1"}

	// Act
	result := executor.Execute(context.Background(), agent, Decision{
		Action: llmparse.TradeAction{Action: llmparse.ActionOpenShort, Asset: "ETH"},
	}, true)

	// Assert: no exchange call, but the ledger row still lands.
	assert.True(t, result.Success)
	assert.True(t, result.Simulated)

	var count int64
	db.Model(&models.TradingTrade{}).Count(&count)
	assert.EqualValues(t, 1, count)

	exchange.AssertExpectations(t)
}

func TestExecuteCloseSettlesLedgerRow(t *testing.T) {
	// Arrange
	db, exchange := setupExecutorTest(t)
	assets := staticAssets{assets: map[string]hyperliquid.AssetMeta{
		"ETH": {Ticker: "ETH", AssetID: 4, SzDecimals: 4, MidPx: 2600},
	}}
	executor := NewExchangeExecutor(db, exchange, assets, zap.NewNop(), 100, true)
	agent := &models.Agent{ID: "a1"}

	open := models.TradingTrade{
		ID: "t1", AgentID: "a1", PositionID: "p1", Asset: "ETH",
		Side: models.SideLong, Size: 100, EntryPrice: 2500, Leverage: 2,
		Status: models.TradeStatusOpen,
	}
	db.Create(&open)

	// Act
	result := executor.Execute(context.Background(), agent, Decision{
		Action: llmparse.TradeAction{Action: llmparse.ActionCloseLong, Asset: "ETH"},
		Trade:  &open,
	}, false)

	// Assert: dry-run forces simulation, close settles at the mid price.
	assert.True(t, result.Success)
	assert.True(t, result.Simulated)

	var trade models.TradingTrade
	assert.NoError(t, db.First(&trade, "id = ?", "t1").Error)
	assert.Equal(t, models.TradeStatusClosed, trade.Status)
	assert.NotNil(t, trade.ExitPrice)
	assert.Equal(t, 2600.0, *trade.ExitPrice)
	// quantity = 100 * 2 / 2500 = 0.08; pnl = 0.08 * (2600 - 2500) = 8
	assert.NotNil(t, trade.RealizedPnl)
	assert.InDelta(t, 8.0, *trade.RealizedPnl, 1e-9)
}

func TestExecuteUnknownAssetFails(t *testing.T) {
	// Arrange
	db, exchange := setupExecutorTest(t)
	executor := NewExchangeExecutor(db, exchange, staticAssets{}, zap.NewNop(), 100, true)

	// Act
	result := executor.Execute(context.Background(), &models.Agent{ID: "a1"}, Decision{
		Action: llmparse.TradeAction{Action: llmparse.ActionOpenLong, Asset: "DOGE2"},
	}, false)

	// Assert
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	var count int64
	db.Model(&models.TradingTrade{}).Count(&count)
	assert.Zero(t, count)
}
