package assessment

import (
	"context"
	"fmt"
	"time"

	"hyperliquid-agent-bot-go/internal/hyperliquid"
	"hyperliquid-agent-bot-go/internal/llmparse"
	"hyperliquid-agent-bot-go/internal/models"
	"hyperliquid-agent-bot-go/internal/pnl"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TradeResult is the per-decision outcome returned to the caller. A failed
// decision carries its error here instead of failing the whole run.
type TradeResult struct {
	Action    llmparse.ActionType `json:"action"`
	Asset     string              `json:"asset"`
	Success   bool                `json:"success"`
	Simulated bool                `json:"simulated,omitempty"`
	Status    string              `json:"status,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// TradeExecutor submits one reconciled decision. simulate skips the exchange
// call but still records the trade in the ledger.
type TradeExecutor interface {
	Execute(ctx context.Context, agent *models.Agent, d Decision, simulate bool) TradeResult
}

// OrderSubmitter is the exchange write surface the executor needs. The
// testnet flag routes each order to the network the agent is flagged for.
type OrderSubmitter interface {
	Order(ctx context.Context, order hyperliquid.OrderRequest, walletKey string, testnet bool) (hyperliquid.OrderResult, error)
}

// AssetSource resolves asset metadata for order building.
type AssetSource interface {
	Lookup(ctx context.Context, symbol string) (hyperliquid.AssetMeta, error)
}

// ExchangeExecutor maps decisions to exchange orders and keeps the trade
// ledger in sync. With DryRun set every decision is simulated regardless of
// the per-call flag, so a paper-trading deployment still accrues ledger
// history and PnL.
type ExchangeExecutor struct {
	db       *gorm.DB
	exchange OrderSubmitter
	assets   AssetSource
	logger   *zap.Logger

	tradeAmount float64
	dryRun      bool
}

// NewExchangeExecutor creates an executor around the given exchange client.
func NewExchangeExecutor(db *gorm.DB, exchange OrderSubmitter, assets AssetSource, logger *zap.Logger, tradeAmount float64, dryRun bool) *ExchangeExecutor {
	return &ExchangeExecutor{
		db:          db,
		exchange:    exchange,
		assets:      assets,
		logger:      logger,
		tradeAmount: tradeAmount,
		dryRun:      dryRun,
	}
}

// Execute maps one decision to an order, optionally submits it, and records
// the outcome in the trading ledger.
func (e *ExchangeExecutor) Execute(ctx context.Context, agent *models.Agent, d Decision, simulate bool) TradeResult {
	result := TradeResult{Action: d.Action.Action, Asset: d.Action.Asset}
	simulate = simulate || e.dryRun

	asset, err := e.assets.Lookup(ctx, d.Action.Asset)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var pos *hyperliquid.Position
	if d.Trade != nil {
		pos = ledgerPosition(d.Trade)
	}

	order, err := hyperliquid.ToOrder(asset, d.Action, pos, hyperliquid.MapOpts{DefaultTradeAmount: e.tradeAmount})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if simulate {
		result.Simulated = true
		result.Status = "ok"
	} else {
		res, err := e.exchange.Order(ctx, order, agent.WalletKey, agent.IsTestnet)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Status = res.Status
	}

	if err := e.record(agent, d, asset); err != nil {
		result.Error = err.Error()
		return result
	}

	e.logger.Info("Trade executed",
		zap.String("agent", agent.ID),
		zap.String("action", string(d.Action.Action)),
		zap.String("asset", d.Action.Asset),
		zap.Bool("simulated", result.Simulated))

	result.Success = true
	return result
}

// record writes the ledger side of an executed decision: opens insert a new
// row, closes settle the matched one.
func (e *ExchangeExecutor) record(agent *models.Agent, d Decision, asset hyperliquid.AssetMeta) error {
	now := time.Now().UTC()

	if d.Action.Action.IsOpen() {
		side := models.SideLong
		if d.Action.Action == llmparse.ActionOpenShort {
			side = models.SideShort
		}

		size := d.Action.Size
		if size <= 0 {
			size = e.tradeAmount
		}
		leverage := d.Action.Leverage
		if leverage <= 0 {
			leverage = 1
		}
		entry := d.Action.Entry
		if entry <= 0 {
			entry = asset.MidPx
		}

		trade := models.TradingTrade{
			ID:             uuid.NewString(),
			AgentID:        agent.ID,
			PositionID:     uuid.NewString(),
			Asset:          asset.Ticker,
			Side:           side,
			Size:           size,
			EntryPrice:     entry,
			EntryTimestamp: now,
			Leverage:       leverage,
			Status:         models.TradeStatusOpen,
		}
		if err := e.db.Create(&trade).Error; err != nil {
			return fmt.Errorf("record open trade: %w", err)
		}
		return nil
	}

	trade := d.Trade
	exit := d.Action.Entry
	if exit <= 0 {
		exit = asset.MidPx
	}

	direction := 1.0
	if trade.Side == models.SideShort {
		direction = -1
	}
	quantity := pnl.PositionQuantity(trade.Size, trade.Leverage, trade.EntryPrice)
	realized := direction * quantity * (exit - trade.EntryPrice)

	updates := map[string]any{
		"status":         models.TradeStatusClosed,
		"exit_price":     exit,
		"exit_timestamp": now,
		"realized_pnl":   realized,
	}
	if err := e.db.Model(&models.TradingTrade{}).Where("id = ?", trade.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("record close trade: %w", err)
	}
	return nil
}

// ledgerPosition converts an open ledger row into the signed position view
// the order mapper expects.
func ledgerPosition(trade *models.TradingTrade) *hyperliquid.Position {
	quantity := pnl.PositionQuantity(trade.Size, trade.Leverage, trade.EntryPrice)
	if trade.Side == models.SideShort {
		quantity = -quantity
	}
	return &hyperliquid.Position{
		Coin:       trade.Asset,
		Szi:        quantity,
		EntryPx:    trade.EntryPrice,
		Leverage:   trade.Leverage,
		MarginUsed: trade.Size,
	}
}
