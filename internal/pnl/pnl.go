// Package pnl recomputes an agent's account metrics from scratch on every
// run. Nothing here does I/O and nothing is updated incrementally, so two
// calls with the same inputs always produce the same output.
package pnl

import (
	"hyperliquid-agent-bot-go/internal/models"

	"github.com/samber/lo"
)

// Metrics is the derived account state for one agent at one instant.
type Metrics struct {
	RealizedPnl   float64 `json:"realizedPnl"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
	AccountValue  float64 `json:"accountValue"`
	MarginUsed    float64 `json:"marginUsed"`
	RemainingCash float64 `json:"remainingCash"`
}

// PositionQuantity derives the underlying asset quantity of a position from
// its margin collateral, leverage, and entry price. Any zero input yields 0
// rather than dividing by zero.
func PositionQuantity(collateral, leverage, entryPrice float64) float64 {
	if collateral == 0 || leverage == 0 || entryPrice == 0 {
		return 0
	}
	return (collateral * leverage) / entryPrice
}

// Unrealized sums the mark-to-market PnL of the open trades against the
// given price map. Trades whose asset has no price this run are skipped;
// an untracked asset must not poison the whole computation.
func Unrealized(open []models.TradingTrade, prices map[string]float64) float64 {
	total := 0.0
	for _, t := range open {
		price, ok := prices[t.Asset]
		if !ok {
			continue
		}
		qty := PositionQuantity(t.Size, t.Leverage, t.EntryPrice)
		direction := 1.0
		if t.Side == models.SideShort {
			direction = -1.0
		}
		total += direction * qty * (price - t.EntryPrice)
	}
	return total
}

// Realized sums the recorded realized PnL of closed trades, treating a
// missing value as 0.
func Realized(closed []models.TradingTrade) float64 {
	return lo.SumBy(closed, func(t models.TradingTrade) float64 {
		if t.RealizedPnl == nil {
			return 0
		}
		return *t.RealizedPnl
	})
}

// MarginUsed sums the collateral committed to open trades. Size denotes
// margin collateral, not underlying quantity; see models.TradingTrade.
func MarginUsed(open []models.TradingTrade) float64 {
	return lo.SumBy(open, func(t models.TradingTrade) float64 { return t.Size })
}

// Compute derives the full metric set for one agent.
func Compute(initialCapital float64, open, closed []models.TradingTrade, prices map[string]float64) Metrics {
	realized := Realized(closed)
	unrealized := Unrealized(open, prices)
	margin := MarginUsed(open)
	accountValue := initialCapital + realized + unrealized

	return Metrics{
		RealizedPnl:   realized,
		UnrealizedPnl: unrealized,
		AccountValue:  accountValue,
		MarginUsed:    margin,
		RemainingCash: accountValue - margin,
	}
}
