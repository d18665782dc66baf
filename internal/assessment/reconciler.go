package assessment

import (
	"strings"

	"hyperliquid-agent-bot-go/internal/llmparse"
	"hyperliquid-agent-bot-go/internal/models"

	"go.uber.org/zap"
)

// Decision is one executable trade resolved against the agent's ledger. For
// close decisions Trade is the open ledger row being closed; for opens it is
// nil.
type Decision struct {
	Action llmparse.TradeAction
	Trade  *models.TradingTrade
}

// Plan reconciles the model's trade actions against the agent's open
// positions and returns the decisions that can actually execute.
//
// Opens always pass through, including a second open on an asset the agent
// already holds. Pyramiding is the model's call, not the reconciler's. A
// close with no matching open position is a logged no-op. Order is preserved
// so a close followed by an open on the same asset executes in that order.
func Plan(actions []llmparse.TradeAction, open []models.TradingTrade, logger *zap.Logger) []Decision {
	decisions := make([]Decision, 0, len(actions))

	for _, action := range actions {
		switch {
		case action.Action.IsOpen():
			decisions = append(decisions, Decision{Action: action})

		case action.Action.IsClose():
			trade := matchOpen(open, action.Asset)
			if trade == nil {
				logger.Warn("Close action has no matching open position",
					zap.String("action", string(action.Action)),
					zap.String("asset", action.Asset))
				continue
			}
			decisions = append(decisions, Decision{Action: action, Trade: trade})

		default:
			// NO_ACTION is informational only.
		}
	}

	return decisions
}

// matchOpen finds the first open ledger row for an asset. Matching is by
// asset alone since legacy close tokens carry no direction.
func matchOpen(open []models.TradingTrade, asset string) *models.TradingTrade {
	key := strings.ToUpper(strings.TrimSpace(asset))
	for i := range open {
		if strings.ToUpper(open[i].Asset) == key {
			return &open[i]
		}
	}
	return nil
}
