package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hyperliquid-agent-bot-go/internal/hyperliquid"
	"hyperliquid-agent-bot-go/internal/models"
	"hyperliquid-agent-bot-go/internal/pnl"

	"gorm.io/gorm"
)

// DefaultSystemInstruction is the built-in system prompt used when no prompt
// row can be resolved for an agent. The default prompt row seeded at
// migration time carries the same text.
const DefaultSystemInstruction = `You are a disciplined perpetual-futures trading agent on Hyperliquid.
You manage an isolated account and decide at most a handful of trades per assessment.
Respond with a single JSON object:
{
  "headline": {"short_summary": "...", "extended_summary": "...", "thesis": "...", "sentiment_word": "...", "sentiment_score": 0.0},
  "overview": {"macro": "...", "market_structure": "...", "technical_analysis": "..."},
  "tradeActions": [{"action": "OPEN_LONG|OPEN_SHORT|CLOSE_LONG|CLOSE_SHORT|NO_ACTION", "asset": "BTC", "leverage": 2, "size": 100, "entry": 0, "reasoning": "..."}]
}
Use NO_ACTION when nothing is worth doing. Never invent assets that are not listed in the market data.`

// DefaultUserTemplate is the built-in user-query template. Placeholders are
// substituted textually before the model call.
const DefaultUserTemplate = `Current market data:
{{MARKET_PRICES}}

Recent candles:
{{CANDLE_HISTORY}}

Your open positions:
{{OPEN_POSITIONS}}

Exchange-reported positions for your wallet:
{{EXCHANGE_POSITIONS}}

Your closed trades:
{{CLOSED_TRADES}}

Your account metrics:
{{ACCOUNT_METRICS}}

Assess the market and your positions, then decide.`

// PromptContext carries everything the user template can reference. Candles
// are keyed by coin: the market-pulse coin plus whatever the agent holds.
type PromptContext struct {
	AgentName         string
	MarketPrices      []hyperliquid.MarketAsset
	Candles           map[string][]hyperliquid.Candle
	OpenPositions     []models.TradingTrade
	ClosedTrades      []models.TradingTrade
	ExchangePositions []hyperliquid.Position
	Metrics           pnl.Metrics
}

// ResolvePrompt returns the prompt to use for an agent. Resolution order is
// the agent's own prompt row, then the seeded default row, then the built-in
// constants. It never fails on a missing row, only on a broken store.
func ResolvePrompt(db *gorm.DB, agent *models.Agent) (models.Prompt, error) {
	if agent.PromptID != nil && *agent.PromptID != "" {
		var prompt models.Prompt
		err := db.First(&prompt, "id = ?", *agent.PromptID).Error
		if err == nil {
			return prompt, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Prompt{}, fmt.Errorf("load prompt %s: %w", *agent.PromptID, err)
		}
	}

	var prompt models.Prompt
	err := db.First(&prompt, "is_default = ?", true).Error
	if err == nil {
		return prompt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Prompt{}, fmt.Errorf("load default prompt: %w", err)
	}

	return models.Prompt{
		Name:              "builtin",
		SystemInstruction: DefaultSystemInstruction,
		UserTemplate:      DefaultUserTemplate,
	}, nil
}

// BuildUserQuery substitutes the template placeholders with serialized state.
func BuildUserQuery(template string, pctx PromptContext) string {
	replacer := strings.NewReplacer(
		"{{AGENT_NAME}}", pctx.AgentName,
		"{{MARKET_PRICES}}", asJSON(pctx.MarketPrices),
		"{{CANDLE_HISTORY}}", asJSON(pctx.Candles),
		"{{OPEN_POSITIONS}}", asJSON(pctx.OpenPositions),
		"{{CLOSED_TRADES}}", asJSON(pctx.ClosedTrades),
		"{{EXCHANGE_POSITIONS}}", asJSON(pctx.ExchangePositions),
		"{{ACCOUNT_METRICS}}", asJSON(pctx.Metrics),
	)
	return replacer.Replace(template)
}

func asJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
