// Package llmparse turns raw model output into typed trade intents. Model
// replies arrive as JSON, fenced JSON, or legacy free text; parsing is
// tolerant by design and never returns an error. The worst possible outcome
// of a malformed reply is NO_ACTION.
package llmparse

import "strings"

// ActionType enumerates the decisions a model may emit.
type ActionType string

const (
	ActionOpenLong   ActionType = "OPEN_LONG"
	ActionOpenShort  ActionType = "OPEN_SHORT"
	ActionCloseLong  ActionType = "CLOSE_LONG"
	ActionCloseShort ActionType = "CLOSE_SHORT"
	ActionNoAction   ActionType = "NO_ACTION"
)

// ParseActionType maps free-form action text onto the enum,
// case-insensitively. The second return is false for unknown values.
func ParseActionType(s string) (ActionType, bool) {
	switch ActionType(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionOpenLong:
		return ActionOpenLong, true
	case ActionOpenShort:
		return ActionOpenShort, true
	case ActionCloseLong:
		return ActionCloseLong, true
	case ActionCloseShort:
		return ActionCloseShort, true
	case ActionNoAction:
		return ActionNoAction, true
	}
	return "", false
}

// IsOpen reports whether the action opens a new position.
func (a ActionType) IsOpen() bool {
	return a == ActionOpenLong || a == ActionOpenShort
}

// IsClose reports whether the action closes an existing position.
func (a ActionType) IsClose() bool {
	return a == ActionCloseLong || a == ActionCloseShort
}

// TradeAction is one normalized decision unit. Any action other than
// NO_ACTION must carry a non-empty Asset; entries violating that are dropped
// during normalization.
type TradeAction struct {
	Action          ActionType `json:"action"`
	Asset           string     `json:"asset,omitempty"`
	Leverage        float64    `json:"leverage,omitempty"`
	Size            float64    `json:"size,omitempty"`
	Entry           float64    `json:"entry,omitempty"`
	StopLoss        float64    `json:"stopLoss,omitempty"`
	TakeProfit      float64    `json:"takeProfit,omitempty"`
	ConfidenceScore float64    `json:"confidenceScore,omitempty"`
	Reasoning       string     `json:"reasoning,omitempty"`
}

// Headline is the short-form summary block of a parsed response.
type Headline struct {
	ShortSummary    string  `json:"shortSummary,omitempty"`
	ExtendedSummary string  `json:"extendedSummary,omitempty"`
	Thesis          string  `json:"thesis,omitempty"`
	SentimentWord   string  `json:"sentimentWord,omitempty"`
	SentimentScore  float64 `json:"sentimentScore,omitempty"`
}

// Overview is the long-form market commentary block.
type Overview struct {
	Macro             string `json:"macro,omitempty"`
	MarketStructure   string `json:"marketStructure,omitempty"`
	TechnicalAnalysis string `json:"technicalAnalysis,omitempty"`
}

// ParsedResponse is the full structured decision envelope for one
// assessment call.
type ParsedResponse struct {
	Headline     Headline      `json:"headline"`
	Overview     Overview      `json:"overview"`
	TradeActions []TradeAction `json:"tradeActions"`
}

// Empty reports whether nothing usable was extracted. An empty candidate is
// rejected so the parser chain can keep trying.
func (p *ParsedResponse) Empty() bool {
	return p.Headline == (Headline{}) &&
		p.Overview == (Overview{}) &&
		len(p.TradeActions) == 0
}
