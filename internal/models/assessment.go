package models

import "time"

// Assessment types.
const (
	AssessmentMarketScan     = "MARKET_SCAN"
	AssessmentPositionReview = "POSITION_REVIEW"
)

// Assessment is the immutable audit record of one orchestration run. The raw
// model text is always persisted, even when parsing produced nothing usable.
type Assessment struct {
	ID                 string    `gorm:"primaryKey" json:"id"`
	AgentID            string    `gorm:"index" json:"agent_id"`
	Timestamp          time.Time `json:"timestamp"`
	Type               string    `json:"type"` // MARKET_SCAN or POSITION_REVIEW
	MarketDataSnapshot string    `json:"market_data_snapshot"`
	LLMPromptUsed      string    `gorm:"column:llm_prompt_used" json:"llm_prompt_used"`
	LLMResponseText    string    `gorm:"column:llm_response_text" json:"llm_response_text"`
	ParsedLLMResponse  string    `gorm:"column:parsed_llm_response" json:"parsed_llm_response"`
	TradeActionTaken   string    `json:"trade_action_taken"`
	CreatedAt          time.Time `json:"created_at"`
}

func (Assessment) TableName() string { return "assessments" }
