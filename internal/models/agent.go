package models

import "time"

// Agent is a user-owned trading agent. Each active agent is assessed once
// per scheduler batch.
type Agent struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"index" json:"user_id"`
	Name           string    `json:"name"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	ModelProvider  string    `json:"model_provider"` // google, openai, anthropic, deepseek
	ModelName      string    `json:"model_name"`
	PromptID       *string   `json:"prompt_id,omitempty"`
	InitialCapital float64   `json:"initial_capital"`
	WalletKey      string    `json:"-"`
	WalletAddress  string    `json:"wallet_address,omitempty"`
	IsTestnet      bool      `gorm:"default:true" json:"is_testnet"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName preserves the table name the rest of the system reads.
func (Agent) TableName() string { return "agents" }
