package models

import "time"

// PnLSnapshot is a point-in-time record of an agent's recomputed account
// metrics. Snapshots are diagnostic only; a failed insert never fails a run.
type PnLSnapshot struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	AgentID       string    `gorm:"index" json:"agent_id"`
	Timestamp     time.Time `json:"timestamp"`
	RealizedPnl   float64   `json:"realized_pnl"`
	UnrealizedPnl float64   `json:"unrealized_pnl"`
	AccountValue  float64   `json:"account_value"`
	MarginUsed    float64   `json:"margin_used"`
	RemainingCash float64   `json:"remaining_cash"`
	CreatedAt     time.Time `json:"created_at"`
}

func (PnLSnapshot) TableName() string { return "agent_pnl_snapshots" }
