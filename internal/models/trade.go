package models

import "time"

// Trade status values.
const (
	TradeStatusOpen   = "OPEN"
	TradeStatusClosed = "CLOSED"
)

// Trade side values.
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// TradingTrade is one leg of the agent's position ledger. An open row and a
// later close sharing the same PositionID form one round trip; a trade is
// OPEN until its close counterpart is recorded.
//
// Size is margin collateral in USD, never underlying asset quantity. The
// underlying quantity is derived as (Size * Leverage) / EntryPrice at the
// point of use.
type TradingTrade struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	AgentID        string     `gorm:"index" json:"agent_id"`
	PositionID     string     `gorm:"index" json:"position_id"`
	Asset          string     `json:"asset"`
	Side           string     `json:"side"` // LONG or SHORT
	Size           float64    `json:"size"`
	EntryPrice     float64    `json:"entry_price"`
	EntryTimestamp time.Time  `json:"entry_timestamp"`
	Leverage       float64    `json:"leverage"`
	Status         string     `gorm:"index" json:"status"` // OPEN or CLOSED
	ExitPrice      *float64   `json:"exit_price,omitempty"`
	ExitTimestamp  *time.Time `json:"exit_timestamp,omitempty"`
	RealizedPnl    *float64   `json:"realized_pnl,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (TradingTrade) TableName() string { return "trading_trades" }
