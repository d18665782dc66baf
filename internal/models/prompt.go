package models

import "time"

// Prompt is a reusable prompt template. Agents reference one by id; when an
// agent has no prompt (or the row is missing) the default row is used.
type Prompt struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"uniqueIndex" json:"name"`
	IsDefault         bool      `json:"is_default"`
	SystemInstruction string    `json:"system_instruction"`
	UserTemplate      string    `json:"user_template"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Prompt) TableName() string { return "prompts" }
