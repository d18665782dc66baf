package database

import (
	"fmt"

	"hyperliquid-agent-bot-go/internal/assessment"
	"hyperliquid-agent-bot-go/internal/config"
	"hyperliquid-agent-bot-go/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates the schema and seeds the default prompt row.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Agent{},
		&models.TradingTrade{},
		&models.Assessment{},
		&models.PnLSnapshot{},
		&models.Prompt{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	// Seed the global default prompt so agents without an explicit prompt
	// always resolve to something.
	defaultPrompt := models.Prompt{
		ID:                uuid.NewString(),
		Name:              "default",
		IsDefault:         true,
		SystemInstruction: assessment.DefaultSystemInstruction,
		UserTemplate:      assessment.DefaultUserTemplate,
	}
	if err := db.FirstOrCreate(&defaultPrompt, models.Prompt{Name: "default"}).Error; err != nil {
		return fmt.Errorf("failed to seed default prompt: %w", err)
	}

	return nil
}
