package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Logger    Logger    `mapstructure:"logger"`
	Exchange  Exchange  `mapstructure:"exchange"`
	LLM       LLM       `mapstructure:"llm"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Trading   Trading   `mapstructure:"trading"`
	Auth      Auth      `mapstructure:"auth"`
}

// Server holds the configuration for the HTTP server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Exchange holds the configuration for the Hyperliquid API.
type Exchange struct {
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// LLM holds API keys and defaults for the model providers.
type LLM struct {
	DefaultProvider string  `mapstructure:"default_provider"`
	GoogleAPIKey    string  `mapstructure:"google_api_key"`
	OpenAIAPIKey    string  `mapstructure:"openai_api_key"`
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
	DeepSeekAPIKey  string  `mapstructure:"deepseek_api_key"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// Scheduler holds the configuration for the agent fan-out.
type Scheduler struct {
	Concurrency     int  `mapstructure:"concurrency"`
	AutoRun         bool `mapstructure:"auto_run"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
}

// Trading holds the configuration for trade execution.
type Trading struct {
	DryRun             bool    `mapstructure:"dry_run"`
	InitialCapital     float64 `mapstructure:"initial_capital"`
	DefaultTradeAmount float64 `mapstructure:"default_trade_amount"`
	CandleInterval     string  `mapstructure:"candle_interval"`
	CandleLimit        int     `mapstructure:"candle_limit"`
	// CandleCoin is the market-pulse coin whose candles are always fetched,
	// on top of the coins the agent actually holds.
	CandleCoin string `mapstructure:"candle_coin"`
	// ExecutorURL switches order submission to a remote instance's trade
	// endpoint. Empty means in-process execution.
	ExecutorURL string `mapstructure:"executor_url"`
}

// Auth holds the configuration for request authentication.
type Auth struct {
	ServiceKey string `mapstructure:"service_key"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "agents.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("exchange.testnet", true)
	viper.SetDefault("exchange.rate_limit", 10) // requests per second
	viper.SetDefault("exchange.rate_limit_burst", 5)
	viper.SetDefault("llm.default_provider", "google")
	viper.SetDefault("llm.rate_limit", 2)
	viper.SetDefault("llm.rate_limit_burst", 2)
	viper.SetDefault("scheduler.concurrency", 50)
	viper.SetDefault("scheduler.auto_run", false)
	viper.SetDefault("scheduler.interval_seconds", 300)
	viper.SetDefault("trading.dry_run", true)
	viper.SetDefault("trading.initial_capital", 1000)
	viper.SetDefault("trading.default_trade_amount", 100)
	viper.SetDefault("trading.candle_interval", "1h")
	viper.SetDefault("trading.candle_limit", 24)
	viper.SetDefault("trading.candle_coin", "BTC")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
