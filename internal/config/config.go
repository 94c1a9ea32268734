package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	DatabasePath string
	HistoryDir   string

	MarketDataURL string
	SolverURL     string
	AgentURL      string

	// UseRemoteSolver routes optimization through the external convex
	// solver service instead of the in-process one.
	UseRemoteSolver bool

	MarketSymbol        string
	RiskFreeRate        float64
	MarketRiskPremium   float64
	CostOfDebt          float64
	AnnualizationFactor float64

	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8080),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/vnquant.db"),
		HistoryDir:   getEnv("HISTORY_DIR", "./data/history"),

		MarketDataURL: getEnv("MARKET_DATA_URL", "http://localhost:9101"),
		SolverURL:     getEnv("SOLVER_URL", "http://localhost:9102"),
		AgentURL:      getEnv("AGENT_URL", "http://localhost:9103"),

		UseRemoteSolver: getEnvAsBool("USE_REMOTE_SOLVER", false),

		MarketSymbol:        getEnv("MARKET_SYMBOL", "VNINDEX"),
		RiskFreeRate:        getEnvAsFloat("RISK_FREE_RATE", 0.03),
		MarketRiskPremium:   getEnvAsFloat("MARKET_RISK_PREMIUM", 0.08),
		CostOfDebt:          getEnvAsFloat("COST_OF_DEBT", 0.09),
		AnnualizationFactor: getEnvAsFloat("ANNUALIZATION_FACTOR", 252),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.HistoryDir == "" {
		return fmt.Errorf("HISTORY_DIR is required")
	}
	if c.MarketSymbol == "" {
		return fmt.Errorf("MARKET_SYMBOL is required")
	}
	if c.AnnualizationFactor <= 0 {
		return fmt.Errorf("ANNUALIZATION_FACTOR must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
