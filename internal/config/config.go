package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath    string
	Watchlist       []string
	GeminiAPIKey    string
	GeminiModel     string
	SnapshotTTLHrs  int
	MaxConcurrency  int
	RefreshSchedule string
	LogLevel        string
	DevMode         bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:    getEnv("DATABASE_PATH", "./data/analysis.db"),
		Watchlist:       getEnvAsList("WATCHLIST", nil),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""), // optional, narrative falls back when empty
		GeminiModel:     getEnv("GEMINI_MODEL", ""),
		SnapshotTTLHrs:  getEnvAsInt("SNAPSHOT_TTL_HOURS", 24),
		MaxConcurrency:  getEnvAsInt("MAX_CONCURRENCY", 4),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 30 6 * * *"), // daily, before US pre-market
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
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
	if c.SnapshotTTLHrs <= 0 {
		return fmt.Errorf("SNAPSHOT_TTL_HOURS must be positive")
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive")
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, strings.ToUpper(item))
		}
	}
	return out
}
