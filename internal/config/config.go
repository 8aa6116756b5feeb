// Package config reads server settings from the environment. Mains call
// godotenv.Load first so a local .env file can supply these.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pai-labs/pai/internal/chat"
	"github.com/pai-labs/pai/internal/llm"
)

type Config struct {
	Addr   string
	DBPath string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	RevealInterval time.Duration
	RequestTimeout time.Duration
	HistoryWindow  int
}

// Load builds the config from environment variables, falling back to
// defaults that match a local ollama setup.
func Load() Config {
	return Config{
		Addr:           envString("PAI_ADDR", ":8100"),
		DBPath:         envString("PAI_DB", "pai.db"),
		LLMBaseURL:     envString("OPENAI_BASE_URL", "http://localhost:11434/v1/"),
		LLMAPIKey:      os.Getenv("OPENAI_API_KEY"),
		LLMModel:       envString("PAI_MODEL", "llama3.1:8b"),
		RevealInterval: envDuration("PAI_REVEAL_INTERVAL", chat.DefaultRevealInterval),
		RequestTimeout: envDuration("PAI_REQUEST_TIMEOUT", chat.DefaultRequestTimeout),
		HistoryWindow:  envInt("PAI_HISTORY_WINDOW", llm.DefaultHistoryWindow),
	}
}

// ChatConfig is the session tuning derived from the server config.
func (c Config) ChatConfig() chat.Config {
	return chat.Config{
		RevealInterval: c.RevealInterval,
		RequestTimeout: c.RequestTimeout,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
