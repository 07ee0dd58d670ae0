// Package config loads process configuration from the environment, reading a
// local .env file first when one exists.
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultModel    string
}

// Load reads .env if present and returns the configuration. Missing keys are
// left empty; callers decide which ones are required.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] No .env file found, using environment variables")
	}

	return Config{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		DefaultModel:    getEnvOrDefault("UNICALL_MODEL", "claude-sonnet-4-20250514"),
	}
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
