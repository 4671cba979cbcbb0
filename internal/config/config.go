// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all runtime configuration for the service.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// DatabasePath is the SQLite database file path.
	DatabasePath string

	// QdrantHost and QdrantPort locate the Qdrant gRPC endpoint.
	QdrantHost string
	QdrantPort int

	// JWTSecret signs session tokens. Required.
	JWTSecret string

	// OpenAIAPIKey authenticates embedding and completion calls. Required.
	OpenAIAPIKey string

	// MaxPages is the per-document page limit enforced at ingestion.
	MaxPages int

	// FetchTimeout bounds the download of uploaded files from storage.
	FetchTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults.
// It returns an error if a required variable is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "pdfchat.db"),
		QdrantHost:   getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:   getEnvInt("QDRANT_PORT", 6334),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		MaxPages:     getEnvInt("MAX_PAGES", 5),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
