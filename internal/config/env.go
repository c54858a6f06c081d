package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvAdminKey      = "FINBOT_ADMIN_KEY"
	EnvRedisURL      = "FINBOT_REDIS_URL"
	EnvOllamaURL     = "FINBOT_OLLAMA_URL"
	EnvPort          = "FINBOT_PORT"
	EnvVectorBackend = "FINBOT_VECTOR_BACKEND"
	EnvOpenAIKey     = "OPENAI_API_KEY"
)

// LoadEnvFile loads variables from a dotenv file into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvAdminKey); v != "" {
		cfg.Admin.Key = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.Vector.RedisURL = v
	}
	if v := os.Getenv(EnvOllamaURL); v != "" {
		if cfg.Embedding.Provider == ProviderOllama {
			cfg.Embedding.BaseURL = v
		}
		if cfg.Generation.Provider == ProviderOllama {
			cfg.Generation.BaseURL = v
		}
	}
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv(EnvVectorBackend); v != "" {
		cfg.Vector.Backend = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		if cfg.Embedding.Provider == ProviderOpenAI && cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
		if cfg.Generation.Provider == ProviderOpenAI && cfg.Generation.APIKey == "" {
			cfg.Generation.APIKey = v
		}
	}
}
