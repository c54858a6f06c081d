package config

import "time"

// Vector store backends.
const (
	BackendRedis   = "redis"
	BackendChromem = "chromem"
	BackendMemory  = "memory"
)

// Flush scopes for clear-all on the redis backend.
const (
	FlushScopeDatabase = "database"
	FlushScopeIndex    = "index"
)

// Model providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// DefaultAdminKey is the admin secret used when none is configured.
const DefaultAdminKey = "admin123"

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120 * time.Second
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/finbot.db"
	}
	if cfg.Storage.VectorPath == "" {
		cfg.Storage.VectorPath = "./data/vectors"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOllama
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = ProviderOllama
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "phi3:mini"
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "http://localhost:11434"
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.2
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 300
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = BackendRedis
	}
	if cfg.Vector.RedisURL == "" {
		cfg.Vector.RedisURL = "redis://localhost:6379"
	}
	if cfg.Vector.IndexName == "" {
		cfg.Vector.IndexName = "financial_literacy_docs"
	}
	if cfg.Vector.FlushScope == "" {
		cfg.Vector.FlushScope = FlushScopeDatabase
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.Category == "" {
		cfg.Ingest.Category = "financial_literacy"
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = 3
	}
	if cfg.Admin.Key == "" {
		cfg.Admin.Key = DefaultAdminKey
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
