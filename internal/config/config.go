// Package config provides configuration loading and structs for the finbot server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Vector     VectorConfig     `yaml:"vector"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Chat       ChatConfig       `yaml:"chat"`
	Admin      AdminConfig      `yaml:"admin"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

// StorageConfig holds local paths for the ingestion ledger and embedded vector stores.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	VectorPath   string `yaml:"vector_path"`
}

// EmbeddingConfig selects the embedding service.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key,omitempty"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// GenerationConfig selects the chat model.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// VectorConfig selects and configures the vector store.
type VectorConfig struct {
	Backend    string `yaml:"backend"`
	RedisURL   string `yaml:"redis_url"`
	IndexName  string `yaml:"index_name"`
	FlushScope string `yaml:"flush_scope"`
}

// IngestConfig holds chunking and tagging settings.
type IngestConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	Category     string `yaml:"category"`
}

// ChatConfig holds retrieval settings for answering questions.
type ChatConfig struct {
	TopK int `yaml:"top_k"`
}

// AdminConfig holds the shared secret for admin operations.
type AdminConfig struct {
	Key string `yaml:"key"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, expands paths,
// and overlays environment variables (including a .env file next to the config).
// Returns an error if the file cannot be read or parsed, or if the result is invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if err := LoadEnvFile(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	ApplyEnv(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorPath = expandPath(cfg.Storage.VectorPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveWatchDirectories replaces watch.directories in the config file at path and
// keeps every other key exactly as written. Environment overrides and expanded
// paths live only in the loaded Config and never reach the file. A missing file
// is created with just the watch section.
func SaveWatchDirectories(path string, dirs []string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mappingNode()}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("failed to parse config: top level is not a mapping")
	}

	watch := mappingValue(root, "watch")
	if watch == nil {
		watch = mappingNode()
		root.Content = append(root.Content, scalarNode("watch"), watch)
	} else if watch.Kind != yaml.MappingNode {
		*watch = *mappingNode()
	}
	list := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, d := range dirs {
		list.Content = append(list.Content, scalarNode(d))
	}
	if existing := mappingValue(watch, "directories"); existing != nil {
		*existing = *list
	} else {
		watch.Content = append(watch.Content, scalarNode("directories"), list)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: ingest.chunk_size must be positive")
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("invalid config: ingest.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Chat.TopK <= 0 {
		return fmt.Errorf("invalid config: chat.top_k must be positive")
	}
	switch c.Vector.Backend {
	case BackendRedis, BackendChromem, BackendMemory:
	default:
		return fmt.Errorf("invalid config: unknown vector.backend %q", c.Vector.Backend)
	}
	switch c.Vector.FlushScope {
	case FlushScopeDatabase, FlushScopeIndex:
	default:
		return fmt.Errorf("invalid config: unknown vector.flush_scope %q", c.Vector.FlushScope)
	}
	for name, p := range map[string]string{"embedding": c.Embedding.Provider, "generation": c.Generation.Provider} {
		switch p {
		case ProviderOllama, ProviderOpenAI, ProviderMock:
		default:
			return fmt.Errorf("invalid config: unknown %s.provider %q", name, p)
		}
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
