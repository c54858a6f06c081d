package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAdminKey, EnvRedisURL, EnvOllamaURL, EnvPort, EnvVectorBackend, EnvOpenAIKey} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
server:
  host: "127.0.0.1"
  port: 9000
  request_timeout: 30s
storage:
  database_path: "./finbot.db"
vector:
  backend: memory
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("request_timeout = %v", cfg.Server.RequestTimeout)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "finbot.db") {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
	if cfg.Vector.Backend != BackendMemory {
		t.Errorf("backend = %s", cfg.Vector.Backend)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
storage:
  database_path: "./data/db/ledger.db"
  vector_path: "./data/vectors"
watch:
  directories: ["./inbox"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "ledger.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if cfg.Storage.VectorPath != filepath.Join(dir, "data", "vectors") {
		t.Errorf("vector_path = %s", cfg.Storage.VectorPath)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
}

func TestLoad_envFileOverrides(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvAdminKey)
	os.Unsetenv(EnvRedisURL)
	dir := t.TempDir()
	path := writeConfig(t, dir, "admin:\n  key: from-yaml\n")
	env := EnvAdminKey + "=from-dotenv\n" + EnvRedisURL + "=redis://cache:6380/2\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv(EnvAdminKey)
		os.Unsetenv(EnvRedisURL)
	})
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Admin.Key != "from-dotenv" {
		t.Errorf("admin key = %q", cfg.Admin.Key)
	}
	if cfg.Vector.RedisURL != "redis://cache:6380/2" {
		t.Errorf("redis url = %q", cfg.Vector.RedisURL)
	}
}

func TestLoad_invalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"overlap not below size", "ingest:\n  chunk_size: 100\n  chunk_overlap: 100\n", "chunk_overlap"},
		{"unknown backend", "vector:\n  backend: faiss\n", "vector.backend"},
		{"unknown flush scope", "vector:\n  flush_scope: everything\n", "flush_scope"},
		{"unknown provider", "embedding:\n  provider: onnx\n", "embedding.provider"},
		{"bad yaml", "server: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("chunking defaults: %+v", cfg.Ingest)
	}
	if cfg.Chat.TopK != 3 {
		t.Errorf("top_k: got %d", cfg.Chat.TopK)
	}
	if cfg.Embedding.Model != "nomic-embed-text" || cfg.Generation.Model != "phi3:mini" {
		t.Errorf("models: %s / %s", cfg.Embedding.Model, cfg.Generation.Model)
	}
	if cfg.Vector.Backend != BackendRedis || cfg.Vector.IndexName != "financial_literacy_docs" {
		t.Errorf("vector defaults: %+v", cfg.Vector)
	}
	if cfg.Vector.FlushScope != FlushScopeDatabase {
		t.Errorf("flush scope: %s", cfg.Vector.FlushScope)
	}
	if cfg.Admin.Key != DefaultAdminKey {
		t.Errorf("admin key: %s", cfg.Admin.Key)
	}
	if cfg.Ingest.Category != "financial_literacy" {
		t.Errorf("category: %s", cfg.Ingest.Category)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset without directories")
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvOllamaURL, "http://gpu-box:11434")
	t.Setenv(EnvVectorBackend, BackendChromem)
	t.Setenv(EnvOpenAIKey, "sk-test")
	cfg := Default()
	cfg.Generation.Provider = ProviderOpenAI
	ApplyEnv(cfg)
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Embedding.BaseURL != "http://gpu-box:11434" {
		t.Errorf("embedding base url = %s", cfg.Embedding.BaseURL)
	}
	if cfg.Generation.BaseURL == "http://gpu-box:11434" {
		t.Error("ollama url should not apply to an openai generator")
	}
	if cfg.Generation.APIKey != "sk-test" || cfg.Embedding.APIKey != "" {
		t.Errorf("api keys: gen=%q emb=%q", cfg.Generation.APIKey, cfg.Embedding.APIKey)
	}
	if cfg.Vector.Backend != BackendChromem {
		t.Errorf("backend = %s", cfg.Vector.Backend)
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSaveWatchDirectories(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAdminKey, "env-only-secret")
	t.Setenv(EnvOpenAIKey, "sk-env-only")
	dir := t.TempDir()
	path := writeConfig(t, dir, `# finbot settings
server:
  port: 9090
  request_timeout: 45s
storage:
  database_path: ./data/finbot.db
admin:
  key: file-key
watch:
  directories:
    - old
`)
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Admin.Key != "env-only-secret" {
		t.Fatalf("env override not applied: %q", loaded.Admin.Key)
	}

	inbox := filepath.Join(dir, "inbox")
	if err := SaveWatchDirectories(path, []string{inbox}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	for _, leaked := range []string{"env-only-secret", "sk-env-only", loaded.Storage.DatabasePath} {
		if strings.Contains(text, leaked) {
			t.Errorf("saved config contains %q:\n%s", leaked, text)
		}
	}
	for _, kept := range []string{"key: file-key", "database_path: ./data/finbot.db", "# finbot settings", inbox} {
		if !strings.Contains(text, kept) {
			t.Errorf("saved config lost %q:\n%s", kept, text)
		}
	}

	clearEnv(t)
	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Server.Port != 9090 || reloaded.Server.RequestTimeout != 45*time.Second {
		t.Errorf("server settings changed: %+v", reloaded.Server)
	}
	if len(reloaded.Watch.Directories) != 1 || reloaded.Watch.Directories[0] != inbox {
		t.Errorf("directories = %v", reloaded.Watch.Directories)
	}
}

func TestSaveWatchDirectories_missingFileOrSection(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	created := filepath.Join(dir, "new.yaml")
	if err := SaveWatchDirectories(created, []string{"/srv/inbox"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(created)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != "/srv/inbox" {
		t.Errorf("directories = %v", cfg.Watch.Directories)
	}

	path := writeConfig(t, dir, "debug: true\n")
	if err := SaveWatchDirectories(path, nil); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug || len(cfg.Watch.Directories) != 0 {
		t.Errorf("unexpected config: debug=%v dirs=%v", cfg.Debug, cfg.Watch.Directories)
	}

	bad := writeConfig(t, t.TempDir(), "- just\n- a list\n")
	if err := SaveWatchDirectories(bad, []string{"/x"}); err == nil {
		t.Error("expected error for non-mapping config")
	}
}
