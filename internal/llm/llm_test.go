package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/finbot/internal/config"
	"github.com/tmc/langchaingo/llms"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

// fakeOllamaChat answers /api/chat with one NDJSON line and captures the request.
func fakeOllamaChat(t *testing.T, answer string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   got.Model,
			"message": map[string]string{"role": "assistant", "content": answer},
			"done":    true,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaChat_Generate(t *testing.T) {
	var req chatRequest
	srv := fakeOllamaChat(t, "Aim to save 20% of income.", &req)
	g, err := NewOllamaChat(srv.URL, "phi3:mini", 0.2, 300)
	if err != nil {
		t.Fatal(err)
	}

	out, err := g.Generate(context.Background(), "You are a financial assistant.", "How much should I save?")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Aim to save 20% of income." {
		t.Errorf("Generate = %q", out)
	}
	if req.Model != "phi3:mini" || req.Stream {
		t.Errorf("model=%q stream=%v", req.Model, req.Stream)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %+v", req.Messages)
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "You are a financial assistant." {
		t.Errorf("system message = %+v", req.Messages[0])
	}
	if req.Messages[1].Role != "user" || req.Messages[1].Content != "How much should I save?" {
		t.Errorf("user message = %+v", req.Messages[1])
	}
	if g.Name() != "ollama/phi3:mini" {
		t.Errorf("Name = %q", g.Name())
	}
}

func TestOllamaChat_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"phi3:mini\" not found"}` + "\n"))
	}))
	defer srv.Close()
	g, err := NewOllamaChat(srv.URL, "phi3:mini", 0.2, 300)
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Generate(context.Background(), "sys", "hi")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want model not found", err)
	}
}

// stubModel satisfies llms.Model without a server.
type stubModel struct {
	resp *llms.ContentResponse
	err  error
	opts llms.CallOptions
}

func (s *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, o := range options {
		o(&s.opts)
	}
	return s.resp, s.err
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not used")
}

func TestChatModel_options(t *testing.T) {
	m := &stubModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	g := NewChatModel(m, "stub", 0.2, 300)
	if _, err := g.Generate(context.Background(), "s", "p"); err != nil {
		t.Fatal(err)
	}
	if m.opts.Temperature != 0.2 || m.opts.MaxTokens != 300 {
		t.Errorf("options = %+v", m.opts)
	}
}

func TestChatModel_emptyChoices(t *testing.T) {
	g := NewChatModel(&stubModel{resp: &llms.ContentResponse{}}, "stub", 0, 0)
	if _, err := g.Generate(context.Background(), "s", "p"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestEchoGenerator(t *testing.T) {
	out, err := NewEchoGenerator().Generate(context.Background(), "CONTEXT:\nSave 20% of income", " How much? ")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Q: How much?\nCONTEXT:\nSave 20% of income" {
		t.Errorf("Generate = %q", out)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewEchoGenerator().Generate(ctx, "s", "p"); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestNewFromConfig(t *testing.T) {
	g, err := NewFromConfig(&config.GenerationConfig{Provider: config.ProviderMock})
	if err != nil || g.Name() != "echo" {
		t.Errorf("mock: %v, %v", g, err)
	}
	g, err = NewFromConfig(&config.GenerationConfig{Provider: config.ProviderOllama, Model: "phi3:mini", BaseURL: "http://localhost:11434"})
	if err != nil || g.Name() != "ollama/phi3:mini" {
		t.Errorf("ollama: %v, %v", g, err)
	}
	if _, err := NewFromConfig(&config.GenerationConfig{Provider: "bard"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
