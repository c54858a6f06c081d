package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/internal/rag"
	"github.com/hyperjump/finbot/internal/server"
)

func newTestAPI(t *testing.T) (*httptest.Server, *Components) {
	t.Helper()
	cfg := offlineConfig(t)
	components, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(components.Close)
	srv := server.NewServer(&cfg.Server, zap.NewNop(),
		server.WithResponder(components.Responder),
		server.WithIngester(components.Indexer),
		server.WithAdmin(components.Admin),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, components
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"Invalid admin key","detail":"Invalid admin key"}`, "Invalid admin key"},
		{`{"detail":"Not Found"}`, "Not Found"},
		{"plain failure\n", "plain failure"},
	}
	for _, tt := range tests {
		if got := apiErrorMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("apiErrorMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestRunAsk_againstServer(t *testing.T) {
	ts, _ := newTestAPI(t)

	var out bytes.Buffer
	if err := runAsk([]string{"what", "is", "a", "budget", "--server", ts.URL, "--output", "json"}, &out); err != nil {
		t.Fatal(err)
	}
	var resp models.ChatResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if !strings.Contains(resp.Response, rag.NoContextPlaceholder) {
		t.Errorf("empty index should answer with the placeholder, got %q", resp.Response)
	}
	if resp.ConfidenceScore != 0.2 || !resp.SuggestTicket {
		t.Errorf("confidence = %v suggest = %v, want 0.2 true", resp.ConfidenceScore, resp.SuggestTicket)
	}
	if resp.UserID != models.DefaultUserID {
		t.Errorf("UserID = %q", resp.UserID)
	}

	if err := runAsk([]string{"--server", ts.URL}, &out); err == nil {
		t.Error("expected usage error for empty question")
	}
}

func TestRunClear_againstServer(t *testing.T) {
	ts, components := newTestAPI(t)
	t.Setenv("FINBOT_ADMIN_KEY", "")

	var out bytes.Buffer
	err := runClear([]string{"--server", ts.URL, "--admin-key", "wrong"}, &out)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("wrong key error = %v, want 403", err)
	}
	if err := runClear([]string{"--server", ts.URL}, &out); err == nil {
		t.Error("missing admin key should fail")
	}

	if err := runClear([]string{"--server", ts.URL, "--admin-key", "admin123"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "cleared successfully") {
		t.Errorf("output = %q", out.String())
	}
	if n, _ := components.Store.Size(context.Background()); n != 0 {
		t.Errorf("store size = %d after clear", n)
	}
}

func TestRunStatus_againstServer(t *testing.T) {
	ts, _ := newTestAPI(t)

	var out bytes.Buffer
	if err := runStatus([]string{"--server", ts.URL, "--admin-key", "admin123", "--output", "json"}, &out); err != nil {
		t.Fatal(err)
	}
	var st models.StatusResponse
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if st.Config == nil || st.Config.VectorBackend != "memory" {
		t.Errorf("unexpected status config: %+v", st.Config)
	}

	if err := runStatus([]string{"--server", ts.URL, "--admin-key", "nope"}, &out); err == nil {
		t.Error("expected error for wrong admin key")
	}
}

func TestRunWatch_notEnabled(t *testing.T) {
	ts, _ := newTestAPI(t)

	var out bytes.Buffer
	err := runWatch([]string{"list", "--server", ts.URL, "--admin-key", "admin123"}, &out)
	if err == nil || !strings.Contains(err.Error(), "501") {
		t.Errorf("watch list error = %v, want 501", err)
	}
	if err := runWatch([]string{"bogus"}, &out); err == nil {
		t.Error("expected error for unknown subcommand")
	}
	if err := runWatch(nil, &out); err == nil {
		t.Error("expected usage error")
	}
}
