package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loqalabs/dictate/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clientFor(t *testing.T, endpoint string) *Client {
	t.Helper()
	cfg := config.Default().Cleanup
	cfg.Endpoint = endpoint
	return NewClient(cfg, testLogger())
}

func TestCleanupDisabledSkipsNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := clientFor(t, server.URL)
	client.SetEnabled(false)

	out, err := client.Cleanup(context.Background(), "hello there", "en", ModeDefault)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if out != "hello there" {
		t.Fatalf("disabled cleanup mutated text: %q", out)
	}
	if called {
		t.Fatal("disabled client issued an HTTP request")
	}
}

func TestCleanupSendsModePrompts(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "- point one\n- point two", Done: true})
	}))
	defer server.Close()

	client := clientFor(t, server.URL)
	out, err := client.Cleanup(context.Background(), "point one and point two", "fr", ModeBullets)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if out != "- point one\n- point two" {
		t.Fatalf("unexpected cleaned text: %q", out)
	}
	if got.Stream {
		t.Fatal("request asked for streaming")
	}
	if got.Context == nil {
		t.Fatal("request omitted context field")
	}
	if !strings.Contains(got.System, "French") || !strings.Contains(got.Prompt, "French") {
		t.Fatalf("prompts missing language name: system=%q prompt=%q", got.System, got.Prompt)
	}
	if !strings.Contains(got.Prompt, "point one and point two") {
		t.Fatalf("prompt missing transcript: %q", got.Prompt)
	}
}

func TestCleanupTrimsQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "  \"cleaned text\"  ", Done: true})
	}))
	defer server.Close()

	client := clientFor(t, server.URL)
	out, err := client.Cleanup(context.Background(), "raw text", "en", ModeDefault)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if out != "cleaned text" {
		t.Fatalf("quotes not trimmed: %q", out)
	}
}

func TestCleanupUnreachableService(t *testing.T) {
	client := clientFor(t, "http://127.0.0.1:1")
	_, err := client.Cleanup(context.Background(), "raw text", "en", ModeDefault)
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestCleanupBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := clientFor(t, server.URL)
	_, err := client.Cleanup(context.Background(), "raw text", "en", ModeDefault)
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("status error should not be ErrServiceUnavailable: %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("error missing status code: %v", err)
	}
}

func TestCleanupMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer server.Close()

	client := clientFor(t, server.URL)
	_, err := client.Cleanup(context.Background(), "raw text", "en", ModeDefault)
	if err == nil {
		t.Fatal("expected error for unparseable response")
	}
}

func TestCleanupEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "   ", Done: true})
	}))
	defer server.Close()

	client := clientFor(t, server.URL)
	_, err := client.Cleanup(context.Background(), "raw text", "en", ModeDefault)
	if err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestCheckAvailability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"models":[{"name":"gemma2:2b"}]}`)
	}))
	defer server.Close()

	client := clientFor(t, server.URL)
	if !client.CheckAvailability(context.Background()) {
		t.Fatal("expected service to be available")
	}

	server.Close()
	if client.CheckAvailability(context.Background()) {
		t.Fatal("expected closed service to be unavailable")
	}
}

func TestRecommendedModelCatalog(t *testing.T) {
	want := []string{"gemma2:2b", "phi3:3.8b", "llama3.1:8b", "grmr"}
	if len(RecommendedModels) != len(want) {
		t.Fatalf("got %d recommended models, want %d", len(RecommendedModels), len(want))
	}
	for i, name := range want {
		if RecommendedModels[i].Name != name {
			t.Errorf("recommended model %d = %q, want %q", i, RecommendedModels[i].Name, name)
		}
		if RecommendedModels[i].Description == "" {
			t.Errorf("recommended model %q missing description", name)
		}
	}
}

func TestSetModelAndEnabled(t *testing.T) {
	client := clientFor(t, "http://localhost:11434")
	client.SetModel("llama3.2:3b")
	if client.Model() != "llama3.2:3b" {
		t.Fatalf("model not updated: %q", client.Model())
	}
	client.SetEnabled(false)
	if client.Enabled() {
		t.Fatal("enabled not updated")
	}
}
