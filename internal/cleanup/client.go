// Package cleanup polishes raw transcripts through a local
// Ollama-compatible generation service.
package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/loqalabs/dictate/internal/config"
)

// ErrServiceUnavailable reports that the generation service could not be
// reached or did not answer within the configured timeout.
var ErrServiceUnavailable = errors.New("cleanup service unavailable")

// ModelInfo describes one entry of the recommended-model catalog.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RecommendedModels lists models known to behave well for transcript
// cleanup, smallest first.
var RecommendedModels = []ModelInfo{
	{Name: "gemma2:2b", Description: "Fast, good quality (1.6GB)"},
	{Name: "phi3:3.8b", Description: "Better quality (2.2GB)"},
	{Name: "llama3.1:8b", Description: "Best quality (4.7GB)"},
	{Name: "grmr", Description: "Grammar-focused (experimental)"},
}

type generateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	System  string `json:"system"`
	Stream  bool   `json:"stream"`
	Context []int  `json:"context"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Client calls a local Ollama-style HTTP endpoint to transform
// transcripts. Model and enablement are mutable at runtime.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger

	mu      sync.Mutex
	enabled bool
	model   string
}

// NewClient builds a cleanup client from configuration.
func NewClient(cfg config.CleanupConfig, logger *slog.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http:     &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		logger:   logger.With(slog.String("component", "cleanup")),
		enabled:  cfg.Enabled,
		model:    cfg.Model,
	}
}

// Enabled reports whether cleanup requests will be issued.
func (c *Client) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetEnabled toggles cleanup at runtime.
func (c *Client) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// Model returns the active generation model.
func (c *Client) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel switches the generation model for subsequent requests.
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
}

// Cleanup rewrites text according to the mode's prompt templates. Callers
// are expected to treat every returned error as a signal to fall back to
// the raw transcript.
func (c *Client) Cleanup(ctx context.Context, text, languageCode string, mode Mode) (string, error) {
	if !c.Enabled() {
		return text, nil
	}
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	languageName := LanguageName(languageCode)
	spec := Spec(mode)

	body, err := json.Marshal(generateRequest{
		Model:   c.Model(),
		Prompt:  spec.userPrompt(languageName, text),
		System:  spec.systemPrompt(languageName),
		Stream:  false,
		Context: []int{},
	})
	if err != nil {
		return "", fmt.Errorf("encode cleanup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build cleanup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("cleanup service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode cleanup response: %w", err)
	}

	cleaned := trimResponse(out.Response)
	if cleaned == "" {
		return "", errors.New("cleanup service returned empty response")
	}

	c.logger.Debug("transcript cleaned",
		slog.String("mode", string(spec.ID)),
		slog.String("language", languageCode),
		slog.Duration("elapsed", time.Since(start)))
	return cleaned, nil
}

// CheckAvailability probes the service's model listing endpoint. It never
// returns an error; an unreachable service simply reports false.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false
	}
	body := string(payload)
	return strings.Contains(body, c.Model()) || strings.Contains(body, "models")
}

// trimResponse strips surrounding whitespace and at most one layer of
// matching quotes the model may wrap its output in.
func trimResponse(s string) string {
	out := strings.TrimSpace(s)
	if len(out) >= 2 {
		first, last := out[0], out[len(out)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			out = strings.TrimSpace(out[1 : len(out)-1])
		}
	}
	return out
}
