// Package ollama provides an entity model backed by a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/medingest/internal/adapters/driven/ner"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure Model implements the interface.
var _ driven.EntityModel = (*Model)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama entity model.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the chat model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// UseGPU offloads all layers to the GPU when true, and forces CPU
	// inference when false.
	UseGPU bool
}

// Model extracts entities with the Ollama chat API in JSON mode.
type Model struct {
	client  *http.Client
	baseURL string
	model   string
	numGPU  int
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format"`
	Options  options       `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumGPU      int     `json:"num_gpu"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// New creates a new Ollama entity model.
func New(cfg Config) *Model {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	numGPU := 0
	if cfg.UseGPU {
		numGPU = 999
	}

	return &Model{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		numGPU:  numGPU,
	}
}

// Name returns the model name.
func (m *Model) Name() string {
	return "ollama/" + m.model
}

// Infer extracts candidate entities from text.
func (m *Model) Infer(ctx context.Context, text string) ([]driven.EntityCandidate, error) {
	reqBody := chatRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "system", Content: ner.SystemPrompt},
			{Role: "user", Content: ner.UserPrompt(text)},
		},
		Format:  "json",
		Options: options{NumGPU: m.numGPU},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("ollama: %w: %v", domain.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("ollama: %w: %v", domain.ErrModelUnavailable, err)
		}
		return nil, fmt.Errorf("ollama: %w", err)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return ner.Parse(chatResp.Message.Content)
}
