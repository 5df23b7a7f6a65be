// Package openai provides an entity model backed by an OpenAI-compatible
// chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/medingest/internal/adapters/driven/ner"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure Model implements the interface.
var _ driven.EntityModel = (*Model)(nil)

// Default configuration values.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the OpenAI entity model.
type Config struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL overrides the API base URL for compatible servers.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the HTTP request timeout (default: 60s).
	Timeout time.Duration
}

// Model extracts entities with a chat completion in JSON mode.
type Model struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI entity model.
func New(cfg Config) (*Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Model{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Name returns the model name.
func (m *Model) Name() string {
	return "openai/" + m.model
}

// Infer extracts candidate entities from text.
func (m *Model) Infer(ctx context.Context, text string) ([]driven.EntityCandidate, error) {
	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ner.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: ner.UserPrompt(text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no response choices")
	}
	return ner.Parse(resp.Choices[0].Message.Content)
}

// classify maps client errors onto domain errors. Auth failures, missing
// models, server errors and transport failures mark the model unavailable.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("openai: %w: %v", domain.ErrRateLimited, err)
	case status == 0,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound,
		status >= 500:
		return fmt.Errorf("openai: %w: %v", domain.ErrModelUnavailable, err)
	default:
		return fmt.Errorf("openai: %w", err)
	}
}
