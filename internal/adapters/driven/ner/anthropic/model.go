// Package anthropic provides an entity model backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/medingest/internal/adapters/driven/ner"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure Model implements the interface.
var _ driven.EntityModel = (*Model)(nil)

// Default configuration values.
const (
	DefaultModel   = "claude-3-5-haiku-latest"
	DefaultTimeout = 120 * time.Second

	maxTokens = 4096
)

// Config holds configuration for the Anthropic entity model.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL overrides the API base URL.
	BaseURL string

	// Model is the model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Model extracts entities with a single Messages call.
type Model struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a new Anthropic entity model. Retries are left to the
// entity engine, so the client makes one attempt per call.
func New(cfg Config) (*Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required: %w", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Model{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(cfg.Model),
	}, nil
}

// Name returns the model name.
func (m *Model) Name() string {
	return "anthropic/" + string(m.model)
}

// Infer extracts candidate entities from text.
func (m *Model) Infer(ctx context.Context, text string) ([]driven.EntityCandidate, error) {
	message, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: ner.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(ner.UserPrompt(text))),
		},
	})
	if err != nil {
		return nil, classify(err)
	}

	var reply strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return nil, fmt.Errorf("anthropic: no text in response")
	}
	return ner.Parse(reply.String())
}

// classify maps client errors onto domain errors. Auth failures, missing
// models, overload and transport failures mark the model unavailable.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	status := 0
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("anthropic: %w: %v", domain.ErrRateLimited, err)
	case status == 0,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound,
		status >= 500:
		return fmt.Errorf("anthropic: %w: %v", domain.ErrModelUnavailable, err)
	default:
		return fmt.Errorf("anthropic: %w", err)
	}
}
