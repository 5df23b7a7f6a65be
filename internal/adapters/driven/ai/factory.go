// Package ai provides factory functions for the embedding and entity model
// adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/medingest/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/medingest/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/medingest/internal/adapters/driven/embedding/openai"
	anthropicner "github.com/custodia-labs/medingest/internal/adapters/driven/ner/anthropic"
	ollamaner "github.com/custodia-labs/medingest/internal/adapters/driven/ner/ollama"
	openainer "github.com/custodia-labs/medingest/internal/adapters/driven/ner/openai"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the embedding service selected by settings.
// An empty provider selects the hashing embedder.
func CreateEmbeddingService(settings domain.EmbeddingSettings, useGPU bool) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case "", domain.EmbeddingProviderHashing:
		return hashing.New(settings.Dimensions), nil

	case domain.EmbeddingProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			UseGPU:     useGPU,
		}), nil

	case domain.EmbeddingProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: %w", settings.Provider, domain.ErrConfiguration)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and
// validates connectivity. The vector store cannot work without it, so an
// unreachable service is an error.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings domain.EmbeddingSettings,
	useGPU bool,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings, useGPU)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable: %v", domain.ErrEmbeddingUnavailable, svc.ModelName(), err)
	}
	return svc, nil
}

// CreateEntityModel creates the entity model selected by settings.
// Returns nil when only rules are configured.
func CreateEntityModel(settings domain.ModelSettings, useGPU bool) (driven.EntityModel, error) {
	if !settings.IsEnabled() {
		if settings.Provider.RequiresAPIKey() {
			return nil, fmt.Errorf("model provider %s requires an API key: %w", settings.Provider, domain.ErrConfiguration)
		}
		return nil, nil
	}

	switch settings.Provider {
	case domain.ModelProviderOpenAI:
		m, err := openainer.New(openainer.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return m, nil

	case domain.ModelProviderAnthropic:
		m, err := anthropicner.New(anthropicner.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return m, nil

	case domain.ModelProviderOllama:
		return ollamaner.New(ollamaner.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			UseGPU:  useGPU,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported model provider %q: %w", settings.Provider, domain.ErrConfiguration)
	}
}
