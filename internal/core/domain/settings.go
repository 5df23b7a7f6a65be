package domain

import (
	"fmt"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that turns text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHashing is a local deterministic feature-hashing embedder.
	EmbeddingProviderHashing EmbeddingProvider = "hashing"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI API or a compatible endpoint.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHashing, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// IsLocal returns true if the provider needs no network access.
func (p EmbeddingProvider) IsLocal() bool {
	return p == EmbeddingProviderHashing
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderHashing:
		return "Hashing (local, deterministic)"
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI-compatible (cloud)"
	default:
		return unknownDescription
	}
}

// ModelProvider identifies the entity-extraction model backend.
type ModelProvider string

// Available model providers.
const (
	// ModelProviderRules disables the model; only rules run.
	ModelProviderRules ModelProvider = "rules"

	// ModelProviderOpenAI uses an OpenAI chat model.
	ModelProviderOpenAI ModelProvider = "openai"

	// ModelProviderOllama uses Ollama's OpenAI-compatible endpoint.
	ModelProviderOllama ModelProvider = "ollama"

	// ModelProviderAnthropic uses the Anthropic Messages API.
	ModelProviderAnthropic ModelProvider = "anthropic"
)

// IsValid returns true if the provider is recognised.
func (p ModelProvider) IsValid() bool {
	switch p {
	case ModelProviderRules, ModelProviderOpenAI, ModelProviderOllama, ModelProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p ModelProvider) RequiresAPIKey() bool {
	return p == ModelProviderOpenAI || p == ModelProviderAnthropic
}

// String returns the string representation.
func (p ModelProvider) String() string {
	return string(p)
}

// VectorBackend selects the vector store implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendFlat is the persisted exact-search index.
	VectorBackendFlat VectorBackend = "flat"

	// VectorBackendMemory keeps vectors in process memory only.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendFlat || b == VectorBackendMemory
}

// SyncTarget identifies an external structured store.
type SyncTarget string

// Available sync targets.
const (
	SyncTargetMemory SyncTarget = "memory"
	SyncTargetSQLite SyncTarget = "sqlite"
	SyncTargetNeo4j  SyncTarget = "neo4j"
)

// IsValid returns true if the target is recognised.
func (t SyncTarget) IsValid() bool {
	switch t {
	case SyncTargetMemory, SyncTargetSQLite, SyncTargetNeo4j:
		return true
	default:
		return false
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider   EmbeddingProvider
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
}

// ModelSettings holds entity-model configuration.
type ModelSettings struct {
	Provider ModelProvider
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// IsEnabled returns true when a model other than the rules is configured.
func (m ModelSettings) IsEnabled() bool {
	if m.Provider == "" || m.Provider == ModelProviderRules {
		return false
	}
	if m.Provider.RequiresAPIKey() && m.APIKey == "" {
		return false
	}
	return true
}

// VectorSettings holds vector store configuration.
type VectorSettings struct {
	Backend VectorBackend
	Path    string
	Metric  Metric
}

// SyncSettings holds sync layer configuration.
type SyncSettings struct {
	Targets       []SyncTarget
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	RatePerSecond float64
	Burst         int
	SQLitePath    string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}

// PipelineConfig holds post-processor chain configuration.
// Uses generic map-based config so new processors need no struct changes.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// SettingSource records where an effective setting came from.
type SettingSource string

// Setting sources, lowest precedence first.
const (
	SourceDefault SettingSource = "default"
	SourceFile    SettingSource = "file"
	SourceEnv     SettingSource = "env"
)

// SettingEntry is one effective configuration value, formatted for display.
type SettingEntry struct {
	Key    string
	Value  string
	Source SettingSource
}

// Config holds every recognised option.
type Config struct {
	InputDir            string
	Recursive           bool
	FileExtensions      []string
	IncludeContent      bool
	Concurrency         int
	ConfidenceThreshold float64
	UseGPU              bool
	DocumentTimeout     time.Duration
	FailureTolerance    int
	OutputDir           string
	LogFile             string

	Vector    VectorSettings
	Embedding EmbeddingSettings
	Model     ModelSettings
	Sync      SyncSettings
	Pipeline  PipelineConfig
}

// DefaultConfig returns a configuration that works offline:
// hashing embeddings, rules-only entity extraction, in-process sync target.
func DefaultConfig() Config {
	return Config{
		Recursive:           true,
		IncludeContent:      true,
		Concurrency:         4,
		ConfidenceThreshold: 0.7,
		DocumentTimeout:     2 * time.Minute,
		Vector: VectorSettings{
			Backend: VectorBackendFlat,
			Metric:  MetricCosine,
		},
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingProviderHashing,
			Dimensions: 384,
		},
		Model: ModelSettings{
			Provider: ModelProviderRules,
			Timeout:  30 * time.Second,
		},
		Sync: SyncSettings{
			Targets:       []SyncTarget{SyncTargetMemory},
			MaxAttempts:   4,
			BaseBackoff:   200 * time.Millisecond,
			MaxBackoff:    5 * time.Second,
			RatePerSecond: 10,
			Burst:         5,
			Neo4jDatabase: "neo4j",
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// DefaultPipelineConfig returns the default post-processor chain.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"verification", "summary", "json_export"},
		ProcessorConfigs: map[string]map[string]any{},
	}
}

// ValidateIngest is Validate plus the options only an ingest run needs.
func (c *Config) ValidateIngest() error {
	if c.InputDir == "" {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w; input_dir is required", err)
		}
		return fmt.Errorf("%w: input_dir is required", ErrConfiguration)
	}
	return c.Validate()
}

// Validate checks the configuration. Every problem is reported in a
// single error wrapping ErrConfiguration.
func (c *Config) Validate() error {
	var problems []string
	if c.Concurrency < 1 {
		problems = append(problems, "concurrency must be at least 1")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		problems = append(problems, "confidence_threshold must be within [0,1]")
	}
	if c.DocumentTimeout <= 0 {
		problems = append(problems, "document_timeout must be positive")
	}
	if c.FailureTolerance < 0 {
		problems = append(problems, "failure_tolerance must not be negative")
	}
	if !c.Vector.Backend.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown vector backend %q", c.Vector.Backend))
	}
	if c.Vector.Backend == VectorBackendFlat && c.Vector.Path == "" {
		problems = append(problems, "vector_db_path is required for the flat backend")
	}
	if !c.Vector.Metric.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown metric %q", c.Vector.Metric))
	}
	if !c.Embedding.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Provider == EmbeddingProviderHashing && c.Embedding.Dimensions < 1 {
		problems = append(problems, "embedding dimensions must be positive")
	}
	if c.Model.Provider != "" && !c.Model.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown model provider %q", c.Model.Provider))
	}
	for _, t := range c.Sync.Targets {
		if !t.IsValid() {
			problems = append(problems, fmt.Sprintf("unknown sync target %q", t))
		}
		if t == SyncTargetSQLite && c.Sync.SQLitePath == "" {
			problems = append(problems, "sqlite.path is required for the sqlite target")
		}
		if t == SyncTargetNeo4j && c.Sync.Neo4jURI == "" {
			problems = append(problems, "neo4j.uri is required for the neo4j target")
		}
	}
	if c.Sync.MaxAttempts < 1 {
		problems = append(problems, "sync.max_attempts must be at least 1")
	}
	if c.Sync.RatePerSecond <= 0 {
		problems = append(problems, "sync.rate_per_second must be positive")
	}
	for _, ext := range c.FileExtensions {
		if !strings.HasPrefix(ext, ".") {
			problems = append(problems, fmt.Sprintf("file extension %q must start with a dot", ext))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// AllowsExtension reports whether ext passes the file_extensions filter.
// An empty filter allows everything.
func (c *Config) AllowsExtension(ext string) bool {
	if len(c.FileExtensions) == 0 {
		return true
	}
	ext = strings.ToLower(ext)
	for _, e := range c.FileExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
