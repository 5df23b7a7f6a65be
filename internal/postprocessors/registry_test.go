package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// registryMockProcessor is a simple mock for testing registry functionality.
type registryMockProcessor struct {
	name string
}

func (m *registryMockProcessor) Name() string { return m.name }
func (m *registryMockProcessor) Process(_ context.Context, _ *domain.Document) error {
	return nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if len(r.builders) != 0 {
		t.Errorf("expected empty builders, got %d", len(r.builders))
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	builder := func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "test"}, nil
	}

	r.Register("test", builder)

	if !r.Has("test") {
		t.Error("expected 'test' to be registered")
	}
}

func TestRegistry_Build_Success(t *testing.T) {
	r := NewRegistry()

	builder := func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &registryMockProcessor{name: name}, nil
	}

	r.Register("test", builder)

	proc, err := r.Build("test", map[string]any{"name": "custom"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if proc.Name() != "custom" {
		t.Errorf("expected name 'custom', got %q", proc.Name())
	}
}

func TestRegistry_Build_UnknownProcessor(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("unknown", nil)
	if err == nil {
		t.Error("expected error for unknown processor")
	}
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()

	if r.Has("nonexistent") {
		t.Error("expected Has to return false for nonexistent processor")
	}

	r.Register("exists", func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "exists"}, nil
	})

	if !r.Has("exists") {
		t.Error("expected Has to return true for registered processor")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()

	names := r.Names()
	if len(names) != 0 {
		t.Errorf("expected 0 names, got %d", len(names))
	}

	r.Register("alpha", func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "alpha"}, nil
	})
	r.Register("beta", func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "beta"}, nil
	})

	names = r.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}

	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("expected sorted names alpha and beta, got %v", names)
	}
}

func TestRegistry_BuildPipeline(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"alpha", "beta"} {
		r.Register(name, func(_ map[string]any) (driven.PostProcessor, error) {
			return &registryMockProcessor{name: name}, nil
		})
	}

	p, err := r.BuildPipeline(domain.PipelineConfig{Processors: []string{"beta", "alpha"}})
	if err != nil {
		t.Fatalf("BuildPipeline failed: %v", err)
	}
	names := p.Names()
	if len(names) != 2 || names[0] != "beta" || names[1] != "alpha" {
		t.Errorf("expected configured order, got %v", names)
	}

	_, err = r.BuildPipeline(domain.PipelineConfig{Processors: []string{"missing"}})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unknown processor, got %v", err)
	}
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, Defaults{OutputDir: t.TempDir(), IncludeContent: true, ConfidenceThreshold: 0.7})

	for _, name := range []string{"verification", "summary", "json_export"} {
		if !r.Has(name) {
			t.Errorf("expected %q to be registered after RegisterDefaults", name)
		}
	}

	p, err := r.BuildPipeline(domain.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("BuildPipeline with defaults failed: %v", err)
	}
	if p.Len() != 3 {
		t.Errorf("expected 3 processors, got %d", p.Len())
	}
}

func TestBuildJSONExport_WithConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, Defaults{})

	dir := t.TempDir()
	proc, err := r.Build("json_export", map[string]any{"dir": dir, "include_content": false})
	if err != nil {
		t.Fatalf("Build json_export failed: %v", err)
	}
	if proc.Name() != "json_export" {
		t.Errorf("expected name 'json_export', got %q", proc.Name())
	}
}

func TestBuildJSONExport_NoDir(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, Defaults{})

	_, err := r.Build("json_export", nil)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration without a directory, got %v", err)
	}
}

func TestBuildVerification_ThresholdOverride(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, Defaults{ConfidenceThreshold: 0.7})

	proc, err := r.Build("verification", map[string]any{"threshold": int64(1)})
	if err != nil {
		t.Fatalf("Build verification failed: %v", err)
	}
	doc := &domain.Document{Entities: domain.EntitySet{
		domain.EntityCondition: {{Value: "hEDS", Confidence: 0.9}},
	}}
	if err := proc.Process(context.Background(), doc); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if doc.Entities[domain.EntityCondition][0].IsVerified {
		t.Error("expected threshold override to apply")
	}
}

func TestGetFloatFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      map[string]any
		key      string
		expected float64
		ok       bool
	}{
		{"int value", map[string]any{"t": 1}, "t", 1, true},
		{"int64 value", map[string]any{"t": int64(2)}, "t", 2, true},
		{"float64 value", map[string]any{"t": 0.5}, "t", 0.5, true},
		{"string value", map[string]any{"t": "0.5"}, "t", 0, false},
		{"missing key", map[string]any{"other": 1}, "t", 0, false},
		{"nil config", nil, "t", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := getFloatFromConfig(tt.cfg, tt.key)
			if result != tt.expected || ok != tt.ok {
				t.Errorf("expected (%v, %v), got (%v, %v)", tt.expected, tt.ok, result, ok)
			}
		})
	}
}
