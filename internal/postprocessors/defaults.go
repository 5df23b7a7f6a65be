package postprocessors

import (
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/postprocessors/jsonexport"
	"github.com/custodia-labs/medingest/internal/postprocessors/summary"
	"github.com/custodia-labs/medingest/internal/postprocessors/verification"
)

// Defaults carries run-level settings the built-in processors fall back
// to when their own config section leaves a key unset.
type Defaults struct {
	OutputDir           string
	IncludeContent      bool
	ConfidenceThreshold float64
}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry, d Defaults) {
	r.Register(verification.Name, func(cfg map[string]any) (driven.PostProcessor, error) {
		threshold := d.ConfidenceThreshold
		if v, ok := getFloatFromConfig(cfg, "threshold"); ok {
			threshold = v
		}
		return verification.New(threshold), nil
	})
	r.Register(summary.Name, func(_ map[string]any) (driven.PostProcessor, error) {
		return summary.New(), nil
	})
	r.Register(jsonexport.Name, func(cfg map[string]any) (driven.PostProcessor, error) {
		return buildJSONExport(cfg, d)
	})
}

// buildJSONExport creates the export processor from generic config.
// Supported config keys:
//   - dir (string): Output directory (default: output_dir)
//   - include_content (bool): Write document content (default: include_content)
func buildJSONExport(cfg map[string]any, d Defaults) (driven.PostProcessor, error) {
	dir := d.OutputDir
	if v, ok := cfg["dir"].(string); ok && v != "" {
		dir = v
	}
	include := d.IncludeContent
	if v, ok := cfg["include_content"].(bool); ok {
		include = v
	}
	return jsonexport.New(dir, jsonexport.WithIncludeContent(include))
}

// getFloatFromConfig safely extracts a float from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getFloatFromConfig(cfg map[string]any, key string) (float64, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
