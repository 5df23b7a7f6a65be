package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment overrides: sync.max_attempts is read
// from MEDINGEST_SYNC_MAX_ATTEMPTS.
const EnvPrefix = "MEDINGEST_"

// processorKeyPrefix scopes free-form post-processor options,
// e.g. processors.json_export.dir.
const processorKeyPrefix = "processors."

const secretMask = "********"

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindDuration
	kindList
)

// setting binds one config key to a field of domain.Config.
type setting struct {
	key    string
	kind   valueKind
	secret bool
	set    func(c *domain.Config, v any)
	get    func(c *domain.Config) any
}

func bind[T any](key string, kind valueKind, set func(*domain.Config, T), get func(*domain.Config) T) setting {
	return setting{
		key:  key,
		kind: kind,
		set:  func(c *domain.Config, v any) { set(c, v.(T)) },
		get:  func(c *domain.Config) any { return get(c) },
	}
}

func secret(s setting) setting {
	s.secret = true
	return s
}

//nolint:gosec // G101: these are config key names, not credentials.
var settingTable = []setting{
	bind("input_dir", kindString,
		func(c *domain.Config, v string) { c.InputDir = v },
		func(c *domain.Config) string { return c.InputDir }),
	bind("recursive", kindBool,
		func(c *domain.Config, v bool) { c.Recursive = v },
		func(c *domain.Config) bool { return c.Recursive }),
	bind("file_extensions", kindList,
		func(c *domain.Config, v []string) { c.FileExtensions = v },
		func(c *domain.Config) []string { return c.FileExtensions }),
	bind("include_content", kindBool,
		func(c *domain.Config, v bool) { c.IncludeContent = v },
		func(c *domain.Config) bool { return c.IncludeContent }),
	bind("concurrency", kindInt,
		func(c *domain.Config, v int) { c.Concurrency = v },
		func(c *domain.Config) int { return c.Concurrency }),
	bind("confidence_threshold", kindFloat,
		func(c *domain.Config, v float64) { c.ConfidenceThreshold = v },
		func(c *domain.Config) float64 { return c.ConfidenceThreshold }),
	bind("vector_db_path", kindString,
		func(c *domain.Config, v string) { c.Vector.Path = v },
		func(c *domain.Config) string { return c.Vector.Path }),
	bind("use_gpu", kindBool,
		func(c *domain.Config, v bool) { c.UseGPU = v },
		func(c *domain.Config) bool { return c.UseGPU }),
	bind("document_timeout", kindDuration,
		func(c *domain.Config, v time.Duration) { c.DocumentTimeout = v },
		func(c *domain.Config) time.Duration { return c.DocumentTimeout }),
	bind("failure_tolerance", kindInt,
		func(c *domain.Config, v int) { c.FailureTolerance = v },
		func(c *domain.Config) int { return c.FailureTolerance }),
	bind("output_dir", kindString,
		func(c *domain.Config, v string) { c.OutputDir = v },
		func(c *domain.Config) string { return c.OutputDir }),
	bind("log_file", kindString,
		func(c *domain.Config, v string) { c.LogFile = v },
		func(c *domain.Config) string { return c.LogFile }),

	bind("vector.backend", kindString,
		func(c *domain.Config, v string) { c.Vector.Backend = domain.VectorBackend(v) },
		func(c *domain.Config) string { return string(c.Vector.Backend) }),
	bind("vector.metric", kindString,
		func(c *domain.Config, v string) { c.Vector.Metric = domain.Metric(v) },
		func(c *domain.Config) string { return string(c.Vector.Metric) }),

	bind("embedding.provider", kindString,
		func(c *domain.Config, v string) { c.Embedding.Provider = domain.EmbeddingProvider(v) },
		func(c *domain.Config) string { return string(c.Embedding.Provider) }),
	bind("embedding.model", kindString,
		func(c *domain.Config, v string) { c.Embedding.Model = v },
		func(c *domain.Config) string { return c.Embedding.Model }),
	bind("embedding.base_url", kindString,
		func(c *domain.Config, v string) { c.Embedding.BaseURL = v },
		func(c *domain.Config) string { return c.Embedding.BaseURL }),
	secret(bind("embedding.api_key", kindString,
		func(c *domain.Config, v string) { c.Embedding.APIKey = v },
		func(c *domain.Config) string { return c.Embedding.APIKey })),
	bind("embedding.dimensions", kindInt,
		func(c *domain.Config, v int) { c.Embedding.Dimensions = v },
		func(c *domain.Config) int { return c.Embedding.Dimensions }),

	bind("model.provider", kindString,
		func(c *domain.Config, v string) { c.Model.Provider = domain.ModelProvider(v) },
		func(c *domain.Config) string { return string(c.Model.Provider) }),
	bind("model.name", kindString,
		func(c *domain.Config, v string) { c.Model.Model = v },
		func(c *domain.Config) string { return c.Model.Model }),
	bind("model.base_url", kindString,
		func(c *domain.Config, v string) { c.Model.BaseURL = v },
		func(c *domain.Config) string { return c.Model.BaseURL }),
	secret(bind("model.api_key", kindString,
		func(c *domain.Config, v string) { c.Model.APIKey = v },
		func(c *domain.Config) string { return c.Model.APIKey })),
	bind("model.timeout", kindDuration,
		func(c *domain.Config, v time.Duration) { c.Model.Timeout = v },
		func(c *domain.Config) time.Duration { return c.Model.Timeout }),

	bind("pipeline.processors", kindList,
		func(c *domain.Config, v []string) { c.Pipeline.Processors = v },
		func(c *domain.Config) []string { return c.Pipeline.Processors }),

	bind("sync.targets", kindList,
		func(c *domain.Config, v []string) {
			c.Sync.Targets = make([]domain.SyncTarget, len(v))
			for i, t := range v {
				c.Sync.Targets[i] = domain.SyncTarget(t)
			}
		},
		func(c *domain.Config) []string {
			out := make([]string, len(c.Sync.Targets))
			for i, t := range c.Sync.Targets {
				out[i] = string(t)
			}
			return out
		}),
	bind("sync.max_attempts", kindInt,
		func(c *domain.Config, v int) { c.Sync.MaxAttempts = v },
		func(c *domain.Config) int { return c.Sync.MaxAttempts }),
	bind("sync.base_backoff", kindDuration,
		func(c *domain.Config, v time.Duration) { c.Sync.BaseBackoff = v },
		func(c *domain.Config) time.Duration { return c.Sync.BaseBackoff }),
	bind("sync.max_backoff", kindDuration,
		func(c *domain.Config, v time.Duration) { c.Sync.MaxBackoff = v },
		func(c *domain.Config) time.Duration { return c.Sync.MaxBackoff }),
	bind("sync.rate_per_second", kindFloat,
		func(c *domain.Config, v float64) { c.Sync.RatePerSecond = v },
		func(c *domain.Config) float64 { return c.Sync.RatePerSecond }),
	bind("sync.burst", kindInt,
		func(c *domain.Config, v int) { c.Sync.Burst = v },
		func(c *domain.Config) int { return c.Sync.Burst }),

	bind("sqlite.path", kindString,
		func(c *domain.Config, v string) { c.Sync.SQLitePath = v },
		func(c *domain.Config) string { return c.Sync.SQLitePath }),
	bind("neo4j.uri", kindString,
		func(c *domain.Config, v string) { c.Sync.Neo4jURI = v },
		func(c *domain.Config) string { return c.Sync.Neo4jURI }),
	bind("neo4j.username", kindString,
		func(c *domain.Config, v string) { c.Sync.Neo4jUser = v },
		func(c *domain.Config) string { return c.Sync.Neo4jUser }),
	secret(bind("neo4j.password", kindString,
		func(c *domain.Config, v string) { c.Sync.Neo4jPassword = v },
		func(c *domain.Config) string { return c.Sync.Neo4jPassword })),
	bind("neo4j.database", kindString,
		func(c *domain.Config, v string) { c.Sync.Neo4jDatabase = v },
		func(c *domain.Config) string { return c.Sync.Neo4jDatabase }),
}

func lookupSetting(key string) (setting, bool) {
	for _, s := range settingTable {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) SettingsOption {
	return func(s *SettingsService) {
		s.lookupEnv = fn
	}
}

// WithDataDir sets the directory holding the default vector index,
// exports and SQLite database. Defaults to the config file's directory.
func WithDataDir(dir string) SettingsOption {
	return func(s *SettingsService) {
		s.dataDir = dir
	}
}

// SettingsService layers defaults, the config store and the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
	dataDir     string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
	if p := configStore.Path(); filepath.IsAbs(p) {
		s.dataDir = filepath.Dir(p)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the effective configuration.
func (s *SettingsService) Load() (domain.Config, error) {
	cfg, _, err := s.resolve()
	return cfg, err
}

// Effective lists every known key with its display value and source.
func (s *SettingsService) Effective() ([]domain.SettingEntry, error) {
	cfg, sources, err := s.resolve()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.SettingEntry, 0, len(settingTable))
	for _, st := range settingTable {
		value := formatValue(st.get(&cfg))
		if st.secret && value != "" {
			value = secretMask
		}
		source := sources[st.key]
		if source == "" {
			source = domain.SourceDefault
		}
		entries = append(entries, domain.SettingEntry{Key: st.key, Value: value, Source: source})
	}
	for key, raw := range s.processorValues() {
		entries = append(entries, domain.SettingEntry{Key: key, Value: formatValue(raw), Source: domain.SourceFile})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Set parses value for key and persists it.
func (s *SettingsService) Set(key, value string) error {
	if strings.HasPrefix(key, processorKeyPrefix) && strings.Count(key, ".") >= 2 {
		if err := s.configStore.Set(key, parseLoose(value)); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	}

	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown key %q", domain.ErrConfiguration, key)
	}

	parsed, err := parseValue(st.kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrConfiguration, key, err)
	}
	// Durations are stored in their string form so the TOML stays readable
	if d, ok := parsed.(time.Duration); ok {
		parsed = d.String()
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the recognised configuration keys, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingTable))
	for i, st := range settingTable {
		keys[i] = st.key
	}
	sort.Strings(keys)
	return keys
}

// Path returns the config file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func (s *SettingsService) resolve() (domain.Config, map[string]domain.SettingSource, error) {
	cfg := domain.DefaultConfig()
	if s.dataDir != "" {
		cfg.Vector.Path = filepath.Join(s.dataDir, "vectors")
		cfg.OutputDir = filepath.Join(s.dataDir, "output")
		cfg.Sync.SQLitePath = filepath.Join(s.dataDir, "entities.db")
	}

	sources := make(map[string]domain.SettingSource)
	for _, st := range settingTable {
		v, ok, err := s.fromStore(st)
		if err != nil {
			return domain.Config{}, nil, err
		}
		if ok {
			st.set(&cfg, v)
			sources[st.key] = domain.SourceFile
		}

		raw, ok := s.lookupEnv(EnvName(st.key))
		if !ok {
			continue
		}
		v, err = parseValue(st.kind, raw)
		if err != nil {
			return domain.Config{}, nil, fmt.Errorf("%w: %s: %v", domain.ErrConfiguration, EnvName(st.key), err)
		}
		st.set(&cfg, v)
		sources[st.key] = domain.SourceEnv
	}

	// The providers' conventional variables fill keys left unset
	modelKeyEnv := "OPENAI_API_KEY"
	if cfg.Model.Provider == domain.ModelProviderAnthropic {
		modelKeyEnv = "ANTHROPIC_API_KEY"
	}
	if key, ok := s.lookupEnv(modelKeyEnv); ok && key != "" && cfg.Model.APIKey == "" {
		cfg.Model.APIKey = key
		sources["model.api_key"] = domain.SourceEnv
	}
	if key, ok := s.lookupEnv("OPENAI_API_KEY"); ok && key != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = key
		sources["embedding.api_key"] = domain.SourceEnv
	}

	for name, values := range groupProcessorValues(s.processorValues()) {
		if cfg.Pipeline.ProcessorConfigs == nil {
			cfg.Pipeline.ProcessorConfigs = make(map[string]map[string]any)
		}
		cfg.Pipeline.ProcessorConfigs[name] = values
	}

	for _, p := range []*string{&cfg.InputDir, &cfg.OutputDir, &cfg.Vector.Path, &cfg.Sync.SQLitePath, &cfg.LogFile} {
		*p = expandHome(*p)
	}
	return cfg, sources, nil
}

// fromStore reads st from the config store. Strings are parsed for
// non-string kinds so hand-edited files may quote numbers.
func (s *SettingsService) fromStore(st setting) (any, bool, error) {
	raw, ok := s.configStore.Get(st.key)
	if !ok {
		return nil, false, nil
	}
	if str, isString := raw.(string); isString && st.kind != kindString {
		v, err := parseValue(st.kind, str)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s in %s: %v", domain.ErrConfiguration, st.key, s.configStore.Path(), err)
		}
		return v, true, nil
	}

	switch st.kind {
	case kindString:
		return s.configStore.GetString(st.key), true, nil
	case kindBool:
		return s.configStore.GetBool(st.key), true, nil
	case kindInt:
		return s.configStore.GetInt(st.key), true, nil
	case kindFloat:
		return s.configStore.GetFloat(st.key), true, nil
	case kindDuration:
		return s.configStore.GetDuration(st.key), true, nil
	case kindList:
		return s.configStore.GetStringSlice(st.key), true, nil
	default:
		return nil, false, nil
	}
}

func (s *SettingsService) processorValues() map[string]any {
	values := make(map[string]any)
	for _, key := range s.configStore.Keys() {
		if !strings.HasPrefix(key, processorKeyPrefix) {
			continue
		}
		if v, ok := s.configStore.Get(key); ok {
			values[key] = v
		}
	}
	return values
}

// groupProcessorValues turns processors.<name>.<option> keys into
// per-processor option maps.
func groupProcessorValues(values map[string]any) map[string]map[string]any {
	grouped := make(map[string]map[string]any)
	for key, v := range values {
		name, option, ok := strings.Cut(strings.TrimPrefix(key, processorKeyPrefix), ".")
		if !ok || name == "" || option == "" {
			continue
		}
		if grouped[name] == nil {
			grouped[name] = make(map[string]any)
		}
		grouped[name][option] = v
	}
	return grouped
}

func parseValue(kind valueKind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindBool:
		return strconv.ParseBool(raw)
	case kindInt:
		return strconv.Atoi(raw)
	case kindFloat:
		return strconv.ParseFloat(raw, 64)
	case kindDuration:
		return time.ParseDuration(raw)
	case kindList:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}

// parseLoose types free-form processor options the way TOML would.
func parseLoose(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
