package driving

import "github.com/custodia-labs/medingest/internal/core/domain"

// SettingsService resolves configuration from defaults, the config file
// and the environment, in increasing precedence.
type SettingsService interface {
	// Load returns the effective configuration. It does not validate.
	Load() (domain.Config, error)

	// Effective lists every known key with its display value and source.
	// Secrets are masked.
	Effective() ([]domain.SettingEntry, error)

	// Set parses value for key and persists it to the config file.
	Set(key, value string) error

	// Keys returns the recognised configuration keys, sorted.
	Keys() []string

	// Path returns the config file path.
	Path() string
}
