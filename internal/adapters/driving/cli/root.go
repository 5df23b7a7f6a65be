// Package cli implements the medingest command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/medingest/internal/app"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
	"github.com/custodia-labs/medingest/internal/core/services"
	"github.com/custodia-labs/medingest/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configDir string
	verbose   bool
)

var (
	// settingsService resolves configuration. Built on first use from the
	// config directory unless already set.
	settingsService driving.SettingsService

	// newApp builds the application graph for commands that need it.
	newApp = app.New
)

var rootCmd = &cobra.Command{
	Use:   "medingest",
	Short: "Ingest medical documents into searchable, structured records",
	Long: `medingest extracts text from medical documents (PDF, HTML, Markdown,
plain text and more), pulls out clinical entities such as conditions,
medications and providers, indexes everything for similarity search and
syncs the entities to structured stores.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"configuration directory (default ~/"+file.DefaultDirName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command and the MCP server.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if settingsService != nil {
		return nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return err
	}
	settingsService = services.NewSettingsService(store)
	return nil
}

// loadConfig resolves the effective configuration and applies its
// logging options.
func loadConfig() (domain.Config, error) {
	if settingsService == nil {
		return domain.Config{}, errors.New("settings service not configured")
	}
	cfg, err := settingsService.Load()
	if err != nil {
		return domain.Config{}, err
	}
	if cfg.LogFile != "" {
		logger.SetFile(logger.FileOptions{
			Path:       cfg.LogFile,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		})
	}
	return cfg, nil
}

// openApp loads the configuration and builds the application graph.
// Callers must Close the returned context.
func openApp(cmd *cobra.Command) (*app.Context, domain.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return nil, cfg, err
	}
	return a, cfg, nil
}
