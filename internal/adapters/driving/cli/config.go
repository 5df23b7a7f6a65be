package cli

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change configuration.

Values resolve in order: defaults, the config file, then MEDINGEST_*
environment variables.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration and where each value came from",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Lists are comma separated and durations use Go syntax (30s, 2m).
Post-processor options use processors.<name>.<option>.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	entries, err := settingsService.Effective()
	if err != nil {
		return err
	}

	cmd.Printf("Config file: %s\n\n", settingsService.Path())
	for _, e := range entries {
		value := e.Value
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %-24s %-40s [%s]\n", e.Key, value, e.Source)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if err := settingsService.Set(key, args[1]); err != nil {
		return err
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	cmd.Println(settingsService.Path())
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}
