package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	configfile "github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change docpilot configuration.

Well-known keys:
  gemini.api_key             API key for the generative service
  gemini.base_url            API base URL (defaults to the public endpoint)
  gemini.model               model identifier
  gemini.requests_per_minute outbound rate limit
  storage.data_dir           data directory

The ` + configfile.EnvAPIKey + ` environment variable overrides the stored API key.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func openConfig() (*configfile.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	cfg, err := configfile.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	configStore = cfg
	return cfg, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := openConfig()
	if err != nil {
		return err
	}

	val, ok := cfg.Get(args[0])
	if !ok {
		return fmt.Errorf("key %s is not set", args[0])
	}
	cmd.Printf("%v\n", redacted(args[0], val))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := openConfig()
	if err != nil {
		return err
	}

	if err := cfg.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := openConfig()
	if err != nil {
		return err
	}

	keys := []string{
		configfile.KeyAPIKey,
		configfile.KeyBaseURL,
		configfile.KeyModel,
		configfile.KeyRequestsPerMinute,
		configfile.KeyDataDir,
	}
	sort.Strings(keys)

	cmd.Printf("Config file: %s\n\n", cfg.Path())
	for _, key := range keys {
		val, ok := cfg.Get(key)
		if !ok {
			cmd.Printf("  %-28s (not set)\n", key)
			continue
		}
		cmd.Printf("  %-28s %v\n", key, redacted(key, val))
	}
	return nil
}

// redacted masks secrets in display output.
func redacted(key string, val any) any {
	if !strings.HasSuffix(key, "api_key") {
		return val
	}
	s, ok := val.(string)
	if !ok || len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}
