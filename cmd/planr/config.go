package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pders01/planr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or generate the configuration",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration to ~/.config/planr/config.toml",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		configFile := defaultConfigFile()
		if err := config.GenerateDefaultConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := config.Render(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n%s", configLocation(), out)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGenCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func defaultConfigFile() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "planr", "config.toml")
}

// configLocation names the file settings come from, for messages.
func configLocation() string {
	if configPath != "" {
		return configPath
	}
	return defaultConfigFile()
}
