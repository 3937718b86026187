package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gcexport/pkg/config"
	"gcexport/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage gcexport configuration files.

Configuration is layered, highest priority first:
  - Command line flags
  - Environment variables (GCEXPORT_*, .env files included)
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with the default values.

The file is created as '.gcexport.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".gcexport.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	terminal := ui.NewTerminal(cmd.OutOrStdout(), noColor)
	terminal.PrintSuccess("Configuration file created: " + path)
	terminal.PrintInfo("Next", "store credentials with 'gcexport auth login'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Service.Password != "" {
		display.Service.Password = "********"
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	req, err := cfg.Request()
	if err != nil {
		return err
	}

	terminal := ui.NewTerminal(cmd.OutOrStdout(), noColor)
	terminal.PrintSuccess("Configuration is valid")
	terminal.PrintInfo("Protocol", cfg.Service.Protocol)
	terminal.PrintInfo("Directory", req.Directory)
	terminal.PrintInfo("Format", string(req.Format))
	terminal.PrintInfo("Count", req.Count.String())
	if cfg.RateLimit.RequestsPerMinute > 0 {
		terminal.PrintInfo("Rate limit", fmt.Sprintf("%d requests/minute", cfg.RateLimit.RequestsPerMinute))
	}
	return nil
}
