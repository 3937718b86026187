package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"gcexport/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
)

// rootCmd exports activities when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "gcexport",
	Short: "Export activities from Garmin Connect",
	Long: `gcexport downloads your Garmin Connect activities as GPX, TCX or the
originally uploaded files.

Files are named after the activity id, so running the command again only
downloads what is missing. With --count new the run stops at the first
activity that is already on disk.`,
	Example: `  # Export the most recent activity as GPX into the current directory
  gcexport --username runner@example.com

  # Export everything as original files and unpack the archives
  gcexport -c all -f original -u -d ./garmin

  # Only fetch what was added since the last run
  gcexport -c new -d ./garmin`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExport,
}

// Execute runs the root command and exits 1 on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.NewTerminal(os.Stderr, noColor).PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./.gcexport.yaml or ~/.config/gcexport/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`gcexport {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
