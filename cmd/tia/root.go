package main

import (
	"github.com/spf13/cobra"

	"tia/internal/version"
)

var (
	// rootFlag is the project root; the working directory when empty
	rootFlag string
	// logLevelFlag overrides logging.level from the config
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "tia",
	Short: "tia - test impact analysis",
	Long: `tia records which compiled units each test covers and, on the next build,
decides per test whether it can be skipped because nothing it depends on changed.

A build records one fact per test (tia record), then folds them into the stored
analysis (tia finish). The following build asks for decisions (tia predict).`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("tia version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error, silent")
}
