package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tia/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := FormatResponse(version.Current(), OutputFormat(versionFormat))
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "human", "Output format (json, human, yaml, toml)")
	rootCmd.AddCommand(versionCmd)
}
