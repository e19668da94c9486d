package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tia/internal/config"
	tiaerrors "tia/internal/errors"
	"tia/internal/paths"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long:  "Creates .tia/config.json with the default configuration in the project root",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return tiaerrors.New(tiaerrors.InternalError, "Failed to resolve project root", err)
	}

	configPath := paths.ConfigPath(root)
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Already initialized is success, so CI can run init unconditionally.
		fmt.Fprintf(cmd.OutOrStdout(), "tia already initialized: %s\n", configPath)
		fmt.Fprintln(cmd.OutOrStdout(), "Run 'tia init --force' to overwrite.")
		return nil
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		return tiaerrors.New(tiaerrors.InternalError, "Failed to write configuration", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}
