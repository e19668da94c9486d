package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tia/internal/storage"
)

var finishFormat string

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Fold this build's test facts into the stored analysis",
	Long: `Scans the compiled units, builds an analysis from the recorded test facts and
merges it over the stored one: tests that ran in this build replace their previous
entry, all others carry over. The merged analysis becomes current and older
analyses are pruned.

Run it once after the test task, from a single process.`,
	Args: cobra.NoArgs,
	RunE: runFinish,
}

func init() {
	finishCmd.Flags().StringVar(&finishFormat, "format", "human", "Output format (json, human, yaml, toml)")
	rootCmd.AddCommand(finishCmd)
}

// FinishResponseCLI summarizes a finished build.
type FinishResponseCLI struct {
	PreviousID string              `json:"previousId,omitempty" yaml:"previousId,omitempty" toml:"previousId,omitempty"`
	ID         string              `json:"id" yaml:"id" toml:"id"`
	Units      int                 `json:"units" yaml:"units" toml:"units"`
	Recorded   int                 `json:"recorded" yaml:"recorded" toml:"recorded"`
	Tests      int                 `json:"tests" yaml:"tests" toml:"tests"`
	Ignored    []string            `json:"ignored,omitempty" yaml:"ignored,omitempty" toml:"ignored,omitempty"`
	Pruned     storage.PruneResult `json:"pruned" yaml:"pruned" toml:"pruned"`
}

func runFinish(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	ctx := newContext()

	e, err := p.openEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.Finish(ctx)
	if err != nil {
		return err
	}

	output, err := FormatResponse(&FinishResponseCLI{
		PreviousID: result.PreviousID,
		ID:         result.ID,
		Units:      result.Units,
		Recorded:   result.Recorded,
		Tests:      result.Tests,
		Ignored:    result.Ignored,
		Pruned:     result.Pruned,
	}, OutputFormat(finishFormat))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
