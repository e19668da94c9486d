package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tia/internal/analysis"
	tiaerrors "tia/internal/errors"
)

var (
	showRaw    bool
	showFormat string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current analysis",
	Long: `Prints the units and tests of the current analysis. With --raw the canonical
persisted encoding is written instead; its content hash is the analysis id.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Write the canonical encoding")
	showCmd.Flags().StringVar(&showFormat, "format", "human", "Output format (json, human, yaml, toml)")
	rootCmd.AddCommand(showCmd)
}

// ShowResponseCLI is a readable rendition of an analysis.
type ShowResponseCLI struct {
	ID    string                  `json:"id" yaml:"id" toml:"id"`
	Units []analysis.CompiledUnit `json:"units" yaml:"units" toml:"units"`
	Tests []ShowTestCLI           `json:"tests" yaml:"tests" toml:"tests"`
}

// ShowTestCLI is one analyzed test with unit names resolved.
type ShowTestCLI struct {
	Name         string   `json:"name" yaml:"name" toml:"name"`
	Tags         []string `json:"tags" yaml:"tags" toml:"tags"`
	Covered      []string `json:"covered" yaml:"covered" toml:"covered"`
	ExecutionRef string   `json:"executionRef,omitempty" yaml:"executionRef,omitempty" toml:"executionRef,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
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

	tia, loaded := e.Load(ctx)
	if !tia.Available() {
		return tiaerrors.Newf(tiaerrors.AnalysisNotFound, "no usable analysis: %s", loaded.Problem)
	}

	if showRaw {
		_, err := cmd.OutOrStdout().Write(analysis.Encode(tia))
		return err
	}

	output, err := FormatResponse(convertAnalysis(tia), OutputFormat(showFormat))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func convertAnalysis(tia *analysis.TestImpactAnalysis) *ShowResponseCLI {
	registry := tia.Registry()
	resp := &ShowResponseCLI{
		ID:    tia.ID(),
		Units: registry.Units(),
		Tests: make([]ShowTestCLI, 0, len(tia.Tests())),
	}
	for _, t := range tia.Tests() {
		covered := make([]string, 0, len(t.CoveredUnitIDs))
		for _, id := range t.CoveredUnitIDs {
			covered = append(covered, registry.UnitByID(id).Name)
		}
		resp.Tests = append(resp.Tests, ShowTestCLI{
			Name:         tia.TestName(t),
			Tags:         t.Tags.Strings(),
			Covered:      covered,
			ExecutionRef: t.ExecutionRef,
		})
	}
	return resp
}
