package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tia/internal/analysis"
	"tia/internal/collector"
	"tia/internal/paths"
	"tia/internal/version"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the stored analysis",
	Long:  "Displays the configured storage, the current analysis and whether it can be trusted, and the facts waiting for 'tia finish'",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human, yaml, toml)")
	rootCmd.AddCommand(statusCmd)
}

// StatusResponseCLI contains the project state for CLI output
type StatusResponseCLI struct {
	TiaVersion    string `json:"tiaVersion" yaml:"tiaVersion" toml:"tiaVersion"`
	Root          string `json:"root" yaml:"root" toml:"root"`
	Backend       string `json:"backend" yaml:"backend" toml:"backend"`
	Pointer       string `json:"pointer,omitempty" yaml:"pointer,omitempty" toml:"pointer,omitempty"`
	ID            string `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Verified      bool   `json:"verified" yaml:"verified" toml:"verified"`
	Problem       string `json:"problem,omitempty" yaml:"problem,omitempty" toml:"problem,omitempty"`
	Units         int    `json:"units" yaml:"units" toml:"units"`
	Tests         int    `json:"tests" yaml:"tests" toml:"tests"`
	Failed        int    `json:"failed" yaml:"failed" toml:"failed"`
	AlwaysExecute int    `json:"alwaysExecute" yaml:"alwaysExecute" toml:"alwaysExecute"`
	PendingFacts  int    `json:"pendingFacts" yaml:"pendingFacts" toml:"pendingFacts"`
}

func runStatus(cmd *cobra.Command, args []string) error {
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
	resp := &StatusResponseCLI{
		TiaVersion: version.Info(),
		Root:       p.root,
		Backend:    p.cfg.Storage.Backend,
		Pointer:    loaded.Pointer,
		ID:         loaded.ID,
		Verified:   loaded.Verified,
		Problem:    loaded.Problem,
	}
	if tia.Available() {
		summarizeAnalysis(resp, tia)
	}

	facts, err := collector.ReadFacts(paths.Resolve(p.root, p.cfg.Collector.FactsDir))
	if err != nil {
		p.logger.Warn("Failed to read pending facts", map[string]interface{}{"error": err.Error()})
	}
	resp.PendingFacts = len(facts)

	output, err := FormatResponse(resp, OutputFormat(statusFormat))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func summarizeAnalysis(resp *StatusResponseCLI, tia *analysis.TestImpactAnalysis) {
	resp.Units = tia.Registry().Len()
	resp.Tests = len(tia.Tests())
	for _, t := range tia.Tests() {
		if t.Tags.Has(analysis.Failed) {
			resp.Failed++
		}
		if t.Tags.Has(analysis.AlwaysExecute) {
			resp.AlwaysExecute++
		}
	}
}
