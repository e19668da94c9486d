package main

import (
	"fmt"

	"github.com/spf13/cobra"

	tiaerrors "tia/internal/errors"
	"tia/internal/predict"
	"tia/internal/version"
)

var (
	predictTestsFile   string
	predictTags        []string
	predictAnnotations []string
	predictFormat      string
)

var predictCmd = &cobra.Command{
	Use:   "predict [test...]",
	Short: "Decide which tests can be skipped",
	Long: `Compares the stored analysis with the compiled units of this build and decides,
per test, whether it must execute. Every decision carries the reason behind it.

Without a trustworthy stored analysis every test executes. Tests the analysis
knows nothing about always execute.

Examples:
  tia predict com.example.FooTest com.example.BarTest
  tia predict --tests-file all-tests.txt --format=list   # only the tests to run
  tia predict com.example.FooTest --annotation Integration`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictTestsFile, "tests-file", "", "File listing test names, one per line")
	predictCmd.Flags().StringSliceVar(&predictTags, "test-tag", nil, "Runner tag carried by the tests, for modifiers (repeatable)")
	predictCmd.Flags().StringSliceVar(&predictAnnotations, "annotation", nil, "Annotation carried by the tests, for modifiers (repeatable)")
	predictCmd.Flags().StringVar(&predictFormat, "format", "human", "Output format (json, human, yaml, toml, list)")
	rootCmd.AddCommand(predictCmd)
}

// PredictResponseCLI holds the decisions for one predict invocation.
type PredictResponseCLI struct {
	TiaVersion  string                `json:"tiaVersion" yaml:"tiaVersion" toml:"tiaVersion"`
	AnalysisID  string                `json:"analysisId,omitempty" yaml:"analysisId,omitempty" toml:"analysisId,omitempty"`
	Predictions []predict.Prediction  `json:"predictions" yaml:"predictions" toml:"predictions"`
	Stats       predict.StatsSnapshot `json:"stats" yaml:"stats" toml:"stats"`
}

func runPredict(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	ctx := newContext()

	names := append([]string(nil), args...)
	if predictTestsFile != "" {
		listed, err := readUnitList(predictTestsFile)
		if err != nil {
			return tiaerrors.New(tiaerrors.InternalError, "Failed to read test list", err)
		}
		names = append(names, listed...)
	}
	if len(names) == 0 {
		return fmt.Errorf("no tests given: pass test names or --tests-file")
	}

	e, err := p.openEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	meta := predict.Metadata{Tags: predictTags, Annotations: predictAnnotations}
	result, err := e.PredictAll(ctx, names, meta)
	if err != nil {
		return err
	}

	resp := &PredictResponseCLI{
		TiaVersion:  version.Version,
		AnalysisID:  result.AnalysisID,
		Predictions: result.Predictions,
		Stats:       result.Stats,
	}

	p.logger.Debug("Prediction completed", map[string]interface{}{
		"tests":    resp.Stats.Total,
		"skipped":  resp.Stats.Skipped,
		"duration": resp.Stats.ElapsedMs,
	})

	if predictFormat == "list" {
		// Tests to execute, one per line, for CI scripts.
		for _, prediction := range resp.Predictions {
			if !prediction.Skipped() {
				fmt.Fprintln(cmd.OutOrStdout(), prediction.Test)
			}
		}
		return nil
	}

	output, err := FormatResponse(resp, OutputFormat(predictFormat))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
