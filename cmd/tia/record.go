package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tia/internal/collector"
	tiaerrors "tia/internal/errors"
)

var (
	recordTest        string
	recordTags        []string
	recordCovered     []string
	recordCoveredFile string
	recordRawFile     string
	recordFormat      string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the outcome and coverage of one test",
	Long: `Writes one test fact for the current build. Facts are folded into the stored
analysis by 'tia finish'. Each test writes its own file, so parallel test workers
can record concurrently.

Nested tests use '$' in their name (com.example.Suite$Inner); their outcome and
coverage also count for the enclosing test.

Examples:
  tia record --test com.example.FooTest --tag PASSED --covered com.example.Foo
  tia record --test com.example.BarTest --tag FAILED --covered-file bar.units
  tia record --test com.example.FooTest --tag PASSED --covered-file foo.units --raw-file foo.exec`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordTest, "test", "", "Fully qualified test name")
	recordCmd.Flags().StringSliceVar(&recordTags, "tag", nil, "Test tag: PASSED, FAILED or ALWAYS_EXECUTE (repeatable)")
	recordCmd.Flags().StringSliceVar(&recordCovered, "covered", nil, "Name of a covered unit (repeatable)")
	recordCmd.Flags().StringVar(&recordCoveredFile, "covered-file", "", "File listing covered unit names, one per line")
	recordCmd.Flags().StringVar(&recordRawFile, "raw-file", "", "Raw coverage blob to keep with the test")
	recordCmd.Flags().StringVar(&recordFormat, "format", "human", "Output format (json, human, yaml, toml)")
	_ = recordCmd.MarkFlagRequired("test")
	rootCmd.AddCommand(recordCmd)
}

// RecordResponseCLI confirms a recorded fact.
type RecordResponseCLI struct {
	Test        string   `json:"test" yaml:"test" toml:"test"`
	Tags        []string `json:"tags" yaml:"tags" toml:"tags"`
	Covered     int      `json:"covered" yaml:"covered" toml:"covered"`
	RawCoverage bool     `json:"rawCoverage" yaml:"rawCoverage" toml:"rawCoverage"`
}

func runRecord(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	ctx := newContext()

	covered := append([]string(nil), recordCovered...)
	if recordCoveredFile != "" {
		names, err := readUnitList(recordCoveredFile)
		if err != nil {
			return tiaerrors.New(tiaerrors.CollectorFailed, "Failed to read covered units", err)
		}
		covered = append(covered, names...)
	}

	fact := collector.TestFact{
		TestName:     recordTest,
		Tags:         recordTags,
		CoveredUnits: covered,
	}
	if recordRawFile != "" {
		fact.RawCoverage, err = os.ReadFile(recordRawFile)
		if err != nil {
			return tiaerrors.New(tiaerrors.CollectorFailed, "Failed to read raw coverage", err)
		}
	}

	e, err := p.openEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Record(fact); err != nil {
		return err
	}

	output, err := FormatResponse(&RecordResponseCLI{
		Test:        fact.TestName,
		Tags:        fact.Tags,
		Covered:     len(fact.CoveredUnits),
		RawCoverage: len(fact.RawCoverage) > 0,
	}, OutputFormat(recordFormat))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// readUnitList reads unit names, one per line. Blank lines and lines starting
// with '#' are skipped.
func readUnitList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}
