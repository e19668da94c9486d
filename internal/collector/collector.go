// Package collector gathers what a build produced: the compiled units on
// disk and one fact per executed test.
package collector

import (
	"context"

	"tia/internal/analysis"
)

// Collector supplies the inputs of an analysis. Scanning happens once per
// call, after every test writer has finished.
type Collector interface {
	CurrentUnits(ctx context.Context) ([]analysis.CompiledUnit, error)
	CurrentTestFacts(ctx context.Context) ([]TestFact, error)
}

// TestFact is what one executed test reported.
type TestFact struct {
	// TestName is the qualified name of the test unit.
	TestName string `json:"test"`
	// Tags holds PASSED or FAILED and optionally ALWAYS_EXECUTE.
	Tags []string `json:"tags"`
	// CoveredUnits are qualified names of units the test exercised.
	CoveredUnits []string `json:"coveredUnits,omitempty"`
	// RawCoverage is the test's raw coverage record, if captured.
	RawCoverage []byte `json:"-"`
}
