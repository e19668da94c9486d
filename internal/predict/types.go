// Package predict decides, per test, whether it can be skipped.
//
// Rules run in a fixed order and the first match wins. Every rule except the
// last one yields EXECUTE, so incomplete or ambiguous data always errs toward
// running the test. Absence of data is reported as a Reason, never as an
// error.
package predict

import (
	"fmt"

	"tia/internal/analysis"
)

// Decision is the outcome for one test.
type Decision string

const (
	Skip    Decision = "SKIP"
	Execute Decision = "EXECUTE"
)

// Reason justifies a Decision.
type Reason string

const (
	AnalysisNotFound               Reason = "ANALYSIS_NOT_FOUND"
	NoDataForTest                  Reason = "NO_DATA_FOR_TEST"
	TestUnitNotFound               Reason = "TEST_UNIT_NOT_FOUND"
	ChangeInTest                   Reason = "CHANGE_IN_TEST"
	TaggedAlwaysExecute            Reason = "TAGGED_ALWAYS_EXECUTE"
	CoveredTestTaggedAlwaysExecute Reason = "COVERED_TEST_TAGGED_ALWAYS_EXECUTE"
	CoveredTestFailedPreviously    Reason = "COVERED_TEST_FAILED_PREVIOUSLY"
	TestFailedPreviously           Reason = "TEST_FAILED_PREVIOUSLY"
	CoveredUnitNotFound            Reason = "COVERED_UNIT_NOT_FOUND"
	ChangeInCoveredUnit            Reason = "CHANGE_IN_COVERED_UNIT"
	MissingExecutionReference      Reason = "MISSING_EXECUTION_REFERENCE"
	UnableToReadExecutionData      Reason = "UNABLE_TO_READ_EXECUTION_DATA"
	OverrideByModifier             Reason = "OVERRIDE_BY_MODIFIER"
	NoChange                       Reason = "NO_CHANGE"
)

// Prediction is a decision with the reason behind it. Detail names the
// offending unit or test when there is one.
type Prediction struct {
	Test     string   `json:"test" yaml:"test" toml:"test"`
	Decision Decision `json:"decision" yaml:"decision" toml:"decision"`
	Reason   Reason   `json:"reason" yaml:"reason" toml:"reason"`
	Detail   string   `json:"detail,omitempty" yaml:"detail,omitempty" toml:"detail,omitempty"`
}

func (p Prediction) String() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s %s (%s: %s)", p.Decision, p.Test, p.Reason, p.Detail)
	}
	return fmt.Sprintf("%s %s (%s)", p.Decision, p.Test, p.Reason)
}

// Skipped reports whether the test may be skipped.
func (p Prediction) Skipped() bool {
	return p.Decision == Skip
}

// UnitState reports the current content hash of a compiled unit.
type UnitState interface {
	CurrentHash(unit analysis.CompiledUnit) (hash string, found bool)
}

// CurrentUnits is a UnitState backed by a fresh unit scan.
type CurrentUnits map[analysis.UnitKey]string

// NewCurrentUnits indexes scanned units by identity.
func NewCurrentUnits(units []analysis.CompiledUnit) CurrentUnits {
	state := make(CurrentUnits, len(units))
	for _, u := range units {
		state[u.Key()] = u.Hash
	}
	return state
}

// CurrentHash implements UnitState.
func (c CurrentUnits) CurrentHash(unit analysis.CompiledUnit) (string, bool) {
	hash, ok := c[unit.Key()]
	return hash, ok
}

// Metadata is what the test runner knows about a test at run time.
type Metadata struct {
	Tags        []string `json:"tags,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
}

// Options tunes the rule set.
type Options struct {
	// RequireExecutionData makes a skip depend on the test's raw coverage
	// being retrievable, so coverage reports stay complete for skipped tests.
	RequireExecutionData bool
}
