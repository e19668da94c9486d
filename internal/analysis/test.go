package analysis

import (
	"slices"
)

// AnalyzedTest is one test's recorded outcome and coverage.
type AnalyzedTest struct {
	// TestUnitID is the registry id of the test's own compiled unit.
	TestUnitID int
	Tags       TagSet
	// CoveredUnitIDs is ascending and duplicate free. It may contain TestUnitID.
	CoveredUnitIDs []int
	// ExecutionRef identifies a stored raw coverage blob. Empty when absent.
	ExecutionRef string
}

// NewAnalyzedTest validates tags and normalizes the covered ids.
func NewAnalyzedTest(testUnitID int, tags TagSet, covered []int, executionRef string) (AnalyzedTest, error) {
	if err := tags.Validate(); err != nil {
		return AnalyzedTest{}, err
	}
	return AnalyzedTest{
		TestUnitID:     testUnitID,
		Tags:           tags,
		CoveredUnitIDs: normalizeIDs(covered),
		ExecutionRef:   executionRef,
	}, nil
}

// HasExecutionRef reports whether raw coverage was stored for the test.
func (t AnalyzedTest) HasExecutionRef() bool {
	return t.ExecutionRef != ""
}

func normalizeIDs(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
