package analysis

import (
	tiaerrors "tia/internal/errors"
)

// Merge combines a baseline with the analysis of a fresher build.
//
// Incoming wins per test: every baseline test whose test unit name occurs
// among the incoming tests is dropped, and the remaining baseline tests pass
// through with their references renumbered into the merged registry. Tests
// whose units vanished are kept; prediction reports them as not found.
//
// Merge is not commutative. incoming must be the newer data.
func Merge(baseline, incoming *TestImpactAnalysis) *TestImpactAnalysis {
	if !baseline.Available() {
		baseline = Empty()
	}
	merged := baseline.registry.Merge(incoming.registry)

	replaced := make(map[string]bool, len(incoming.tests))
	for _, test := range incoming.tests {
		replaced[incoming.TestName(test)] = true
	}

	tests := make([]AnalyzedTest, 0, len(baseline.tests)+len(incoming.tests))
	for _, test := range baseline.tests {
		if replaced[baseline.TestName(test)] {
			continue
		}
		tests = append(tests, translate(test, baseline.registry, merged))
	}
	for _, test := range incoming.tests {
		tests = append(tests, translate(test, incoming.registry, merged))
	}

	tia, err := New(merged, tests)
	if err != nil {
		panic(tiaerrors.New(tiaerrors.InvariantViolation, "merged analysis is inconsistent", err))
	}
	return tia
}

// translate rewrites every unit reference of test from one registry's ids to
// another's by resolving the underlying unit identity.
func translate(test AnalyzedTest, from, to *UnitRegistry) AnalyzedTest {
	resolve := func(id int) int {
		unit := from.UnitByID(id)
		newID, ok := to.LookupID(unit)
		if !ok {
			panic(tiaerrors.Newf(tiaerrors.InvariantViolation, "unit %s lost during merge", unit))
		}
		return newID
	}

	covered := make([]int, len(test.CoveredUnitIDs))
	for i, id := range test.CoveredUnitIDs {
		covered[i] = resolve(id)
	}
	return AnalyzedTest{
		TestUnitID:     resolve(test.TestUnitID),
		Tags:           test.Tags,
		CoveredUnitIDs: normalizeIDs(covered),
		ExecutionRef:   test.ExecutionRef,
	}
}
