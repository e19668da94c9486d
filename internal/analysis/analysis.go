package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	tiaerrors "tia/internal/errors"
)

// TestImpactAnalysis is the persisted aggregate: a unit registry plus the
// analyzed tests ordered by test unit id. ID is derived from the canonical
// encoding and versions the record.
type TestImpactAnalysis struct {
	registry    *UnitRegistry
	tests       []AnalyzedTest
	byTestUnit  map[int]int
	id          string
	unavailable bool
}

// NotFound stands for "no analysis could be loaded". Prediction against it
// always executes.
var NotFound = &TestImpactAnalysis{
	registry:    NewRegistry(nil),
	byTestUnit:  map[int]int{},
	unavailable: true,
}

// New builds an analysis, checking that every reference resolves in the
// registry and that each test unit id occurs at most once.
func New(registry *UnitRegistry, tests []AnalyzedTest) (*TestImpactAnalysis, error) {
	var sorted []AnalyzedTest
	if len(tests) > 0 {
		sorted = slices.Clone(tests)
	}
	slices.SortStableFunc(sorted, func(a, b AnalyzedTest) int { return a.TestUnitID - b.TestUnitID })

	byTestUnit := make(map[int]int, len(sorted))
	for i, t := range sorted {
		if !registry.Contains(t.TestUnitID) {
			return nil, tiaerrors.Newf(tiaerrors.InvariantViolation, "test unit id %d is not registered", t.TestUnitID)
		}
		if _, dup := byTestUnit[t.TestUnitID]; dup {
			return nil, tiaerrors.Newf(tiaerrors.InvariantViolation, "test unit id %d is analyzed twice", t.TestUnitID)
		}
		if err := t.Tags.Validate(); err != nil {
			return nil, tiaerrors.New(tiaerrors.InvariantViolation, fmt.Sprintf("test unit id %d", t.TestUnitID), err)
		}
		for _, c := range t.CoveredUnitIDs {
			if !registry.Contains(c) {
				return nil, tiaerrors.Newf(tiaerrors.InvariantViolation, "test unit id %d covers unregistered id %d", t.TestUnitID, c)
			}
		}
		sorted[i].CoveredUnitIDs = normalizeIDs(t.CoveredUnitIDs)
		byTestUnit[t.TestUnitID] = i
	}

	tia := &TestImpactAnalysis{
		registry:   registry,
		tests:      sorted,
		byTestUnit: byTestUnit,
	}
	tia.id = contentID(Encode(tia))
	return tia, nil
}

// Empty returns an analysis with no units and no tests.
func Empty() *TestImpactAnalysis {
	tia, err := New(NewRegistry(nil), nil)
	if err != nil {
		panic(err)
	}
	return tia
}

func contentID(encoded []byte) string {
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:16])
}

// Available reports whether the analysis holds real data rather than NotFound.
func (t *TestImpactAnalysis) Available() bool {
	return t != nil && !t.unavailable
}

// ID is the content hash of the canonical encoding.
func (t *TestImpactAnalysis) ID() string {
	return t.id
}

// Registry returns the owned unit registry.
func (t *TestImpactAnalysis) Registry() *UnitRegistry {
	return t.registry
}

// Tests returns the analyzed tests ordered by test unit id. The slice must
// not be modified.
func (t *TestImpactAnalysis) Tests() []AnalyzedTest {
	return t.tests
}

// TestByUnitID returns the analyzed test whose test unit id is id.
func (t *TestImpactAnalysis) TestByUnitID(id int) (AnalyzedTest, bool) {
	i, ok := t.byTestUnit[id]
	if !ok {
		return AnalyzedTest{}, false
	}
	return t.tests[i], true
}

// TestsByName returns the analyzed tests whose unit has the qualified name,
// in ascending test unit id order.
func (t *TestImpactAnalysis) TestsByName(name string) []AnalyzedTest {
	var out []AnalyzedTest
	for _, id := range t.registry.IDsByName(name) {
		if test, ok := t.TestByUnitID(id); ok {
			out = append(out, test)
		}
	}
	return out
}

// TestName returns the qualified name of the test's unit.
func (t *TestImpactAnalysis) TestName(test AnalyzedTest) string {
	return t.registry.UnitByID(test.TestUnitID).Name
}

// ExecutionRefs returns every execution reference held by the analysis.
func (t *TestImpactAnalysis) ExecutionRefs() map[string]bool {
	refs := make(map[string]bool)
	for _, test := range t.tests {
		if test.HasExecutionRef() {
			refs[test.ExecutionRef] = true
		}
	}
	return refs
}
