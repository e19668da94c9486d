package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	mainFolder = "build/classes/java/main"
	testFolder = "build/classes/java/test"
)

func mainUnit(name, hash string) CompiledUnit {
	return CompiledUnit{Name: name, Path: classPath(name), OutputFolder: mainFolder, Hash: hash}
}

func testUnit(name, hash string) CompiledUnit {
	return CompiledUnit{Name: name, Path: classPath(name), OutputFolder: testFolder, Hash: hash}
}

func classPath(name string) string {
	return strings.ReplaceAll(name, ".", "/") + ".class"
}

// testDef describes a test by unit names; build resolves them to ids.
type testDef struct {
	name    string
	tags    TagSet
	covered []string
	ref     string
}

func build(t *testing.T, units []CompiledUnit, defs ...testDef) *TestImpactAnalysis {
	t.Helper()

	registry := NewRegistry(units)
	firstID := func(name string) int {
		ids := registry.IDsByName(name)
		require.NotEmpty(t, ids, "unit %s not in fixture", name)
		return ids[0]
	}

	tests := make([]AnalyzedTest, 0, len(defs))
	for _, s := range defs {
		covered := make([]int, 0, len(s.covered))
		for _, c := range s.covered {
			covered = append(covered, firstID(c))
		}
		test, err := NewAnalyzedTest(firstID(s.name), s.tags, covered, s.ref)
		require.NoError(t, err)
		tests = append(tests, test)
	}

	tia, err := New(registry, tests)
	require.NoError(t, err)
	return tia
}

var (
	passed = NewTagSet(Passed)
	failed = NewTagSet(Failed)
)
