package collector

import (
	"sort"
	"strings"
)

// NestedSeparator joins an enclosing test's name and a nested test's name.
const NestedSeparator = "$"

// scope is one test's coverage in the fold arena. parent is the index of
// the nearest enclosing test that also reported, or -1.
type scope struct {
	fact    TestFact
	parent  int
	depth   int
	covered map[string]bool
}

// FoldNested propagates nested coverage to enclosing tests. Each enclosing
// test ends up covering its own units, every unit its nested tests covered
// and the nested test units themselves. Facts are returned sorted by test
// name; a name reported twice keeps the last fact.
func FoldNested(facts []TestFact) []TestFact {
	byName := make(map[string]int, len(facts))
	var arena []scope
	for _, f := range facts {
		if i, ok := byName[f.TestName]; ok {
			arena[i].fact = f
			continue
		}
		byName[f.TestName] = len(arena)
		arena = append(arena, scope{fact: f, parent: -1})
	}

	for i := range arena {
		name := arena[i].fact.TestName
		arena[i].covered = make(map[string]bool, len(arena[i].fact.CoveredUnits))
		for _, u := range arena[i].fact.CoveredUnits {
			arena[i].covered[u] = true
		}
		arena[i].depth = strings.Count(name, NestedSeparator)
		for enclosing := enclosingName(name); enclosing != ""; enclosing = enclosingName(enclosing) {
			if p, ok := byName[enclosing]; ok {
				arena[i].parent = p
				break
			}
		}
	}

	// Deepest scopes first, so each child is complete before it folds up.
	order := make([]int, len(arena))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return arena[order[a]].depth > arena[order[b]].depth })

	for _, i := range order {
		p := arena[i].parent
		if p < 0 {
			continue
		}
		arena[p].covered[arena[i].fact.TestName] = true
		for u := range arena[i].covered {
			arena[p].covered[u] = true
		}
	}

	out := make([]TestFact, len(arena))
	for i, s := range arena {
		f := s.fact
		f.CoveredUnits = make([]string, 0, len(s.covered))
		for u := range s.covered {
			f.CoveredUnits = append(f.CoveredUnits, u)
		}
		sort.Strings(f.CoveredUnits)
		out[i] = f
	}
	sort.Slice(out, func(a, b int) bool { return out[a].TestName < out[b].TestName })
	return out
}

// enclosingName strips the innermost nesting level, or returns "".
func enclosingName(name string) string {
	i := strings.LastIndex(name, NestedSeparator)
	if i <= 0 {
		return ""
	}
	return name[:i]
}
