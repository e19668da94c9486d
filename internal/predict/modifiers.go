package predict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Modifier may force a test the rule chain would skip to execute. It is
// consulted only after a SKIP, so it can never turn EXECUTE into SKIP.
type Modifier interface {
	Name() string
	Modify(test string, meta Metadata) (force bool, detail string)
}

// ModifierFactory builds a modifier from its configured values.
type ModifierFactory func(values []string) (Modifier, error)

// Modifiers maps configuration names to factories.
var Modifiers = map[string]ModifierFactory{
	"tags":        newTagModifier,
	"annotations": newAnnotationModifier,
	"pattern":     newPatternModifier,
}

// ModifierNames returns the registered modifier names, sorted.
func ModifierNames() []string {
	names := make([]string, 0, len(Modifiers))
	for name := range Modifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewModifier looks up name in Modifiers and builds it.
func NewModifier(name string, values []string) (Modifier, error) {
	factory, ok := Modifiers[name]
	if !ok {
		return nil, fmt.Errorf("unknown modifier %q (available: %s)", name, strings.Join(ModifierNames(), ", "))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("modifier %q needs at least one value", name)
	}
	return factory(values)
}

// metadataModifier forces execution when a metadata field carries one of the
// configured values. Matching ignores case.
type metadataModifier struct {
	name   string
	values map[string]bool
	field  func(Metadata) []string
}

func newTagModifier(values []string) (Modifier, error) {
	return newMetadataModifier("tags", values, func(m Metadata) []string { return m.Tags }), nil
}

func newAnnotationModifier(values []string) (Modifier, error) {
	return newMetadataModifier("annotations", values, func(m Metadata) []string { return m.Annotations }), nil
}

func newMetadataModifier(name string, values []string, field func(Metadata) []string) *metadataModifier {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return &metadataModifier{name: name, values: set, field: field}
}

func (m *metadataModifier) Name() string { return m.name }

func (m *metadataModifier) Modify(_ string, meta Metadata) (bool, string) {
	for _, v := range m.field(meta) {
		if m.values[strings.ToLower(v)] {
			return true, m.name + "=" + v
		}
	}
	return false, ""
}

// patternModifier forces execution of tests whose qualified name matches one
// of its glob patterns.
type patternModifier struct {
	patterns []string
}

func newPatternModifier(values []string) (Modifier, error) {
	for _, p := range values {
		if _, err := doublestar.Match(p, p); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return &patternModifier{patterns: values}, nil
}

func (m *patternModifier) Name() string { return "pattern" }

func (m *patternModifier) Modify(test string, _ Metadata) (bool, string) {
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, test); ok {
			return true, "pattern=" + p
		}
	}
	return false, ""
}
