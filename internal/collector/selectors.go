package collector

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Selector decides which files in an output folder are compiled units and
// derives their qualified name from the slash-separated relative path.
type Selector interface {
	Select(rel string) (name string, ok bool)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(rel string) (string, bool)

func (f SelectorFunc) Select(rel string) (string, bool) { return f(rel) }

// Selectors maps collector.selector configuration values to selectors.
var Selectors = map[string]Selector{
	"class-files": SelectorFunc(selectClassFiles),
	"all-files":   SelectorFunc(selectAllFiles),
}

// LookupSelector returns the named selector.
func LookupSelector(name string) (Selector, error) {
	s, ok := Selectors[name]
	if !ok {
		names := make([]string, 0, len(Selectors))
		for n := range Selectors {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown selector %q (available: %s)", name, strings.Join(names, ", "))
	}
	return s, nil
}

// selectClassFiles maps com/example/Foo$Bar.class to com.example.Foo$Bar.
func selectClassFiles(rel string) (string, bool) {
	if !strings.HasSuffix(rel, ".class") {
		return "", false
	}
	return dotted(strings.TrimSuffix(rel, ".class")), true
}

// selectAllFiles accepts every file and strips its extension.
func selectAllFiles(rel string) (string, bool) {
	return dotted(strings.TrimSuffix(rel, path.Ext(rel))), true
}

func dotted(p string) string {
	return strings.ReplaceAll(p, "/", ".")
}
