package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	factSuffix     = ".json"
	coverageSuffix = ".exec"
)

// FactWriter stores one fact file per test. Distinct tests never share a
// file, so concurrent test workers need no coordination.
type FactWriter struct {
	Dir string
}

// NewFactWriter creates a writer for dir.
func NewFactWriter(dir string) *FactWriter {
	return &FactWriter{Dir: dir}
}

// factFile maps a test name to a file base name.
func factFile(testName string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", ":", "_")
	return r.Replace(testName)
}

// Write stores fact, replacing an earlier fact for the same test. The raw
// coverage blob, if any, is written before the fact that announces it.
func (w *FactWriter) Write(fact TestFact) error {
	if strings.TrimSpace(fact.TestName) == "" {
		return fmt.Errorf("test fact needs a test name")
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create facts directory: %w", err)
	}

	base := filepath.Join(w.Dir, factFile(fact.TestName))
	if len(fact.RawCoverage) > 0 {
		if err := writeAtomic(base+coverageSuffix, fact.RawCoverage); err != nil {
			return fmt.Errorf("failed to write raw coverage: %w", err)
		}
	} else if err := os.Remove(base + coverageSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale raw coverage: %w", err)
	}

	data, err := json.MarshalIndent(fact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal test fact: %w", err)
	}
	if err := writeAtomic(base+factSuffix, data); err != nil {
		return fmt.Errorf("failed to write test fact: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// ReadFacts loads every fact in dir, sorted by test name. A missing
// directory holds no facts.
func ReadFacts(dir string) ([]TestFact, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var facts []TestFact
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, factSuffix) {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var fact TestFact
		if err := json.Unmarshal(data, &fact); err != nil {
			return nil, fmt.Errorf("invalid test fact %s: %w", name, err)
		}
		if fact.TestName == "" {
			return nil, fmt.Errorf("invalid test fact %s: missing test name", name)
		}

		raw, err := os.ReadFile(strings.TrimSuffix(path, factSuffix) + coverageSuffix)
		switch {
		case err == nil:
			fact.RawCoverage = raw
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
		facts = append(facts, fact)
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].TestName < facts[j].TestName })
	return facts, nil
}

// ClearFacts removes every fact and raw coverage file from dir.
func ClearFacts(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, factSuffix) || strings.HasSuffix(name, coverageSuffix)) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
