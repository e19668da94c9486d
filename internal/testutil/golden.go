package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// CompareGolden compares got against the golden file at path, failing with a
// diff on mismatch. With -update the file is rewritten instead.
func CompareGolden(t *testing.T, path string, got []byte) {
	t.Helper()

	if *updateGolden {
		UpdateGolden(t, path, got)
		t.Logf("Updated golden: %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden file %s: %v (run with -update to create it)", path, err)
	}

	if !bytes.Equal(want, got) {
		t.Errorf("Golden mismatch for %s:\n%s", path, unifiedDiff(string(want), string(got), path))
	}
}

// UpdateGolden writes data to the golden file, creating parent directories.
func UpdateGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create golden directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write golden file: %v", err)
	}
}

// unifiedDiff produces a line-by-line diff with a little leading context.
func unifiedDiff(expected, got, path string) string {
	var buf bytes.Buffer

	expectedLines := strings.Split(expected, "\n")
	gotLines := strings.Split(got, "\n")

	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	n := max(len(expectedLines), len(gotLines))
	lastContext := -1
	for i := 0; i < n; i++ {
		var expLine, gotLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(gotLines) {
			gotLine = gotLines[i]
		}
		if expLine == gotLine {
			continue
		}

		for j := max(lastContext+1, i-2); j < i; j++ {
			if j < len(expectedLines) {
				buf.WriteString(" " + expectedLines[j] + "\n")
			}
		}
		fmt.Fprintf(&buf, "@@ line %d @@\n", i+1)
		if i < len(expectedLines) {
			buf.WriteString("-" + expLine + "\n")
		}
		if i < len(gotLines) {
			buf.WriteString("+" + gotLine + "\n")
		}
		lastContext = i
	}

	return buf.String()
}
