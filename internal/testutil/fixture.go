// Package testutil provides testing utilities for golden tests and
// on-disk build output fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ProjectFixture is a throwaway project tree for collector and storage tests.
type ProjectFixture struct {
	// Root is the absolute path to the project directory
	Root string
}

// NewProjectFixture creates an empty project under t.TempDir().
func NewProjectFixture(t *testing.T) *ProjectFixture {
	t.Helper()
	return &ProjectFixture{Root: t.TempDir()}
}

// WriteFile writes content at a slash-separated path relative to the root,
// creating parent directories, and returns the absolute path.
func (f *ProjectFixture) WriteFile(t *testing.T, rel string, content []byte) string {
	t.Helper()

	path := filepath.Join(f.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write fixture file: %v", err)
	}
	return path
}

// Remove deletes a fixture file.
func (f *ProjectFixture) Remove(t *testing.T, rel string) {
	t.Helper()

	if err := os.Remove(filepath.Join(f.Root, filepath.FromSlash(rel))); err != nil {
		t.Fatalf("Failed to remove fixture file: %v", err)
	}
}

// Path returns the absolute path of a slash-separated relative path.
func (f *ProjectFixture) Path(rel string) string {
	return filepath.Join(f.Root, filepath.FromSlash(rel))
}
