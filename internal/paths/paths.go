// Package paths knows the on-disk layout of a project's .tia directory.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DirName is the per-project state directory.
const DirName = ".tia"

// TiaDir returns <root>/.tia.
func TiaDir(root string) string {
	return filepath.Join(root, DirName)
}

// ConfigPath returns <root>/.tia/config.json.
func ConfigPath(root string) string {
	return filepath.Join(TiaDir(root), "config.json")
}

// DefaultFactsDir is where test facts are written, relative to the root.
const DefaultFactsDir = DirName + "/facts"

// DefaultStoreDir is where the folder and sqlite backends keep data,
// relative to the root.
const DefaultStoreDir = DirName + "/store"

// Resolve joins a configured path to root unless it is absolute.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

// CanonicalizePath converts an absolute path to a root-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to the root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// IsWithinRoot checks if a path is within the project root
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}
