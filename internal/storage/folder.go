package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// folderBackend keeps records as files under one directory:
//
//	current                    version pointer
//	analysis-<id>.tia          analyses
//	executions/<ref>.zst       raw coverage blobs
type folderBackend struct {
	dir string
}

func openFolder(_ context.Context, opts Options) (Backend, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("folder backend needs a directory")
	}
	if err := os.MkdirAll(filepath.Join(opts.Dir, "executions"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &folderBackend{dir: opts.Dir}, nil
}

// layout returns the directory, file prefix and suffix of kind.
func (f *folderBackend) layout(kind Kind) (dir, prefix, suffix string) {
	switch kind {
	case KindAnalysis:
		return f.dir, "analysis-", ".tia"
	case KindExecution:
		return filepath.Join(f.dir, "executions"), "", ".zst"
	default:
		return f.dir, "", ""
	}
}

func (f *folderBackend) path(kind Kind, key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid %s key %q", kind, key)
	}
	dir, prefix, suffix := f.layout(kind)
	return filepath.Join(dir, prefix+key+suffix), nil
}

func (f *folderBackend) Get(_ context.Context, kind Kind, key string) ([]byte, error) {
	path, err := f.path(kind, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put writes through a temp file and a rename so readers never observe a
// partial record.
func (f *folderBackend) Put(_ context.Context, kind Kind, key string, data []byte) error {
	path, err := f.path(kind, key)
	if err != nil {
		return err
	}
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

func (f *folderBackend) Delete(_ context.Context, kind Kind, key string) error {
	path, err := f.path(kind, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return nil
}

func (f *folderBackend) List(_ context.Context, kind Kind) ([]string, error) {
	if kind == KindPointer {
		return []string{pointerKey}, nil
	}
	dir, prefix, suffix := f.layout(kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix))
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *folderBackend) Close() error { return nil }
