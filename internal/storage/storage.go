// Package storage persists analyses, raw coverage blobs and the version
// pointer that names the current analysis.
//
// A Store speaks the domain (analyses, execution refs) and delegates bytes
// to a Backend. Backends are registered by name in Backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tiaerrors "tia/internal/errors"
	"tia/internal/logging"
)

// ErrNotFound is returned by backends when a key does not exist.
var ErrNotFound = errors.New("not found")

// Kind partitions backend keys.
type Kind string

const (
	KindAnalysis  Kind = "analysis"
	KindExecution Kind = "execution"
	KindPointer   Kind = "pointer"
)

// pointerKey is the single key under KindPointer.
const pointerKey = "current"

// Backend stores opaque bytes by kind and key.
type Backend interface {
	Get(ctx context.Context, kind Kind, key string) ([]byte, error)
	Put(ctx context.Context, kind Kind, key string, data []byte) error
	Delete(ctx context.Context, kind Kind, key string) error
	List(ctx context.Context, kind Kind) ([]string, error)
	Close() error
}

// Options configures every backend. Each backend reads the fields it needs.
type Options struct {
	// Dir is the storage directory for the folder and sqlite backends.
	Dir string
	// DSN is the postgres connection string.
	DSN string
	S3  S3Options
	// CacheSize bounds the decoded analyses kept in memory. 0 disables it.
	CacheSize int
	Logger    *logging.Logger
}

// S3Options configures the s3 backend.
type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// BackendFactory opens a backend.
type BackendFactory func(ctx context.Context, opts Options) (Backend, error)

// Backends maps storage.backend configuration values to factories.
var Backends = map[string]BackendFactory{
	"folder":   openFolder,
	"sqlite":   openSQLite,
	"postgres": openPostgres,
	"s3":       openS3,
}

// BackendNames returns the registered backend names, sorted.
func BackendNames() []string {
	names := make([]string, 0, len(Backends))
	for name := range Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the named backend and wraps it in a Store.
func Open(ctx context.Context, name string, opts Options) (*Store, error) {
	factory, ok := Backends[name]
	if !ok {
		return nil, tiaerrors.Newf(tiaerrors.ConfigInvalid, "unknown storage backend %q (available: %s)",
			name, strings.Join(BackendNames(), ", "))
	}
	backend, err := factory(ctx, opts)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("open %s backend", name), err)
	}
	return NewStore(backend, opts)
}

// unavailable wraps a backend failure. ErrNotFound stays reachable through
// errors.Is.
func unavailable(op string, err error) error {
	return tiaerrors.New(tiaerrors.StorageUnavailable, op, err)
}
