// Package engine wires configuration, storage and the collector into the
// three operations a build performs: record facts, finish (merge and
// persist) and predict.
package engine

import (
	"context"
	"fmt"

	"tia/internal/analysis"
	"tia/internal/collector"
	"tia/internal/config"
	tiaerrors "tia/internal/errors"
	"tia/internal/logging"
	"tia/internal/paths"
	"tia/internal/storage"
)

// Engine is constructed once per invocation and owns its store.
type Engine struct {
	root      string
	cfg       *config.Config
	store     *storage.Store
	collector collector.Collector
	facts     *collector.FactWriter
	logger    *logging.Logger
}

// Options configures New. Store and Collector are built from Config when nil.
type Options struct {
	Root      string
	Config    *config.Config
	Logger    *logging.Logger
	Store     *storage.Store
	Collector collector.Collector
}

// New validates the configuration and opens the configured store.
func New(ctx context.Context, opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, tiaerrors.New(tiaerrors.ConfigInvalid, "invalid configuration", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	e := &Engine{
		root:   opts.Root,
		cfg:    cfg,
		logger: logger,
		facts:  collector.NewFactWriter(paths.Resolve(opts.Root, cfg.Collector.FactsDir)),
	}

	e.collector = opts.Collector
	if e.collector == nil {
		c, err := newFolderCollector(opts.Root, cfg, logger)
		if err != nil {
			return nil, err
		}
		e.collector = c
	}

	e.store = opts.Store
	if e.store == nil {
		store, err := storage.Open(ctx, cfg.Storage.Backend, storageOptions(opts.Root, cfg, logger))
		if err != nil {
			return nil, err
		}
		e.store = store
	}
	return e, nil
}

func newFolderCollector(root string, cfg *config.Config, logger *logging.Logger) (*collector.Folder, error) {
	selector, err := collector.LookupSelector(cfg.Collector.Selector)
	if err != nil {
		return nil, tiaerrors.New(tiaerrors.ConfigInvalid, "collector.selector", err)
	}
	return collector.NewFolder(collector.FolderOptions{
		Root:          root,
		OutputFolders: cfg.Collector.OutputFolders,
		Selector:      selector,
		Include:       cfg.Collector.Include,
		Exclude:       cfg.Collector.Exclude,
		FactsDir:      cfg.Collector.FactsDir,
		Logger:        logger.With(logging.Fields{"component": "collector"}),
	})
}

func storageOptions(root string, cfg *config.Config, logger *logging.Logger) storage.Options {
	s := cfg.Storage
	return storage.Options{
		Dir:       paths.Resolve(root, s.Dir),
		DSN:       s.DSN,
		CacheSize: s.CacheSize,
		Logger:    logger.With(logging.Fields{"component": "storage", "backend": s.Backend}),
		S3: storage.S3Options{
			Endpoint:  s.S3.Endpoint,
			Region:    s.S3.Region,
			AccessKey: s.S3.AccessKey,
			SecretKey: s.S3.SecretKey,
			Bucket:    s.S3.Bucket,
			Prefix:    s.S3.Prefix,
			UseSSL:    s.S3.UseSSL,
		},
	}
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Record writes one test fact. Each test writes its own file, so test
// workers may record concurrently.
func (e *Engine) Record(fact collector.TestFact) error {
	tags, err := analysis.ParseTagSet(fact.Tags)
	if err == nil {
		err = tags.Validate()
	}
	if err != nil {
		return tiaerrors.New(tiaerrors.InvariantViolation, fmt.Sprintf("test %s", fact.TestName), err)
	}
	if err := e.facts.Write(fact); err != nil {
		return tiaerrors.New(tiaerrors.CollectorFailed, "record test fact", err)
	}
	return nil
}
