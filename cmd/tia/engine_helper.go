package main

import (
	"context"
	"os"
	"path/filepath"

	"tia/internal/config"
	"tia/internal/engine"
	tiaerrors "tia/internal/errors"
	"tia/internal/logging"
)

// project is the root, configuration and logger one command runs against.
type project struct {
	root   string
	cfg    *config.Config
	logger *logging.Logger
}

// loadProject resolves the project root and loads its configuration.
func loadProject() (*project, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, tiaerrors.New(tiaerrors.InternalError, "Failed to resolve project root", err)
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, tiaerrors.New(tiaerrors.ConfigInvalid, "Failed to load configuration", err)
	}
	return &project{root: root, cfg: cfg, logger: newLogger(cfg)}, nil
}

// openEngine validates the configuration and opens the engine. The caller
// closes it.
func (p *project) openEngine(ctx context.Context) (*engine.Engine, error) {
	return engine.New(ctx, engine.Options{
		Root:   p.root,
		Config: p.cfg,
		Logger: p.logger,
	})
}

// projectRoot returns --root as an absolute path, or the working directory.
func projectRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	return os.Getwd()
}

// newLogger builds the logger from the config. --log-level wins over the
// configured level.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(level),
	})
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}
