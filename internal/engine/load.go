package engine

import (
	"context"

	"tia/internal/analysis"
	tiaerrors "tia/internal/errors"
)

// LoadStatus explains what Load found.
type LoadStatus struct {
	Pointer  string `json:"pointer,omitempty" yaml:"pointer,omitempty" toml:"pointer,omitempty"`
	ID       string `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Verified bool   `json:"verified" yaml:"verified" toml:"verified"`
	Problem  string `json:"problem,omitempty" yaml:"problem,omitempty" toml:"problem,omitempty"`
	// Err is the storage error behind Problem, if any.
	Err error `json:"-" yaml:"-" toml:"-"`
}

// Load returns the analysis named by the version pointer. Anything short of
// a readable record whose derived id equals the pointer yields
// analysis.NotFound; the reason is logged and reported in the status.
func (e *Engine) Load(ctx context.Context) (*analysis.TestImpactAnalysis, LoadStatus) {
	var status LoadStatus

	pointer, err := e.store.ReadPointer(ctx)
	if err != nil {
		status.Problem = err.Error()
		status.Err = err
		e.logger.Warn("Version pointer unreadable, treating analysis as not found", map[string]interface{}{
			"error": err.Error(),
		})
		return analysis.NotFound, status
	}
	status.Pointer = pointer
	if pointer == "" {
		status.Problem = "no analysis recorded yet"
		e.logger.Debug("No version pointer", nil)
		return analysis.NotFound, status
	}

	tia, err := e.store.FindAnalysis(ctx, pointer)
	if err != nil {
		status.Problem = err.Error()
		status.Err = err
		fields := map[string]interface{}{"id": pointer, "error": err.Error()}
		if tiaerrors.Is(err, tiaerrors.AnalysisNotFound) {
			e.logger.Warn("Version pointer names a missing analysis", fields)
		} else {
			e.logger.Warn("Analysis unreadable, treating as not found", fields)
		}
		return analysis.NotFound, status
	}

	status.ID = tia.ID()
	if tia.ID() != pointer {
		status.Problem = "stored analysis does not match its id"
		e.logger.Warn("Analysis id mismatch, treating as not found", map[string]interface{}{
			"pointer": pointer,
			"derived": tia.ID(),
		})
		return analysis.NotFound, status
	}

	status.Verified = true
	return tia, status
}
