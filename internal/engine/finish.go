package engine

import (
	"context"

	"tia/internal/analysis"
	"tia/internal/collector"
	tiaerrors "tia/internal/errors"
	"tia/internal/storage"
)

// FinishResult summarizes one Finish.
type FinishResult struct {
	PreviousID string              `json:"previousId,omitempty" yaml:"previousId,omitempty" toml:"previousId,omitempty"`
	ID         string              `json:"id" yaml:"id" toml:"id"`
	Units      int                 `json:"units" yaml:"units" toml:"units"`
	Recorded   int                 `json:"recorded" yaml:"recorded" toml:"recorded"`
	Tests      int                 `json:"tests" yaml:"tests" toml:"tests"`
	Ignored    []string            `json:"ignored,omitempty" yaml:"ignored,omitempty" toml:"ignored,omitempty"`
	Pruned     storage.PruneResult `json:"pruned" yaml:"pruned" toml:"pruned"`
}

// factClearer is implemented by collectors whose facts are consumed.
type factClearer interface {
	ClearFacts() error
}

// Finish turns the facts of this build into an analysis, merges it over the
// baseline and persists the result: body first, then the version pointer,
// then pruning. A missing, malformed or mismatched baseline is replaced; a
// baseline that storage failed to read aborts Finish so nothing is pruned.
func (e *Engine) Finish(ctx context.Context) (result FinishResult, err error) {
	defer func() {
		// Merge reports broken invariants by panicking with a TiaError.
		if r := recover(); r != nil {
			te, ok := r.(*tiaerrors.TiaError)
			if !ok {
				panic(r)
			}
			err = te
		}
	}()

	baseline, status := e.Load(ctx)
	if tiaerrors.Is(status.Err, tiaerrors.StorageUnavailable) {
		return result, status.Err
	}
	result.PreviousID = status.ID

	units, err := e.collector.CurrentUnits(ctx)
	if err != nil {
		return result, err
	}
	facts, err := e.collector.CurrentTestFacts(ctx)
	if err != nil {
		return result, err
	}

	incoming, ignored, err := e.build(ctx, units, facts)
	if err != nil {
		return result, err
	}
	result.Units = incoming.Registry().Len()
	result.Recorded = len(incoming.Tests())
	result.Ignored = ignored

	merged := analysis.Merge(baseline, incoming)
	result.ID = merged.ID()
	result.Tests = len(merged.Tests())

	if _, err := e.store.SaveAnalysis(ctx, merged); err != nil {
		return result, err
	}
	if err := e.store.WritePointer(ctx, merged.ID()); err != nil {
		return result, err
	}
	if result.Pruned, err = e.store.Prune(ctx, merged); err != nil {
		return result, err
	}

	if c, ok := e.collector.(factClearer); ok {
		if err := c.ClearFacts(); err != nil {
			e.logger.Warn("Failed to clear consumed test facts", map[string]interface{}{"error": err.Error()})
		}
	}

	e.logger.Info("Analysis updated", map[string]interface{}{
		"id":       result.ID,
		"previous": result.PreviousID,
		"recorded": result.Recorded,
		"tests":    result.Tests,
		"units":    result.Units,
	})
	return result, nil
}

// build converts facts into an analysis over the scanned units. Facts for
// tests whose unit was not scanned are skipped and returned by name. A
// covered name resolves to every unit of that name.
func (e *Engine) build(ctx context.Context, units []analysis.CompiledUnit, facts []collector.TestFact) (*analysis.TestImpactAnalysis, []string, error) {
	registry := analysis.NewRegistry(units)

	var tests []analysis.AnalyzedTest
	var ignored []string
	for _, fact := range facts {
		testIDs := registry.IDsByName(fact.TestName)
		if len(testIDs) == 0 {
			e.logger.Warn("Test unit not found among compiled units, ignoring its fact", map[string]interface{}{
				"test": fact.TestName,
			})
			ignored = append(ignored, fact.TestName)
			continue
		}

		tags, err := analysis.ParseTagSet(fact.Tags)
		if err == nil {
			err = tags.Validate()
		}
		if err != nil {
			e.logger.Warn("Invalid tags in test fact, ignoring it", map[string]interface{}{
				"test":  fact.TestName,
				"error": err.Error(),
			})
			ignored = append(ignored, fact.TestName)
			continue
		}

		var covered []int
		for _, name := range fact.CoveredUnits {
			ids := registry.IDsByName(name)
			if len(ids) == 0 {
				e.logger.Debug("Covered unit not among compiled units", map[string]interface{}{
					"test": fact.TestName,
					"unit": name,
				})
				continue
			}
			covered = append(covered, ids...)
		}

		ref := ""
		if e.cfg.Prediction.CaptureExecutionData && len(fact.RawCoverage) > 0 {
			if ref, err = e.store.SaveRawCoverage(ctx, fact.RawCoverage); err != nil {
				return nil, nil, err
			}
		}

		for _, id := range testIDs {
			test, err := analysis.NewAnalyzedTest(id, tags, covered, ref)
			if err != nil {
				return nil, nil, tiaerrors.New(tiaerrors.InvariantViolation, "test "+fact.TestName, err)
			}
			tests = append(tests, test)
		}
	}

	tia, err := analysis.New(registry, tests)
	if err != nil {
		return nil, nil, err
	}
	return tia, ignored, nil
}
