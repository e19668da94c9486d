package predict

import (
	"context"
	"time"

	"tia/internal/analysis"
)

// ExecutionReader retrieves stored raw coverage by reference.
type ExecutionReader interface {
	FindRawCoverage(ctx context.Context, ref string) ([]byte, error)
}

// Predictor evaluates the rule chain against one loaded analysis.
type Predictor struct {
	analysis   *analysis.TestImpactAnalysis
	state      UnitState
	executions ExecutionReader
	opts       Options
	modifiers  []Modifier
	stats      *Stats
}

// NewPredictor creates a predictor. tia may be analysis.NotFound or nil, in
// which case every test executes. executions may be nil unless
// opts.RequireExecutionData is set, and then every read counts as failed.
func NewPredictor(tia *analysis.TestImpactAnalysis, state UnitState, executions ExecutionReader, opts Options, modifiers ...Modifier) *Predictor {
	if tia == nil {
		tia = analysis.NotFound
	}
	return &Predictor{
		analysis:   tia,
		state:      state,
		executions: executions,
		opts:       opts,
		modifiers:  modifiers,
		stats:      NewStats(),
	}
}

// Stats returns the counters of this predictor.
func (p *Predictor) Stats() *Stats {
	return p.stats
}

// AnalysisID returns the id of the analysis decisions are based on, or ""
// when there is none.
func (p *Predictor) AnalysisID() string {
	if !p.analysis.Available() {
		return ""
	}
	return p.analysis.ID()
}

// Predict decides whether testName can be skipped.
func (p *Predictor) Predict(ctx context.Context, testName string, meta Metadata) Prediction {
	start := time.Now()
	prediction := p.base(ctx, testName)
	if prediction.Decision == Skip {
		prediction = p.modify(testName, prediction, meta)
	}
	prediction.Test = testName
	p.stats.record(prediction, time.Since(start))
	return prediction
}

func (p *Predictor) base(ctx context.Context, testName string) Prediction {
	if !p.analysis.Available() {
		return execute(AnalysisNotFound, "")
	}

	tests := p.analysis.TestsByName(testName)
	if len(tests) == 0 {
		return execute(NoDataForTest, "")
	}

	// A name under several output folders has one entry per folder. All must
	// allow the skip.
	for _, test := range tests {
		if prediction := p.evaluate(ctx, test); prediction.Decision == Execute {
			return prediction
		}
	}
	return Prediction{Decision: Skip, Reason: NoChange}
}

func (p *Predictor) evaluate(ctx context.Context, test analysis.AnalyzedTest) Prediction {
	registry := p.analysis.Registry()
	own := registry.UnitByID(test.TestUnitID)

	if reason, changed := p.checkUnit(own, TestUnitNotFound, ChangeInTest); changed {
		return execute(reason, own.Name)
	}

	if test.Tags.Has(analysis.AlwaysExecute) {
		return execute(TaggedAlwaysExecute, "")
	}

	if name, ok := p.coveredTestTagged(test, analysis.AlwaysExecute); ok {
		return execute(CoveredTestTaggedAlwaysExecute, name)
	}

	if name, ok := p.coveredTestTagged(test, analysis.Failed); ok {
		return execute(CoveredTestFailedPreviously, name)
	}

	if test.Tags.Has(analysis.Failed) {
		return execute(TestFailedPreviously, "")
	}

	for _, id := range test.CoveredUnitIDs {
		unit := registry.UnitByID(id)
		if reason, changed := p.checkUnit(unit, CoveredUnitNotFound, ChangeInCoveredUnit); changed {
			return execute(reason, unit.Name)
		}
	}

	if p.opts.RequireExecutionData {
		if !test.HasExecutionRef() {
			return execute(MissingExecutionReference, "")
		}
		if p.executions == nil {
			return execute(UnableToReadExecutionData, test.ExecutionRef)
		}
		if _, err := p.executions.FindRawCoverage(ctx, test.ExecutionRef); err != nil {
			return execute(UnableToReadExecutionData, test.ExecutionRef)
		}
	}

	return Prediction{Decision: Skip, Reason: NoChange}
}

// checkUnit compares the recorded hash of unit with its current hash.
func (p *Predictor) checkUnit(unit analysis.CompiledUnit, missing, changed Reason) (Reason, bool) {
	current, found := p.state.CurrentHash(unit)
	switch {
	case !found:
		return missing, true
	case current != unit.Hash:
		return changed, true
	default:
		return "", false
	}
}

// coveredTestTagged returns the name of the first covered unit, in ascending
// id order, that is itself an analyzed test carrying tag. The test's own
// unit is not considered.
func (p *Predictor) coveredTestTagged(test analysis.AnalyzedTest, tag analysis.Tag) (string, bool) {
	for _, id := range test.CoveredUnitIDs {
		if id == test.TestUnitID {
			continue
		}
		covered, ok := p.analysis.TestByUnitID(id)
		if ok && covered.Tags.Has(tag) {
			return p.analysis.TestName(covered), true
		}
	}
	return "", false
}

// modify lets modifiers force a skipped test to execute. Modifiers never see
// an EXECUTE decision, so they cannot downgrade one.
func (p *Predictor) modify(testName string, prediction Prediction, meta Metadata) Prediction {
	for _, m := range p.modifiers {
		if force, detail := m.Modify(testName, meta); force {
			return execute(OverrideByModifier, detail)
		}
	}
	return prediction
}

func execute(reason Reason, detail string) Prediction {
	return Prediction{Decision: Execute, Reason: reason, Detail: detail}
}
