package engine

import (
	"context"

	"tia/internal/predict"
)

// predictor loads the current analysis, scans the current units and returns
// a predictor configured from the prediction settings.
func (e *Engine) predictor(ctx context.Context) (*predict.Predictor, error) {
	tia, _ := e.Load(ctx)

	var state predict.CurrentUnits
	if tia.Available() {
		units, err := e.collector.CurrentUnits(ctx)
		if err != nil {
			return nil, err
		}
		state = predict.NewCurrentUnits(units)
	}

	modifiers := make([]predict.Modifier, 0, len(e.cfg.Prediction.Modifiers))
	for _, m := range e.cfg.Prediction.Modifiers {
		modifier, err := predict.NewModifier(m.Name, m.Values)
		if err != nil {
			return nil, err
		}
		modifiers = append(modifiers, modifier)
	}

	return predict.NewPredictor(tia, state, e.store, predict.Options{
		RequireExecutionData: e.cfg.Prediction.RequireExecutionData,
	}, modifiers...), nil
}

// PredictResult is the outcome of one PredictAll.
type PredictResult struct {
	// AnalysisID is empty when no analysis was available.
	AnalysisID  string
	Predictions []predict.Prediction
	Stats       predict.StatsSnapshot
}

// PredictAll decides every named test with one predictor. meta applies to
// every test.
func (e *Engine) PredictAll(ctx context.Context, names []string, meta predict.Metadata) (PredictResult, error) {
	p, err := e.predictor(ctx)
	if err != nil {
		return PredictResult{}, err
	}

	result := PredictResult{
		AnalysisID:  p.AnalysisID(),
		Predictions: make([]predict.Prediction, 0, len(names)),
	}
	for _, name := range names {
		result.Predictions = append(result.Predictions, p.Predict(ctx, name, meta))
	}
	result.Stats = p.Stats().Snapshot()

	e.logger.Debug("Predicted tests", map[string]interface{}{
		"total":    result.Stats.Total,
		"skipped":  result.Stats.Skipped,
		"executed": result.Stats.Executed,
	})
	return result, nil
}

