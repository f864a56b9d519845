package forecast

import (
	"fmt"
	"math"
	"time"

	"DemandCast/internal/domain/models"
)

// Bounds of the confidence heuristic attached to every prediction.
const (
	MinConfidence = 0.70
	MaxConfidence = 0.95
)

// TrainedModel pairs a fitted scaler with the ensemble trained on its
// output. It is never mutated after construction; retraining builds a new one.
type TrainedModel struct {
	Scaler    *Scaler
	Model     *GradientBoosting
	RunID     string
	TrainedAt time.Time
	Metrics   models.Metrics
}

// NewTrainedModel checks that scaler and model agree on the feature schema.
func NewTrainedModel(s *Scaler, m *GradientBoosting, runID string, trainedAt time.Time, metrics models.Metrics) (*TrainedModel, error) {
	tm := &TrainedModel{
		Scaler:    s,
		Model:     m,
		RunID:     runID,
		TrainedAt: trainedAt,
		Metrics:   metrics,
	}
	if err := tm.Validate(); err != nil {
		return nil, err
	}
	return tm, nil
}

// Validate reports whether the pair is internally consistent.
func (t *TrainedModel) Validate() error {
	if err := t.Scaler.validate(models.NumFeatures); err != nil {
		return fmt.Errorf("invalid trained model: %w", err)
	}
	if err := t.Model.validate(models.NumFeatures); err != nil {
		return fmt.Errorf("invalid trained model: %w", err)
	}
	return nil
}

// Predict scales v, runs the ensemble and attaches the confidence heuristic.
// The value is clamped at zero since demand cannot be negative.
//
// The confidence is the ensemble's R² on the single predicted point scored
// against itself, clamped to [MinConfidence, MaxConfidence]. R² is undefined
// for one sample, so every prediction reports MinConfidence. It is kept as a
// compatibility signal and is not a calibrated probability.
func (t *TrainedModel) Predict(v models.FeatureVector) models.Prediction {
	x := t.Scaler.Transform(v).Slice()
	raw := t.Model.Predict(x)
	score := t.Model.Score([][]float64{x}, []float64{raw})
	return models.Prediction{
		Value:      math.Max(0, raw),
		Confidence: ClampConfidence(score),
	}
}

// ClampConfidence bounds a score to the confidence range; NaN maps to the floor.
func ClampConfidence(score float64) float64 {
	if math.IsNaN(score) {
		return MinConfidence
	}
	return math.Min(MaxConfidence, math.Max(MinConfidence, score))
}

// Info describes the model for reporting.
func (t *TrainedModel) Info() models.ModelInfo {
	metrics := t.Metrics
	return models.ModelInfo{
		Loaded:       true,
		ModelType:    models.ModelType,
		Features:     models.FeatureNames(),
		NEstimators:  t.Model.Params.NEstimators,
		LearningRate: t.Model.Params.LearningRate,
		MaxDepth:     t.Model.Params.MaxDepth,
		RunID:        t.RunID,
		TrainedAt:    t.TrainedAt,
		Metrics:      &metrics,
	}
}
