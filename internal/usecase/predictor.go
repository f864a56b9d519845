package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/services/features"
	"DemandCast/internal/services/forecast"
	"DemandCast/pkg/logger"
)

// Predictor serves predictions from the active model. The model is swapped
// with a single pointer store, so readers never see a half-installed pair.
type Predictor struct {
	active  atomic.Pointer[forecast.TrainedModel]
	logger  *logger.Logger
	metrics drepo.Metrics
}

func NewPredictor(l *logger.Logger, m drepo.Metrics) *Predictor {
	return &Predictor{logger: l, metrics: m}
}

// Publish makes tm the active model.
func (p *Predictor) Publish(tm *forecast.TrainedModel) {
	p.active.Store(tm)
	p.metrics.RecordModelLoaded(tm != nil)
}

// Active returns the current model snapshot or nil.
func (p *Predictor) Active() *forecast.TrainedModel { return p.active.Load() }

func (p *Predictor) IsLoaded() bool { return p.active.Load() != nil }

// LoadFrom installs the persisted model. On ErrNotFound or
// ErrCorruptArtifact the predictor stays unloaded and the error is returned.
func (p *Predictor) LoadFrom(ctx context.Context, repo ModelRepository) error {
	tm, err := repo.Load(ctx)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			p.logger.Info("no persisted model, train one first", logger.Error(err))
		case errors.Is(err, models.ErrCorruptArtifact):
			p.logger.Error("persisted model rejected", logger.Error(err))
		default:
			p.logger.Error("load model", logger.Error(err))
		}
		p.metrics.RecordModelLoaded(p.IsLoaded())
		return err
	}
	p.Publish(tm)
	p.logger.Info("model loaded",
		logger.String("run_id", tm.RunID),
		logger.Int("n_estimators", len(tm.Model.Trees)),
		logger.Float64("r2", tm.Metrics.R2Score))
	return nil
}

// Predict encodes features and scores them against the active model.
func (p *Predictor) Predict(features map[string]any) (models.Prediction, error) {
	tm := p.active.Load()
	if tm == nil {
		p.metrics.RecordPrediction("not_loaded", 0)
		return models.Prediction{}, models.ErrModelNotLoaded
	}
	return p.predictWith(tm, features)
}

// PredictBatch scores every element against one model snapshot. The first
// schema violation fails the whole batch; the index is in the error.
func (p *Predictor) PredictBatch(batch []map[string]any) ([]models.Prediction, error) {
	tm := p.active.Load()
	if tm == nil {
		p.metrics.RecordPrediction("not_loaded", 0)
		return nil, models.ErrModelNotLoaded
	}
	vectors := make([]models.FeatureVector, len(batch))
	for i, in := range batch {
		v, err := features.Encode(in)
		if err != nil {
			p.metrics.RecordPrediction("invalid", 0)
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		vectors[i] = v
	}
	out := make([]models.Prediction, len(vectors))
	for i, v := range vectors {
		start := time.Now()
		out[i] = tm.Predict(v)
		p.metrics.RecordPrediction("ok", time.Since(start).Seconds())
	}
	return out, nil
}

func (p *Predictor) predictWith(tm *forecast.TrainedModel, in map[string]any) (models.Prediction, error) {
	start := time.Now()
	v, err := features.Encode(in)
	if err != nil {
		p.metrics.RecordPrediction("invalid", time.Since(start).Seconds())
		return models.Prediction{}, err
	}
	pred := tm.Predict(v)
	p.metrics.RecordPrediction("ok", time.Since(start).Seconds())
	return pred, nil
}

// ModelInfo describes the active model, or reports that none is loaded.
func (p *Predictor) ModelInfo() models.ModelInfo {
	tm := p.active.Load()
	if tm == nil {
		return models.ModelInfo{Loaded: false, Message: "No model loaded"}
	}
	return tm.Info()
}
