package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/services/dataset"
	"DemandCast/internal/services/forecast"
	"DemandCast/pkg/logger"

	"github.com/google/uuid"
)

// TrainerState is the step a training run is currently in.
type TrainerState int32

const (
	StateIdle TrainerState = iota
	StateLoading
	StateValidating
	StateSplitting
	StateFitting
	StateEvaluating
	StatePersisting
	StateDone
	StateFailed
)

func (s TrainerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateValidating:
		return "validating"
	case StateSplitting:
		return "splitting"
	case StateFitting:
		return "fitting"
	case StateEvaluating:
		return "evaluating"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ModelRepository is the persistence the trainer and predictor need.
type ModelRepository interface {
	Save(ctx context.Context, tm *forecast.TrainedModel) error
	Load(ctx context.Context) (*forecast.TrainedModel, error)
}

// Trainer turns a CSV dataset into a persisted TrainedModel. Runs are
// serialised; a concurrent call fails fast with ErrTrainingInProgress.
type Trainer struct {
	store   ModelRepository
	params  models.Hyperparams
	logger  *logger.Logger
	metrics drepo.Metrics

	mu    sync.Mutex
	state atomic.Int32
	now   func() time.Time
	newID func() string
}

// NewTrainer validates the hyperparameters once so a bad config fails at boot.
func NewTrainer(store ModelRepository, params models.Hyperparams, l *logger.Logger, m drepo.Metrics) (*Trainer, error) {
	if err := forecast.ValidateHyperparams(params); err != nil {
		return nil, err
	}
	return &Trainer{
		store:   store,
		params:  params,
		logger:  l,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// State reports the step of the current or most recent run.
func (t *Trainer) State() TrainerState {
	return TrainerState(t.state.Load())
}

// Params returns the hyperparameters every run uses.
func (t *Trainer) Params() models.Hyperparams { return t.params }

func (t *Trainer) enter(s TrainerState, runID string) {
	prev := TrainerState(t.state.Swap(int32(s)))
	t.logger.Debug("trainer transition",
		logger.String("run_id", runID),
		logger.String("from", prev.String()),
		logger.String("to", s.String()))
}

// Train runs every step against dataPath and returns the persisted model.
// A failed run leaves whatever was persisted before untouched.
func (t *Trainer) Train(ctx context.Context, dataPath string, testFraction float64) (*forecast.TrainedModel, error) {
	if !t.mu.TryLock() {
		return nil, models.ErrTrainingInProgress
	}
	defer t.mu.Unlock()

	runID := t.newID()
	start := time.Now()
	t.logger.Info("training started",
		logger.String("run_id", runID),
		logger.String("data_path", dataPath),
		logger.Float64("test_size", testFraction))

	tm, err := t.run(ctx, runID, dataPath, testFraction)
	elapsed := time.Since(start)
	if err != nil {
		t.enter(StateFailed, runID)
		t.metrics.RecordTraining("failure", elapsed.Seconds())
		t.logger.Error("training failed",
			logger.String("run_id", runID),
			logger.Error(err),
			logger.Duration("elapsed_ms", elapsed))
		return nil, err
	}

	t.enter(StateDone, runID)
	t.metrics.RecordTraining("success", elapsed.Seconds())
	t.metrics.RecordModelQuality(tm.Metrics.R2Score, tm.Metrics.BaselineR2)
	t.logger.Info("training finished",
		logger.String("run_id", runID),
		logger.Float64("r2", tm.Metrics.R2Score),
		logger.Float64("mae", tm.Metrics.MAE),
		logger.Float64("rmse", tm.Metrics.RMSE),
		logger.Float64("baseline_r2", tm.Metrics.BaselineR2),
		logger.Int("train_samples", tm.Metrics.TrainSamples),
		logger.Int("test_samples", tm.Metrics.TestSamples),
		logger.Duration("elapsed_ms", elapsed))
	return tm, nil
}

func (t *Trainer) run(ctx context.Context, runID, dataPath string, testFraction float64) (*forecast.TrainedModel, error) {
	t.enter(StateLoading, runID)
	table, err := dataset.ReadCSVFile(dataPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.enter(StateValidating, runID)
	ds, err := table.Dataset()
	if err != nil {
		return nil, err
	}

	t.enter(StateSplitting, runID)
	trainIdx, testIdx, err := forecast.TrainTestSplit(ds.Len(), testFraction, t.params.Seed)
	if err != nil {
		return nil, err
	}
	if len(testIdx) < 2 {
		return nil, fmt.Errorf("test split has %d rows: %w", len(testIdx), models.ErrInsufficientData)
	}
	train, test := ds.Subset(trainIdx), ds.Subset(testIdx)

	t.enter(StateFitting, runID)
	scaler, err := forecast.FitScaler(train.Features)
	if err != nil {
		return nil, err
	}
	xTrain := scaler.TransformAll(train.Features)
	model, err := forecast.FitGradientBoosting(xTrain, train.Target, t.params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	baseline, berr := forecast.FitLinearBaseline(xTrain, train.Target)

	t.enter(StateEvaluating, runID)
	xTest := scaler.TransformAll(test.Features)
	preds := model.PredictAll(xTest)
	metrics := models.Metrics{
		R2Score:      forecast.R2(test.Target, preds),
		MAE:          forecast.MAE(test.Target, preds),
		RMSE:         forecast.RMSE(test.Target, preds),
		TrainSamples: train.Len(),
		TestSamples:  test.Len(),
	}
	if berr == nil {
		metrics.BaselineR2, berr = baseline.Score(xTest, test.Target)
	}
	if berr != nil {
		metrics.BaselineR2 = 0
		t.logger.Warn("linear baseline unavailable",
			logger.String("run_id", runID),
			logger.Error(berr))
	} else {
		t.logger.Debug("linear baseline fitted",
			logger.String("run_id", runID),
			logger.String("formula", baseline.Formula()))
	}

	tm, err := forecast.NewTrainedModel(scaler, model, runID, t.now().UTC(), metrics)
	if err != nil {
		return nil, err
	}

	t.enter(StatePersisting, runID)
	if err := t.store.Save(ctx, tm); err != nil {
		return nil, fmt.Errorf("persist model: %w", err)
	}
	return tm, nil
}
