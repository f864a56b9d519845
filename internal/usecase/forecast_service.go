package usecase

import (
	"context"
	"errors"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/domain/service"
	"DemandCast/internal/services/dataset"
	"DemandCast/internal/services/features"
	"DemandCast/pkg/cache"
	"DemandCast/pkg/logger"
)

const (
	trainLockKey  = "lock:train"
	trainLockTTL  = 30 * time.Minute
	statsCacheKey = "stats"
)

// ForecastConfig holds the service defaults.
type ForecastConfig struct {
	DataPath string
	TestSize float64
	StatsTTL time.Duration
}

// ForecastService ties training, serving, the audit trail and the statistics
// cache together behind service.Forecaster.
type ForecastService struct {
	cfg       ForecastConfig
	trainer   *Trainer
	predictor *Predictor
	store     ModelRepository
	recorder  *PredictionRecorder
	events    drepo.EventPublisher
	cache     cache.Service
	logger    *logger.Logger
	metrics   drepo.Metrics
}

// NewForecastService wires the service. recorder and events may be nil.
func NewForecastService(
	cfg ForecastConfig,
	trainer *Trainer,
	predictor *Predictor,
	store ModelRepository,
	recorder *PredictionRecorder,
	events drepo.EventPublisher,
	c cache.Service,
	l *logger.Logger,
	m drepo.Metrics,
) *ForecastService {
	if cfg.TestSize == 0 {
		cfg.TestSize = 0.2
	}
	return &ForecastService{
		cfg:       cfg,
		trainer:   trainer,
		predictor: predictor,
		store:     store,
		recorder:  recorder,
		events:    events,
		cache:     c,
		logger:    l,
		metrics:   m,
	}
}

// Bootstrap loads the persisted model if there is one. A missing or corrupt
// artifact leaves the service running without a model.
func (s *ForecastService) Bootstrap(ctx context.Context) error {
	err := s.predictor.LoadFrom(ctx, s.store)
	if err == nil || errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrCorruptArtifact) {
		return nil
	}
	return err
}

func (s *ForecastService) Predict(ctx context.Context, in map[string]any) (models.Prediction, error) {
	pred, err := s.predictor.Predict(in)
	if err != nil {
		return pred, err
	}
	s.audit(in, pred)
	return pred, nil
}

func (s *ForecastService) PredictBatch(ctx context.Context, batch []map[string]any) ([]models.Prediction, error) {
	preds, err := s.predictor.PredictBatch(batch)
	if err != nil {
		return nil, err
	}
	for i := range preds {
		s.audit(batch[i], preds[i])
	}
	return preds, nil
}

func (s *ForecastService) audit(in map[string]any, pred models.Prediction) {
	if s.recorder == nil || !s.recorder.Enabled() {
		return
	}
	tm := s.predictor.Active()
	if tm == nil {
		return
	}
	v, err := features.Encode(in)
	if err != nil {
		return
	}
	s.recorder.Record(models.PredictionRecord{
		Timestamp:  time.Now().UTC(),
		RunID:      tm.RunID,
		Features:   v.Map(),
		Value:      pred.Value,
		Confidence: pred.Confidence,
	})
}

// Train runs one training round and, on success, makes the new model active.
// Only one run may be in flight across every replica sharing the cache.
func (s *ForecastService) Train(ctx context.Context, dataPath string, testFraction float64) (models.Metrics, error) {
	if dataPath == "" {
		dataPath = s.cfg.DataPath
	}
	if testFraction == 0 {
		testFraction = s.cfg.TestSize
	}

	ok, err := s.cache.TryLock(ctx, trainLockKey, trainLockTTL)
	if err != nil {
		s.logger.Warn("train lock unavailable, relying on local lock", logger.Error(err))
	} else if !ok {
		return models.Metrics{}, models.ErrTrainingInProgress
	} else {
		defer func() {
			if err := s.cache.Unlock(context.Background(), trainLockKey); err != nil {
				s.logger.Warn("release train lock", logger.Error(err))
			}
		}()
	}

	start := time.Now()
	tm, err := s.trainer.Train(ctx, dataPath, testFraction)
	if err != nil {
		return models.Metrics{}, err
	}
	elapsed := time.Since(start)
	s.predictor.Publish(tm)

	if err := s.cache.Delete(ctx, s.statsKey(dataPath), s.statsKey(s.cfg.DataPath)); err != nil {
		s.logger.Warn("invalidate statistics cache", logger.Error(err))
	}

	if s.events != nil {
		ev := models.ModelTrainedEvent{
			RunID:       tm.RunID,
			TrainedAt:   tm.TrainedAt,
			DataPath:    dataPath,
			Metrics:     tm.Metrics,
			Hyperparams: s.trainer.Params(),
			DurationMs:  elapsed.Milliseconds(),
		}
		if err := s.events.PublishModelTrained(ctx, ev); err != nil {
			s.metrics.RecordError("model_event")
			s.logger.Error("publish model trained event",
				logger.String("run_id", tm.RunID),
				logger.Error(err))
		}
	}
	return tm.Metrics, nil
}

func (s *ForecastService) IsLoaded() bool { return s.predictor.IsLoaded() }

func (s *ForecastService) ModelInfo() models.ModelInfo { return s.predictor.ModelInfo() }

// TrainerState reports the trainer's current step.
func (s *ForecastService) TrainerState() TrainerState { return s.trainer.State() }

func (s *ForecastService) DefaultDataPath() string { return s.cfg.DataPath }

// ComputeStatistics summarises the configured dataset. Results are cached
// until the TTL expires or a training run replaces the model.
func (s *ForecastService) ComputeStatistics(ctx context.Context) models.Statistics {
	path := s.cfg.DataPath
	key := s.statsKey(path)

	var cached models.Statistics
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("statistics cache read", logger.Error(err))
	}

	table, err := dataset.ReadCSVFile(path)
	if err != nil {
		s.logger.Warn("statistics dataset unavailable",
			logger.String("data_path", path),
			logger.Error(err))
		return models.Statistics{Message: dataset.NoDataMessage}
	}
	stats := dataset.ComputeStatistics(table)
	if err := s.cache.Set(ctx, key, stats, s.cfg.StatsTTL); err != nil {
		s.logger.Warn("statistics cache write", logger.Error(err))
	}
	return stats
}

func (s *ForecastService) statsKey(path string) string {
	return cache.GenerateKey(statsCacheKey, cache.HashKey(path))
}

var _ service.Forecaster = (*ForecastService)(nil)
