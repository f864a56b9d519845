package usecase

import (
	"context"
	"errors"
	"fmt"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/logger"
	"DemandCast/pkg/queue"
)

// RetrainJobType is the queue message type of an async retrain.
const RetrainJobType = "model.retrain"

// RetrainPayload is the body of a queued retrain.
type RetrainPayload struct {
	DataPath string  `json:"data_path"`
	TestSize float64 `json:"test_size"`
}

// Trainable is the part of ForecastService a retrain job drives.
type Trainable interface {
	Train(ctx context.Context, dataPath string, testFraction float64) (models.Metrics, error)
}

// RetrainJob runs a queued training request through the service so the new
// model is published exactly as a synchronous train would publish it.
type RetrainJob struct {
	svc    Trainable
	logger *logger.Logger
}

func NewRetrainJob(svc Trainable, l *logger.Logger) *RetrainJob {
	return &RetrainJob{svc: svc, logger: l}
}

func (j *RetrainJob) Name() string { return "retrain-model" }

func (j *RetrainJob) Type() string { return RetrainJobType }

// Handle trains once. Input errors are logged and swallowed since a retry
// cannot fix them; anything else goes back to the queue for retry.
func (j *RetrainJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RetrainPayload](payload)
	if err != nil {
		j.logger.Error("retrain payload rejected", logger.Error(err))
		return nil
	}
	metrics, err := j.svc.Train(ctx, p.DataPath, p.TestSize)
	switch {
	case err == nil:
		j.logger.Info("async retrain finished",
			logger.String("data_path", p.DataPath),
			logger.Float64("r2", metrics.R2Score))
		return nil
	case errors.Is(err, models.ErrSchema),
		errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, models.ErrInsufficientData):
		j.logger.Warn("async retrain dropped",
			logger.String("data_path", p.DataPath),
			logger.Error(err))
		return nil
	default:
		return fmt.Errorf("retrain %s: %w", p.DataPath, err)
	}
}

var _ queue.Job = (*RetrainJob)(nil)
