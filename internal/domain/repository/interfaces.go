package repository

import (
	"context"

	"DemandCast/internal/domain/models"
)

// ArtifactStore persists a single model artifact blob. Put replaces the
// previous blob atomically; Get returns models.ErrNotFound when nothing has
// been stored yet.
type ArtifactStore interface {
	Put(ctx context.Context, blob []byte) error
	Get(ctx context.Context) ([]byte, error)
	Close() error
}

// PredictionPublisher ships audit records to a message bus.
type PredictionPublisher interface {
	PublishBatch(ctx context.Context, records []models.PredictionRecord) error
	Close() error
}

// PredictionStorage writes audit records to an analytical store.
type PredictionStorage interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, records []models.PredictionRecord) error
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher announces model lifecycle events.
type EventPublisher interface {
	PublishModelTrained(ctx context.Context, ev models.ModelTrainedEvent) error
}

type Metrics interface {
	RecordPrediction(outcome string, seconds float64)
	RecordTraining(result string, seconds float64)
	RecordModelQuality(r2, baselineR2 float64)
	RecordModelLoaded(loaded bool)
	RecordAuditSent(backend string, n int)
	RecordError(kind string)
}
