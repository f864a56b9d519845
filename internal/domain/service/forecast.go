package service

import (
	"context"

	"DemandCast/internal/domain/models"
)

// Forecaster is the contract the transport layer calls into. Inputs are
// range-validated by the caller; implementations check presence and type.
type Forecaster interface {
	Predict(ctx context.Context, features map[string]any) (models.Prediction, error)
	PredictBatch(ctx context.Context, batch []map[string]any) ([]models.Prediction, error)
	Train(ctx context.Context, dataPath string, testFraction float64) (models.Metrics, error)
	IsLoaded() bool
	ModelInfo() models.ModelInfo
	ComputeStatistics(ctx context.Context) models.Statistics
	DefaultDataPath() string
}
