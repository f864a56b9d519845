package models

import "time"

// ModelType is reported by ModelInfo for the ensemble regressor.
const ModelType = "GradientBoostingRegressor"

// Hyperparams configures the boosted-tree ensemble.
type Hyperparams struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	Subsample       float64 `json:"subsample"`
	Seed            int64   `json:"seed"`
}

// DefaultHyperparams mirrors the values the service has always trained with.
func DefaultHyperparams() Hyperparams {
	return Hyperparams{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        5,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Subsample:       1.0,
		Seed:            42,
	}
}

// Prediction is a demand estimate together with its confidence heuristic.
type Prediction struct {
	Value      float64
	Confidence float64
}

// Metrics summarises one training run.
type Metrics struct {
	R2Score      float64 `json:"r2_score"`
	MAE          float64 `json:"mae"`
	RMSE         float64 `json:"rmse"`
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
	BaselineR2   float64 `json:"baseline_r2"`
}

// ModelInfo describes the active model without reflecting on it.
type ModelInfo struct {
	Loaded       bool      `json:"loaded"`
	Message      string    `json:"message,omitempty"`
	ModelType    string    `json:"model_type,omitempty"`
	Features     []string  `json:"features,omitempty"`
	NEstimators  int       `json:"n_estimators,omitempty"`
	LearningRate float64   `json:"learning_rate,omitempty"`
	MaxDepth     int       `json:"max_depth,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
	TrainedAt    time.Time `json:"trained_at,omitempty"`
	Metrics      *Metrics  `json:"metrics,omitempty"`
}

// PredictionRecord is the audit entry written for every served prediction.
type PredictionRecord struct {
	Timestamp  time.Time          `json:"ts"`
	RunID      string             `json:"run_id"`
	Features   map[string]float64 `json:"features"`
	Value      float64            `json:"value"`
	Confidence float64            `json:"confidence"`
}

// ModelTrainedEvent is announced after a model has been persisted.
type ModelTrainedEvent struct {
	RunID       string      `json:"run_id"`
	TrainedAt   time.Time   `json:"trained_at"`
	DataPath    string      `json:"data_path"`
	Metrics     Metrics     `json:"metrics"`
	Hyperparams Hyperparams `json:"hyperparams"`
	DurationMs  int64       `json:"duration_ms"`
}
