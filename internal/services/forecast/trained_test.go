package forecast

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"DemandCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fitTestModel(t *testing.T) *TrainedModel {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	rows := make([][]float64, 300)
	y := make([]float64, len(rows))
	for i := range rows {
		var v models.FeatureVector
		v[0] = float64(100 + rng.Intn(100))
		v[1] = float64(1 + rng.Intn(12))
		v[2] = float64(rng.Intn(7))
		v[3] = 10 + rng.Float64()*90
		v[4] = float64(rng.Intn(2))
		v[5] = float64(50 + rng.Intn(450))
		rows[i] = v.Slice()
		y[i] = 100 + 50*v[4] - 0.5*v[3]
	}
	s, err := FitScaler(rows)
	require.NoError(t, err)
	p := models.DefaultHyperparams()
	p.NEstimators = 20
	g, err := FitGradientBoosting(s.TransformAll(rows), y, p)
	require.NoError(t, err)
	tm, err := NewTrainedModel(s, g, "run-1", time.Unix(0, 0).UTC(), models.Metrics{R2Score: 0.9})
	require.NoError(t, err)
	return tm
}

func TestTrainedModelPredict(t *testing.T) {
	tm := fitTestModel(t)

	promo := models.FeatureVector{150, 6, 2, 50, 1, 200}
	plain := models.FeatureVector{150, 6, 2, 50, 0, 200}
	a, b := tm.Predict(promo), tm.Predict(plain)

	assert.Greater(t, a.Value, b.Value)
	for _, p := range []models.Prediction{a, b} {
		assert.GreaterOrEqual(t, p.Value, 0.0)
		assert.Equal(t, MinConfidence, p.Confidence)
	}
}

func TestTrainedModelRejectsSchemaMismatch(t *testing.T) {
	tm := fitTestModel(t)
	tm.Scaler = &Scaler{Mean: []float64{0}, Scale: []float64{1}}
	assert.Error(t, tm.Validate())
}

func TestTrainedModelInfo(t *testing.T) {
	info := fitTestModel(t).Info()
	assert.True(t, info.Loaded)
	assert.Equal(t, models.ModelType, info.ModelType)
	assert.Equal(t, models.FeatureNames(), info.Features)
	assert.Equal(t, 20, info.NEstimators)
	assert.Equal(t, 5, info.MaxDepth)
	assert.Equal(t, "run-1", info.RunID)
	require.NotNil(t, info.Metrics)
	assert.Equal(t, 0.9, info.Metrics.R2Score)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, MaxConfidence, ClampConfidence(1))
	assert.Equal(t, MinConfidence, ClampConfidence(-3))
	assert.Equal(t, MinConfidence, ClampConfidence(math.NaN()))
	assert.Equal(t, 0.8, ClampConfidence(0.8))
}

func TestLinearBaseline(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := make([][]float64, 100)
	y := make([]float64, len(x))
	for i := range x {
		row := make([]float64, models.NumFeatures)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		x[i] = row
		y[i] = 3 + 2*row[0] - row[3] + 0.5*row[4]
	}
	b, err := FitLinearBaseline(x, y)
	require.NoError(t, err)
	r2, err := b.Score(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-6)
	assert.NotEmpty(t, b.Formula())
}
