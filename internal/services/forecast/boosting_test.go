package forecast

import (
	"math/rand"
	"testing"

	"DemandCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		a, b := rng.Float64(), rng.Float64()
		x[i] = []float64{a, b}
		y[i] = 10
		if a > 0.5 {
			y[i] = 30
		}
		y[i] += 5 * b
	}
	return x, y
}

func smallParams() models.Hyperparams {
	p := models.DefaultHyperparams()
	p.NEstimators = 30
	p.MaxDepth = 3
	return p
}

func TestFitGradientBoostingLearnsStep(t *testing.T) {
	x, y := stepData(400, 1)
	g, err := FitGradientBoosting(x, y, smallParams())
	require.NoError(t, err)

	assert.Len(t, g.Trees, 30)
	assert.InDelta(t, 10.0, g.Predict([]float64{0.1, 0}), 2.0)
	assert.InDelta(t, 35.0, g.Predict([]float64{0.9, 1}), 2.0)
	assert.Greater(t, g.Score(x, y), 0.95)
	for _, tr := range g.Trees {
		assert.LessOrEqual(t, tr.Depth(), 3)
	}
}

func TestFitGradientBoostingDeterministic(t *testing.T) {
	x, y := stepData(200, 7)
	p := smallParams()
	p.Subsample = 0.8

	a, err := FitGradientBoosting(x, y, p)
	require.NoError(t, err)
	b, err := FitGradientBoosting(x, y, p)
	require.NoError(t, err)

	assert.Equal(t, a.Init, b.Init)
	assert.Equal(t, a.Trees, b.Trees)
	assert.Equal(t, a.PredictAll(x), b.PredictAll(x))
}

func TestFitGradientBoostingConstantTarget(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{5, 5, 5, 5}
	g, err := FitGradientBoosting(x, y, smallParams())
	require.NoError(t, err)
	assert.InDelta(t, 5.0, g.Predict([]float64{10}), 1e-9)
	assert.Equal(t, 1.0, g.Score(x, y))
}

func TestFitGradientBoostingRejectsBadInput(t *testing.T) {
	_, err := FitGradientBoosting([][]float64{{1}}, []float64{1}, smallParams())
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = FitGradientBoosting([][]float64{{1}, {2}}, []float64{1}, smallParams())
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	p := smallParams()
	p.LearningRate = 0
	_, err = FitGradientBoosting([][]float64{{1}, {2}}, []float64{1, 2}, p)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestGradientBoostingValidate(t *testing.T) {
	x, y := stepData(50, 3)
	g, err := FitGradientBoosting(x, y, smallParams())
	require.NoError(t, err)
	assert.NoError(t, g.validate(2))
	assert.Error(t, g.validate(3))

	g.Trees[0].Nodes[0].Left = 0
	if g.Trees[0].Nodes[0].Feature >= 0 {
		assert.Error(t, g.validate(2))
	}
}
