package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestR2(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, R2(y, y), 1e-12)

	mean := []float64{2.5, 2.5, 2.5, 2.5}
	assert.InDelta(t, 0.0, R2(y, mean), 1e-12)
}

func TestR2Degenerate(t *testing.T) {
	assert.True(t, math.IsNaN(R2([]float64{5}, []float64{5})))
	assert.True(t, math.IsNaN(R2([]float64{5}, []float64{4})))
	assert.Equal(t, 1.0, R2([]float64{3, 3}, []float64{3, 3}))
	assert.Equal(t, 0.0, R2([]float64{3, 3}, []float64{3, 4}))
	assert.True(t, math.IsNaN(R2(nil, nil)))
	assert.True(t, math.IsNaN(R2([]float64{1, 2}, []float64{1})))
}

func TestMAEAndRMSE(t *testing.T) {
	yTrue := []float64{0, 0, 0, 0}
	yPred := []float64{1, -1, 3, -3}
	assert.InDelta(t, 2.0, MAE(yTrue, yPred), 1e-12)
	assert.InDelta(t, math.Sqrt(5), RMSE(yTrue, yPred), 1e-12)
	assert.Equal(t, 0.0, MAE(nil, nil))
	assert.Equal(t, 0.0, RMSE(nil, nil))
}
