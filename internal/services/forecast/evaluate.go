package forecast

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// R2 is the coefficient of determination of yPred against yTrue. It is NaN
// for fewer than two samples. When the target has no spread a perfect fit
// scores 1 and anything else 0.
func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) < 2 || len(yTrue) != len(yPred) {
		return math.NaN()
	}
	if floats.Max(yTrue) == floats.Min(yTrue) {
		if floats.Distance(yTrue, yPred, 2) == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(yPred, yTrue, nil)
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue))
}

// RMSE is the root mean squared error.
func RMSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	return floats.Distance(yTrue, yPred, 2) / math.Sqrt(float64(len(yTrue)))
}
