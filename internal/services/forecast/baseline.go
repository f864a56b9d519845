package forecast

import (
	"fmt"

	"DemandCast/internal/domain/models"

	"github.com/sajari/regression"
)

// LinearBaseline is an ordinary least squares fit on the same scaled
// features, kept to show how much the ensemble adds over a linear model.
type LinearBaseline struct {
	r *regression.Regression
}

func FitLinearBaseline(x [][]float64, y []float64) (*LinearBaseline, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("linear baseline: %d rows but %d targets: %w", len(x), len(y), models.ErrInvalidArgument)
	}
	r := new(regression.Regression)
	r.SetObserved(models.ColDemand)
	for i, name := range models.FeatureNames() {
		r.SetVar(i, name)
	}
	for i := range x {
		r.Train(regression.DataPoint(y[i], x[i]))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("linear baseline: %w", err)
	}
	return &LinearBaseline{r: r}, nil
}

// Score returns R² of the baseline on (x, y).
func (b *LinearBaseline) Score(x [][]float64, y []float64) (float64, error) {
	preds := make([]float64, len(x))
	for i, row := range x {
		p, err := b.r.Predict(row)
		if err != nil {
			return 0, fmt.Errorf("linear baseline predict: %w", err)
		}
		preds[i] = p
	}
	return R2(y, preds), nil
}

// Formula is the fitted equation, for logs.
func (b *LinearBaseline) Formula() string { return b.r.Formula }
