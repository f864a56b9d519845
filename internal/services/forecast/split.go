package forecast

import (
	"fmt"
	"math"
	"math/rand"

	"DemandCast/internal/domain/models"
)

// Bounds on the held-out fraction accepted by TrainTestSplit.
const (
	MinTestFraction = 0.1
	MaxTestFraction = 0.5
)

// TrainTestSplit shuffles 0..n-1 with seed and returns the train and test
// row indices. The test split takes ceil(n*testFraction) rows.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if math.IsNaN(testFraction) || testFraction < MinTestFraction || testFraction > MaxTestFraction {
		return nil, nil, fmt.Errorf("test fraction %g outside [%g, %g]: %w",
			testFraction, MinTestFraction, MaxTestFraction, models.ErrInvalidArgument)
	}
	nTest := int(math.Ceil(float64(n) * testFraction))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 2 {
		return nil, nil, fmt.Errorf("split %d rows into %d/%d: %w", n, nTrain, nTest, models.ErrInsufficientData)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
