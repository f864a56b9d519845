package forecast

import (
	"sort"
	"testing"

	"DemandCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainTestSplitSizes(t *testing.T) {
	tests := []struct {
		n        int
		fraction float64
		wantTest int
	}{
		{n: 100, fraction: 0.2, wantTest: 20},
		{n: 11, fraction: 0.2, wantTest: 3},
		{n: 10, fraction: 0.1, wantTest: 1},
		{n: 4, fraction: 0.5, wantTest: 2},
	}
	for _, tc := range tests {
		train, test, err := TrainTestSplit(tc.n, tc.fraction, 42)
		require.NoError(t, err)
		assert.Len(t, test, tc.wantTest)
		assert.Len(t, train, tc.n-tc.wantTest)

		all := append(append([]int(nil), train...), test...)
		sort.Ints(all)
		for i, v := range all {
			assert.Equal(t, i, v)
		}
	}
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	a1, b1, err := TrainTestSplit(50, 0.3, 42)
	require.NoError(t, err)
	a2, b2, err := TrainTestSplit(50, 0.3, 42)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestTrainTestSplitRejectsBadInput(t *testing.T) {
	_, _, err := TrainTestSplit(100, 0.05, 42)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, _, err = TrainTestSplit(100, 0.6, 42)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, _, err = TrainTestSplit(2, 0.5, 42)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
	_, _, err = TrainTestSplit(0, 0.2, 42)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}
