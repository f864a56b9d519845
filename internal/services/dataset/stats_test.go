package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatistics(t *testing.T) {
	csv := "product_id,price,promotion,demand\n1,10,1,100\n2,20,0,200\n3,30,1,300\n4,40,0,400\n"
	tbl, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	s := ComputeStatistics(tbl)
	assert.Equal(t, 4, s.TotalRecords)
	assert.Equal(t, []string{"product_id", "price", "promotion", "demand"}, s.Features)

	require.NotNil(t, s.Demand)
	assert.InDelta(t, 250.0, s.Demand.Mean, 1e-9)
	assert.InDelta(t, 250.0, s.Demand.Median, 1e-9)
	assert.InDelta(t, math.Sqrt(50000.0/3), s.Demand.Std, 1e-9)
	assert.Equal(t, 100.0, s.Demand.Min)
	assert.Equal(t, 400.0, s.Demand.Max)

	require.NotNil(t, s.Price)
	assert.InDelta(t, 25.0, s.Price.Mean, 1e-9)
	assert.Equal(t, 10.0, s.Price.Min)
	assert.Equal(t, 40.0, s.Price.Max)

	require.NotNil(t, s.Promotions)
	assert.Equal(t, 2, s.Promotions.Active)
	assert.InDelta(t, 50.0, s.Promotions.Percentage, 1e-9)
}

func TestComputeStatisticsOptionalColumns(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("demand\n5\n"))
	require.NoError(t, err)

	s := ComputeStatistics(tbl)
	assert.Equal(t, 1, s.TotalRecords)
	require.NotNil(t, s.Demand)
	assert.Equal(t, 0.0, s.Demand.Std)
	assert.Nil(t, s.Price)
	assert.Nil(t, s.Promotions)
}

func TestComputeStatisticsNoData(t *testing.T) {
	s := ComputeStatistics(nil)
	assert.Equal(t, 0, s.TotalRecords)
	assert.Equal(t, NoDataMessage, s.Message)
}

func TestMedianOdd(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
}
