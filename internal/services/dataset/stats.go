package dataset

import (
	"sort"

	"DemandCast/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NoDataMessage is reported when no dataset could be read.
const NoDataMessage = "no data available"

// ComputeStatistics summarises a table. A nil or empty table yields a
// zero-record descriptor instead of an error.
func ComputeStatistics(t *Table) models.Statistics {
	if t == nil || t.Len() == 0 {
		return models.Statistics{TotalRecords: 0, Message: NoDataMessage}
	}

	out := models.Statistics{
		TotalRecords: t.Len(),
		Features:     append([]string(nil), t.Header...),
	}

	if demand, ok := t.Column(models.ColDemand); ok {
		ds := &models.DemandStats{
			Mean:   stat.Mean(demand, nil),
			Median: median(demand),
			Min:    floats.Min(demand),
			Max:    floats.Max(demand),
		}
		if len(demand) > 1 {
			ds.Std = stat.StdDev(demand, nil)
		}
		out.Demand = ds
	}

	if price, ok := t.Column(models.ColPrice); ok {
		out.Price = &models.PriceStats{
			Mean: stat.Mean(price, nil),
			Min:  floats.Min(price),
			Max:  floats.Max(price),
		}
	}

	if promo, ok := t.Column(models.ColPromotion); ok {
		out.Promotions = &models.PromotionStats{
			Active:     int(floats.Sum(promo)),
			Percentage: stat.Mean(promo, nil) * 100,
		}
	}

	return out
}

// median averages the two middle values for even lengths.
func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
