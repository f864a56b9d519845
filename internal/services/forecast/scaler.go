package forecast

import (
	"fmt"
	"math"

	"DemandCast/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardises each column with the mean and population standard
// deviation seen at fit time. Columns with zero variance are passed through
// untouched (Mean 0, Scale 1).
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column statistics over rows. It needs at least two rows.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("fit scaler on %d rows: %w", len(rows), models.ErrInsufficientData)
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("fit scaler: empty rows: %w", models.ErrInvalidArgument)
	}

	s := &Scaler{
		Mean:  make([]float64, width),
		Scale: make([]float64, width),
	}
	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, r := range rows {
			if len(r) != width {
				return nil, fmt.Errorf("fit scaler: row %d has %d columns, want %d: %w", i, len(r), width, models.ErrInvalidArgument)
			}
			col[i] = r[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if isZeroSpread(mean, std) {
			s.Mean[j], s.Scale[j] = 0, 1
			continue
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s, nil
}

func isZeroSpread(mean, std float64) bool {
	if math.IsNaN(std) || std <= 0 {
		return true
	}
	return std <= 1e-12*math.Max(1, math.Abs(mean))
}

// Width is the number of columns the scaler was fitted on.
func (s *Scaler) Width() int { return len(s.Mean) }

// Transform standardises a single feature vector.
func (s *Scaler) Transform(v models.FeatureVector) models.FeatureVector {
	var out models.FeatureVector
	for j := range v {
		out[j] = (v[j] - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformRow standardises one row into a new slice.
func (s *Scaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, x := range row {
		out[j] = (x - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll standardises every row; the input is left untouched.
func (s *Scaler) TransformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = s.TransformRow(r)
	}
	return out
}

func (s *Scaler) validate(width int) error {
	if s == nil {
		return fmt.Errorf("scaler missing")
	}
	if len(s.Mean) != width || len(s.Scale) != width {
		return fmt.Errorf("scaler width %d/%d, want %d", len(s.Mean), len(s.Scale), width)
	}
	for j, sc := range s.Scale {
		if sc <= 0 || math.IsNaN(sc) || math.IsInf(sc, 0) || math.IsNaN(s.Mean[j]) {
			return fmt.Errorf("scaler column %d has invalid parameters", j)
		}
	}
	return nil
}
