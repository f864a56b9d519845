package features

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"DemandCast/internal/domain/models"
)

// Encode converts a named feature mapping into a FeatureVector in canonical
// order. Every feature must be present and numeric; unknown keys are ignored.
// Range checks are the caller's job.
func Encode(in map[string]any) (models.FeatureVector, error) {
	var v models.FeatureVector
	var serr models.SchemaError
	for i, name := range models.FeatureNames() {
		raw, ok := in[name]
		if !ok || raw == nil {
			serr.Missing = append(serr.Missing, name)
			continue
		}
		f, err := toFloat(raw)
		if err != nil {
			if serr.Invalid == nil {
				serr.Invalid = make(map[string]string)
			}
			serr.Invalid[name] = err.Error()
			continue
		}
		v[i] = f
	}
	if len(serr.Missing) > 0 || len(serr.Invalid) > 0 {
		return v, &serr
	}
	return v, nil
}

// EncodeFloats is Encode for callers that already hold float64 values.
func EncodeFloats(in map[string]float64) (models.FeatureVector, error) {
	m := make(map[string]any, len(in))
	for k, val := range in {
		m[k] = val
	}
	return Encode(m)
}

// FromRow maps a CSV row onto a FeatureVector using a column index.
func FromRow(row []float64, index map[string]int) (models.FeatureVector, error) {
	var v models.FeatureVector
	var missing []string
	for i, name := range models.FeatureNames() {
		col, ok := index[name]
		if !ok || col >= len(row) {
			missing = append(missing, name)
			continue
		}
		v[i] = row[col]
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return v, &models.SchemaError{Missing: missing}
	}
	return v, nil
}

func toFloat(raw any) (float64, error) {
	var f float64
	switch x := raw.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}
