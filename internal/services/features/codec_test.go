package features

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"DemandCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() map[string]any {
	return map[string]any{
		"product_id":  101,
		"month":       12,
		"day_of_week": 5,
		"price":       29.99,
		"promotion":   1,
		"stock":       150,
	}
}

func TestEncodeCanonicalOrder(t *testing.T) {
	in := sample()
	in["unrelated"] = "ignored"

	v, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, models.FeatureVector{101, 12, 5, 29.99, 1, 150}, v)
}

func TestEncodeMissingKey(t *testing.T) {
	in := sample()
	delete(in, "stock")
	delete(in, "month")

	_, err := Encode(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSchema))

	var serr *models.SchemaError
	require.True(t, errors.As(err, &serr))
	assert.ElementsMatch(t, []string{"stock", "month"}, serr.Missing)
}

func TestEncodeNumericForms(t *testing.T) {
	in := sample()
	in["price"] = json.Number("19.5")
	in["stock"] = "40"
	in["promotion"] = uint8(1)

	v, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, 19.5, v[3])
	assert.Equal(t, 1.0, v[4])
	assert.Equal(t, 40.0, v[5])
}

func TestEncodeRejectsNonNumeric(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "text", key: "price", value: "cheap"},
		{name: "bool", key: "promotion", value: true},
		{name: "nan", key: "price", value: math.NaN()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := sample()
			in[tc.key] = tc.value

			_, err := Encode(in)
			require.ErrorIs(t, err, models.ErrSchema)
			var serr *models.SchemaError
			require.True(t, errors.As(err, &serr))
			assert.Contains(t, serr.Invalid, tc.key)
		})
	}
}

func TestEncodeLeavesRangesToCaller(t *testing.T) {
	in := sample()
	in["month"] = 13

	v, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, 13.0, v[1])
}

func TestFromRow(t *testing.T) {
	index := map[string]int{"demand": 0, "product_id": 1, "month": 2, "day_of_week": 3, "price": 4, "promotion": 5, "stock": 6}
	v, err := FromRow([]float64{120, 150, 6, 2, 55.5, 0, 300}, index)
	require.NoError(t, err)
	assert.Equal(t, models.FeatureVector{150, 6, 2, 55.5, 0, 300}, v)

	delete(index, "price")
	_, err = FromRow([]float64{120, 150, 6, 2, 55.5, 0, 300}, index)
	require.ErrorIs(t, err, models.ErrSchema)
}
