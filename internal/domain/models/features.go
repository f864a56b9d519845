package models

// NumFeatures is the width of a FeatureVector.
const NumFeatures = 6

// Column names of the training dataset and prediction requests.
const (
	ColProductID = "product_id"
	ColMonth     = "month"
	ColDayOfWeek = "day_of_week"
	ColPrice     = "price"
	ColPromotion = "promotion"
	ColStock     = "stock"
	ColDemand    = "demand"
)

// featureOrder is the canonical column order. The scaler and the ensemble
// are both fitted against it, so it must never be reordered.
var featureOrder = [NumFeatures]string{
	ColProductID,
	ColMonth,
	ColDayOfWeek,
	ColPrice,
	ColPromotion,
	ColStock,
}

// FeatureNames returns the canonical feature order.
func FeatureNames() []string {
	out := make([]string, NumFeatures)
	copy(out, featureOrder[:])
	return out
}

// RequiredColumns returns the feature columns followed by the target column.
func RequiredColumns() []string {
	return append(FeatureNames(), ColDemand)
}

// FeatureVector holds one observation in canonical feature order.
type FeatureVector [NumFeatures]float64

// Slice returns a copy of the vector as a slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// Map returns the vector keyed by feature name.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, name := range featureOrder {
		m[name] = v[i]
	}
	return m
}
