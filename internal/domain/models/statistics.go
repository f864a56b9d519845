package models

// Statistics is the descriptive summary of a dataset.
type Statistics struct {
	TotalRecords int             `json:"total_records"`
	Features     []string        `json:"features,omitempty"`
	Message      string          `json:"message,omitempty"`
	Demand       *DemandStats    `json:"demand,omitempty"`
	Price        *PriceStats     `json:"price,omitempty"`
	Promotions   *PromotionStats `json:"promotions,omitempty"`
}

type DemandStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type PriceStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

type PromotionStats struct {
	Active     int     `json:"active"`
	Percentage float64 `json:"percentage"`
}
