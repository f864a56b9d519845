package models

// Requests and responses of the forecast HTTP endpoints. Range checks live
// here; the core only checks presence and type.

type PredictRequest struct {
	ProductID *int     `json:"product_id" validate:"required,gte=1"`
	Month     *int     `json:"month" validate:"required,gte=1,lte=12"`
	DayOfWeek *int     `json:"day_of_week" validate:"required,gte=0,lte=6"`
	Price     *float64 `json:"price" validate:"required,gt=0"`
	Promotion *int     `json:"promotion" validate:"required,gte=0,lte=1"`
	Stock     *int     `json:"stock" validate:"required,gte=0"`
}

// Features converts a validated request into the codec's input mapping.
// Nil fields are left out so the codec reports them as missing.
func (r *PredictRequest) Features() map[string]any {
	m := make(map[string]any, NumFeatures)
	if r.ProductID != nil {
		m[ColProductID] = *r.ProductID
	}
	if r.Month != nil {
		m[ColMonth] = *r.Month
	}
	if r.DayOfWeek != nil {
		m[ColDayOfWeek] = *r.DayOfWeek
	}
	if r.Price != nil {
		m[ColPrice] = *r.Price
	}
	if r.Promotion != nil {
		m[ColPromotion] = *r.Promotion
	}
	if r.Stock != nil {
		m[ColStock] = *r.Stock
	}
	return m
}

type PredictResponse struct {
	Success    bool    `json:"success"`
	Prediction float64 `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

type TrainRequest struct {
	DataPath string  `json:"data_path"`
	TestSize float64 `json:"test_size" default:"0.2" validate:"gte=0.1,lte=0.5"`
}

type TrainResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Metrics Metrics `json:"metrics"`
}

type TrainQueuedResponse struct {
	Queued  bool   `json:"queued"`
	JobType string `json:"job_type"`
	// Pending is the queue backlog after enqueueing, when known.
	Pending int64  `json:"pending,omitempty"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

type StatsResponse struct {
	Success    bool       `json:"success"`
	Statistics Statistics `json:"statistics"`
	Message    string     `json:"message"`
}

type ModelInfoResponse struct {
	Success   bool      `json:"success"`
	ModelInfo ModelInfo `json:"model_info"`
	Message   string    `json:"message"`
}
