package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/usecase"
	xlogger "DemandCast/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubForecaster struct {
	loaded     bool
	pred       models.Prediction
	predictErr error
	trainErr   error
	trainPath  string
	trainSize  float64
	stats      models.Statistics
	batchSeen  int
}

func (s *stubForecaster) Predict(_ context.Context, in map[string]any) (models.Prediction, error) {
	if s.predictErr != nil {
		return models.Prediction{}, s.predictErr
	}
	return s.pred, nil
}

func (s *stubForecaster) PredictBatch(_ context.Context, batch []map[string]any) ([]models.Prediction, error) {
	if s.predictErr != nil {
		return nil, s.predictErr
	}
	s.batchSeen = len(batch)
	out := make([]models.Prediction, len(batch))
	for i := range out {
		out[i] = s.pred
	}
	return out, nil
}

func (s *stubForecaster) Train(_ context.Context, dataPath string, testFraction float64) (models.Metrics, error) {
	s.trainPath, s.trainSize = dataPath, testFraction
	if s.trainErr != nil {
		return models.Metrics{}, s.trainErr
	}
	return models.Metrics{R2Score: 0.81, TrainSamples: 80, TestSamples: 20}, nil
}

func (s *stubForecaster) IsLoaded() bool { return s.loaded }

func (s *stubForecaster) ModelInfo() models.ModelInfo {
	if !s.loaded {
		return models.ModelInfo{Message: "No model loaded"}
	}
	return models.ModelInfo{Loaded: true, ModelType: models.ModelType, NEstimators: 100}
}

func (s *stubForecaster) ComputeStatistics(context.Context) models.Statistics { return s.stats }

func (s *stubForecaster) DefaultDataPath() string { return "data/training_data.csv" }

type stubQueue struct {
	msgType string
	payload interface{}
	err     error
	pending int64
}

func (q *stubQueue) Depth(context.Context) (int64, int64, int64, error) {
	return q.pending, 0, 0, nil
}

func (q *stubQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.msgType, q.payload = msgType, payload
	return q.err
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *ForecastEchoHandler, method, path, body string) (int, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

const validBody = `{"product_id":150,"month":12,"day_of_week":5,"price":25.5,"promotion":1,"stock":300}`

func TestHealth(t *testing.T) {
	svc := &stubForecaster{}
	h := NewForecastEchoHandler(xlogger.Nop(), svc, nil)

	for _, path := range []string{"/", "/health"} {
		code, env := serve(t, h, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, code)
		var res models.HealthResponse
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, "degraded", res.Status)
		assert.Equal(t, Version, res.Version)
	}

	svc.loaded = true
	_, env := serve(t, h, http.MethodGet, "/health", "")
	var res models.HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "healthy", res.Status)
}

func TestPredict(t *testing.T) {
	svc := &stubForecaster{loaded: true, pred: models.Prediction{Value: 187.5, Confidence: 0.95}}
	h := NewForecastEchoHandler(xlogger.Nop(), svc, nil)

	code, env := serve(t, h, http.MethodPost, "/api/v1/predict", validBody)
	require.Equal(t, http.StatusOK, code)
	var res models.PredictResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Success)
	assert.Equal(t, 187.5, res.Prediction)
	assert.Equal(t, 0.95, res.Confidence)
}

func TestPredictValidation(t *testing.T) {
	h := NewForecastEchoHandler(xlogger.Nop(), &stubForecaster{loaded: true}, nil)
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "month out of range", body: `{"product_id":1,"month":13,"day_of_week":1,"price":10,"promotion":0,"stock":5}`, field: "month"},
		{name: "negative price", body: `{"product_id":1,"month":1,"day_of_week":1,"price":-1,"promotion":0,"stock":5}`, field: "price"},
		{name: "promotion not binary", body: `{"product_id":1,"month":1,"day_of_week":1,"price":10,"promotion":2,"stock":5}`, field: "promotion"},
		{name: "missing stock", body: `{"product_id":1,"month":1,"day_of_week":1,"price":10,"promotion":0}`, field: "stock"},
		{name: "zero product", body: `{"product_id":0,"month":1,"day_of_week":1,"price":10,"promotion":0,"stock":5}`, field: "product_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, env := serve(t, h, http.MethodPost, "/api/v1/predict", tc.body)
			require.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, string(env.Data), `"field":"`+tc.field+`"`)
		})
	}
}

func TestPredictErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: models.ErrModelNotLoaded, code: http.StatusServiceUnavailable},
		{err: &models.SchemaError{Missing: []string{"stock"}}, code: http.StatusBadRequest},
		{err: errors.New("boom"), code: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		h := NewForecastEchoHandler(xlogger.Nop(), &stubForecaster{predictErr: tc.err}, nil)
		code, env := serve(t, h, http.MethodPost, "/api/v1/predict", validBody)
		assert.Equal(t, tc.code, code)
		assert.Equal(t, tc.code, env.Status)
	}
}

func TestPredictBatch(t *testing.T) {
	svc := &stubForecaster{loaded: true, pred: models.Prediction{Value: 10, Confidence: 0.9}}
	h := NewForecastEchoHandler(xlogger.Nop(), svc, nil)

	code, env := serve(t, h, http.MethodPost, "/api/v1/predict/batch", "["+validBody+","+validBody+","+validBody+"]")
	require.Equal(t, http.StatusOK, code)
	var res []models.PredictResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res, 3)
	assert.Equal(t, 3, svc.batchSeen)

	bad := `{"product_id":1,"month":0,"day_of_week":1,"price":10,"promotion":0,"stock":5}`
	code, env = serve(t, h, http.MethodPost, "/api/v1/predict/batch", "["+validBody+","+bad+"]")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), `"index":1`)

	code, _ = serve(t, h, http.MethodPost, "/api/v1/predict/batch", validBody)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTrain(t *testing.T) {
	svc := &stubForecaster{}
	h := NewForecastEchoHandler(xlogger.Nop(), svc, nil)

	code, env := serve(t, h, http.MethodPost, "/api/v1/train", "")
	require.Equal(t, http.StatusOK, code)
	var res models.TrainResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Success)
	assert.Equal(t, 0.81, res.Metrics.R2Score)
	assert.Equal(t, "data/training_data.csv", svc.trainPath)
	assert.Equal(t, 0.2, svc.trainSize)

	_, _ = serve(t, h, http.MethodPost, "/api/v1/train", `{"data_path":"other.csv","test_size":0.3}`)
	assert.Equal(t, "other.csv", svc.trainPath)
	assert.Equal(t, 0.3, svc.trainSize)

	code, _ = serve(t, h, http.MethodPost, "/api/v1/train", `{"test_size":0.9}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTrainErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: models.ErrTrainingInProgress, code: http.StatusConflict},
		{err: models.ErrInsufficientData, code: http.StatusBadRequest},
		{err: &models.SchemaError{Missing: []string{"demand"}}, code: http.StatusBadRequest},
		{err: models.ErrDataLoad, code: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		h := NewForecastEchoHandler(xlogger.Nop(), &stubForecaster{trainErr: tc.err}, nil)
		code, env := serve(t, h, http.MethodPost, "/api/v1/train", "")
		assert.Equal(t, tc.code, code, tc.err.Error())
		if tc.code == http.StatusBadRequest {
			assert.NotContains(t, string(env.Data), "unexpected error")
		}
	}
}

func TestTrainAsync(t *testing.T) {
	svc := &stubForecaster{}

	code, _ := serve(t, NewForecastEchoHandler(xlogger.Nop(), svc, nil), http.MethodPost, "/api/v1/train/async", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	q := &stubQueue{pending: 2}
	code, env := serve(t, NewForecastEchoHandler(xlogger.Nop(), svc, q), http.MethodPost, "/api/v1/train/async", `{"test_size":0.25}`)
	require.Equal(t, http.StatusAccepted, code)
	var res models.TrainQueuedResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Queued)
	assert.Equal(t, int64(2), res.Pending)
	assert.Equal(t, usecase.RetrainJobType, q.msgType)
	assert.Equal(t, usecase.RetrainPayload{DataPath: "data/training_data.csv", TestSize: 0.25}, q.payload)

	q.err = errors.New("redis down")
	code, _ = serve(t, NewForecastEchoHandler(xlogger.Nop(), svc, q), http.MethodPost, "/api/v1/train/async", "")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestStatsAndModelInfo(t *testing.T) {
	svc := &stubForecaster{stats: models.Statistics{Message: "no data available"}}
	h := NewForecastEchoHandler(xlogger.Nop(), svc, nil)

	_, env := serve(t, h, http.MethodGet, "/api/v1/stats", "")
	var stats models.StatsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.False(t, stats.Success)
	assert.Equal(t, "no data available", stats.Message)

	svc.stats = models.Statistics{TotalRecords: 3, Demand: &models.DemandStats{Mean: 10}}
	_, env = serve(t, h, http.MethodGet, "/api/v1/stats", "")
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.True(t, stats.Success)
	assert.Equal(t, 10.0, stats.Statistics.Demand.Mean)

	_, env = serve(t, h, http.MethodGet, "/api/v1/model/info", "")
	var info models.ModelInfoResponse
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.False(t, info.Success)
	assert.Equal(t, "No model loaded", info.Message)

	svc.loaded = true
	_, env = serve(t, h, http.MethodGet, "/api/v1/model/info", "")
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.True(t, info.ModelInfo.Loaded)
	assert.Equal(t, 100, info.ModelInfo.NEstimators)
}
