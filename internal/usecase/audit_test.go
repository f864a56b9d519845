package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/logger"
	"DemandCast/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(runID string, value float64) models.PredictionRecord {
	return models.PredictionRecord{
		Timestamp:  time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
		RunID:      runID,
		Features:   models.FeatureVector{150, 12, 5, 20, 1, 300}.Map(),
		Value:      value,
		Confidence: 0.95,
	}
}

func TestNewPredictionRecorderBackends(t *testing.T) {
	_, err := NewPredictionRecorder(nil, nil, metrics.Nop{}, logger.Nop(), AuditKafka, 10, time.Second, 10)
	assert.Error(t, err)
	_, err = NewPredictionRecorder(nil, nil, metrics.Nop{}, logger.Nop(), AuditClickHouse, 10, time.Second, 10)
	assert.Error(t, err)
	_, err = NewPredictionRecorder(nil, nil, metrics.Nop{}, logger.Nop(), "s3", 10, time.Second, 10)
	assert.Error(t, err)

	rec, err := NewPredictionRecorder(nil, nil, metrics.Nop{}, logger.Nop(), "", 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, AuditNone, rec.Backend())
	assert.False(t, rec.Enabled())
	rec.Start()
	rec.Record(record("r", 1))
	rec.Close()
}

func TestPredictionRecorderFlushesBySize(t *testing.T) {
	store := &memStorage{}
	rec, err := NewPredictionRecorder(nil, store, metrics.Nop{}, logger.Nop(), AuditClickHouse, 3, time.Hour, 10)
	require.NoError(t, err)
	rec.Start()
	defer rec.Close()

	for i := 0; i < 3; i++ {
		rec.Record(record("run-1", float64(i)))
	}
	assert.Eventually(t, func() bool { return store.len() == 3 }, time.Second, 10*time.Millisecond)
}

func TestPredictionRecorderFlushesByInterval(t *testing.T) {
	pub := &memPublisher{}
	rec, err := NewPredictionRecorder(pub, nil, metrics.Nop{}, logger.Nop(), AuditKafka, 100, 20*time.Millisecond, 100)
	require.NoError(t, err)
	rec.Start()
	defer rec.Close()

	rec.Record(record("run-1", 1))
	assert.Eventually(t, func() bool { return pub.len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestPredictionRecorderCloseIsIdempotent(t *testing.T) {
	pub := &memPublisher{}
	rec, err := NewPredictionRecorder(pub, nil, metrics.Nop{}, logger.Nop(), AuditKafka, 100, time.Hour, 100)
	require.NoError(t, err)
	rec.Start()
	rec.Record(record("run-1", 1))
	rec.Close()
	rec.Close()
	rec.Record(record("run-1", 2))
	assert.Equal(t, 1, pub.len())
}

func TestPredictionRecorderProcessBatchError(t *testing.T) {
	pub := &memPublisher{err: errors.New("broker down")}
	rec, err := NewPredictionRecorder(pub, nil, metrics.Nop{}, logger.Nop(), AuditKafka, 10, time.Second, 10)
	require.NoError(t, err)
	err = rec.ProcessBatch(context.Background(), []models.PredictionRecord{record("r", 1)})
	assert.ErrorContains(t, err, "broker down")
	assert.NoError(t, rec.ProcessBatch(context.Background(), nil))
}

func TestAuditLogHandler(t *testing.T) {
	store := &memStorage{}
	h := NewAuditLogHandler("demandcast.predictions", store, metrics.Nop{})
	assert.Equal(t, "demandcast.predictions", h.Topic())

	b, err := json.Marshal(record("run-9", 42))
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), b))
	require.Equal(t, 1, store.len())
	assert.Equal(t, "run-9", store.records[0].RunID)
	assert.Equal(t, 42.0, store.records[0].Value)
	assert.Equal(t, 12.0, store.records[0].Features[models.ColMonth])

	assert.Error(t, h.Handle(context.Background(), []byte("{not json")))
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{"run_id":"x","features":{"month":1}}`)), models.ErrSchema)

	store.err = errors.New("clickhouse down")
	assert.Error(t, h.Handle(context.Background(), b))
}

type stubTrainable struct {
	calls []RetrainPayload
	err   error
}

func (s *stubTrainable) Train(_ context.Context, dataPath string, testFraction float64) (models.Metrics, error) {
	s.calls = append(s.calls, RetrainPayload{DataPath: dataPath, TestSize: testFraction})
	return models.Metrics{R2Score: 0.9}, s.err
}

func TestRetrainJob(t *testing.T) {
	svc := &stubTrainable{}
	job := NewRetrainJob(svc, logger.Nop())
	assert.Equal(t, RetrainJobType, job.Type())

	raw := json.RawMessage(`{"data_path":"data/x.csv","test_size":0.3}`)
	require.NoError(t, job.Handle(context.Background(), raw))
	require.NoError(t, job.Handle(context.Background(), RetrainPayload{DataPath: "data/y.csv"}))
	assert.Equal(t, []RetrainPayload{{DataPath: "data/x.csv", TestSize: 0.3}, {DataPath: "data/y.csv"}}, svc.calls)

	assert.NoError(t, job.Handle(context.Background(), 12), "unparseable payloads are dropped")

	svc.err = models.ErrSchema
	assert.NoError(t, job.Handle(context.Background(), raw))

	svc.err = models.ErrDataLoad
	assert.ErrorIs(t, job.Handle(context.Background(), raw), models.ErrDataLoad)
}
