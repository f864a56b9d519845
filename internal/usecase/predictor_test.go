package usecase

import (
	"context"
	"sync"
	"testing"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/forecast"
	"DemandCast/pkg/logger"
	"DemandCast/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictorNotLoaded(t *testing.T) {
	p := NewPredictor(logger.Nop(), metrics.Nop{})
	assert.False(t, p.IsLoaded())

	_, err := p.Predict(request(150, 6, 2, 50, 0, 200))
	assert.ErrorIs(t, err, models.ErrModelNotLoaded)
	_, err = p.PredictBatch([]map[string]any{request(150, 6, 2, 50, 0, 200)})
	assert.ErrorIs(t, err, models.ErrModelNotLoaded)

	info := p.ModelInfo()
	assert.False(t, info.Loaded)
	assert.Equal(t, "No model loaded", info.Message)
}

func TestPredictorServesTrainedModel(t *testing.T) {
	f := newFixture(t, fastParams(), 400)
	tm, err := f.trainer.Train(context.Background(), f.dataPath, 0.2)
	require.NoError(t, err)
	f.predictor.Publish(tm)

	pred, err := f.predictor.Predict(request(150, 6, 2, 50, 0, 200))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pred.Value, 0.0)
	assert.GreaterOrEqual(t, pred.Confidence, forecast.MinConfidence)
	assert.LessOrEqual(t, pred.Confidence, forecast.MaxConfidence)

	info := f.predictor.ModelInfo()
	assert.True(t, info.Loaded)
	assert.Equal(t, models.ModelType, info.ModelType)
	assert.Equal(t, models.FeatureNames(), info.Features)
	assert.Equal(t, 30, info.NEstimators)
	assert.Equal(t, tm.RunID, info.RunID)
}

func TestPredictorSchemaErrors(t *testing.T) {
	f := newFixture(t, fastParams(), 200)
	tm, err := f.trainer.Train(context.Background(), f.dataPath, 0.2)
	require.NoError(t, err)
	f.predictor.Publish(tm)

	missing := request(150, 6, 2, 50, 0, 200)
	delete(missing, models.ColStock)
	_, err = f.predictor.Predict(missing)
	assert.ErrorIs(t, err, models.ErrSchema)

	wrongType := request(150, 6, 2, 50, 0, 200)
	wrongType[models.ColPrice] = []int{1}
	_, err = f.predictor.Predict(wrongType)
	assert.ErrorIs(t, err, models.ErrSchema)

	_, err = f.predictor.PredictBatch([]map[string]any{request(150, 6, 2, 50, 0, 200), missing})
	assert.ErrorIs(t, err, models.ErrSchema)
	assert.Contains(t, err.Error(), "batch item 1")
}

func TestPredictorBatchPreservesOrderAndSize(t *testing.T) {
	f := newFixture(t, fastParams(), 300)
	tm, err := f.trainer.Train(context.Background(), f.dataPath, 0.2)
	require.NoError(t, err)
	f.predictor.Publish(tm)

	batch := []map[string]any{
		request(150, 6, 2, 50, 0, 200),
		request(120, 12, 6, 15, 1, 450),
		request(180, 3, 1, 90, 0, 60),
	}
	preds, err := f.predictor.PredictBatch(batch)
	require.NoError(t, err)
	require.Len(t, preds, len(batch))
	for i, in := range batch {
		single, err := f.predictor.Predict(in)
		require.NoError(t, err)
		assert.Equal(t, single, preds[i])
	}

	empty, err := f.predictor.PredictBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPredictorLoadFrom(t *testing.T) {
	f := newFixture(t, fastParams(), 300)
	p := NewPredictor(logger.Nop(), metrics.Nop{})

	err := p.LoadFrom(context.Background(), f.store)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, p.IsLoaded())

	tm, err := f.trainer.Train(context.Background(), f.dataPath, 0.2)
	require.NoError(t, err)
	require.NoError(t, p.LoadFrom(context.Background(), f.store))

	live := NewPredictor(logger.Nop(), metrics.Nop{})
	live.Publish(tm)
	req := request(135, 12, 5, 33.3, 1, 320)
	a, err := live.Predict(req)
	require.NoError(t, err)
	b, err := p.Predict(req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredictorConcurrentSwap(t *testing.T) {
	f := newFixture(t, fastParams(), 200)
	tm, err := f.trainer.Train(context.Background(), f.dataPath, 0.2)
	require.NoError(t, err)
	f.predictor.Publish(tm)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, err := f.predictor.Predict(request(150, 6, 2, 50, j%2, 200))
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		f.predictor.Publish(tm)
	}
	wg.Wait()
}
