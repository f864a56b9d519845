package repository

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/forecast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainSmall(t *testing.T) *forecast.TrainedModel {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	rows := make([][]float64, 120)
	y := make([]float64, len(rows))
	for i := range rows {
		row := make([]float64, models.NumFeatures)
		for j := range row {
			row[j] = rng.Float64() * 10
		}
		rows[i] = row
		y[i] = 3*row[0] + row[4]
	}
	s, err := forecast.FitScaler(rows)
	require.NoError(t, err)
	p := models.DefaultHyperparams()
	p.NEstimators = 10
	p.MaxDepth = 3
	g, err := forecast.FitGradientBoosting(s.TransformAll(rows), y, p)
	require.NoError(t, err)
	tm, err := forecast.NewTrainedModel(s, g, "run-abc", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), models.Metrics{R2Score: 0.8, TrainSamples: 96, TestSamples: 24})
	require.NoError(t, err)
	return tm
}

func TestArtifactRoundTrip(t *testing.T) {
	tm := trainSmall(t)
	blob, err := EncodeArtifact(tm)
	require.NoError(t, err)

	back, err := DecodeArtifact(blob)
	require.NoError(t, err)
	assert.Equal(t, tm.RunID, back.RunID)
	assert.True(t, tm.TrainedAt.Equal(back.TrainedAt))
	assert.Equal(t, tm.Metrics, back.Metrics)

	v := models.FeatureVector{1, 2, 3, 4, 5, 6}
	assert.Equal(t, tm.Predict(v), back.Predict(v))
}

func TestDecodeArtifactRejectsGarbage(t *testing.T) {
	_, err := DecodeArtifact([]byte("not an artifact"))
	assert.ErrorIs(t, err, models.ErrCorruptArtifact)

	_, err = DecodeArtifact(zstdEncoder.EncodeAll([]byte(`{"format":"other","version":1}`), nil))
	assert.ErrorIs(t, err, models.ErrCorruptArtifact)

	_, err = DecodeArtifact(zstdEncoder.EncodeAll([]byte(`{"format":"demandcast.model","version":2}`), nil))
	assert.ErrorIs(t, err, models.ErrCorruptArtifact)
}

func TestDecodeArtifactDetectsTampering(t *testing.T) {
	blob, err := EncodeArtifact(trainSmall(t))
	require.NoError(t, err)
	raw, err := zstdDecoder.DecodeAll(blob, nil)
	require.NoError(t, err)

	tampered := []byte(string(raw))
	for i := len(tampered) - 1; i >= 0; i-- {
		if tampered[i] >= '1' && tampered[i] <= '8' {
			tampered[i]++
			break
		}
	}
	_, err = DecodeArtifact(zstdEncoder.EncodeAll(tampered, nil))
	assert.ErrorIs(t, err, models.ErrCorruptArtifact)
}

func TestModelStoreFileBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "models", "demand.model")
	store := NewModelStore(NewFileArtifactStore(path), "file")

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, models.ErrNotFound)

	tm := trainSmall(t)
	require.NoError(t, store.Save(ctx, tm))
	back, err := store.Load(ctx)
	require.NoError(t, err)

	v := models.FeatureVector{9, 1, 0, 2, 1, 7}
	assert.Equal(t, tm.Predict(v), back.Predict(v))

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestModelStoreSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	backend, err := NewSQLiteArtifactStore(filepath.Join(t.TempDir(), "models.db"), "demand")
	require.NoError(t, err)
	store := NewModelStore(backend, "sqlite")
	defer store.Close()

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, models.ErrNotFound)

	first := trainSmall(t)
	require.NoError(t, store.Save(ctx, first))
	second := trainSmall(t)
	second.RunID = "run-def"
	require.NoError(t, store.Save(ctx, second))

	back, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-def", back.RunID)
}
