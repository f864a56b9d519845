package usecase

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/repository"
	"DemandCast/internal/services/dataset"
	"DemandCast/pkg/cache"
	"DemandCast/pkg/logger"
	"DemandCast/pkg/metrics"

	"github.com/stretchr/testify/require"
)

func fastParams() models.Hyperparams {
	p := models.DefaultHyperparams()
	p.NEstimators = 30
	return p
}

func writeDataset(t *testing.T, n int, seed int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demand.csv")
	require.NoError(t, dataset.WriteCSVFile(path, dataset.GenerateSynthetic(n, seed)))
	return path
}

func newFileStore(t *testing.T) *repository.ModelStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models", "model.bin")
	return repository.NewModelStore(repository.NewFileArtifactStore(path), "file")
}

type fixture struct {
	store     *repository.ModelStore
	trainer   *Trainer
	predictor *Predictor
	service   *ForecastService
	cache     *cache.MemoryCache
	dataPath  string
}

func newFixture(t *testing.T, params models.Hyperparams, rows int) *fixture {
	t.Helper()
	store := newFileStore(t)
	trainer, err := NewTrainer(store, params, logger.Nop(), metrics.Nop{})
	require.NoError(t, err)
	predictor := NewPredictor(logger.Nop(), metrics.Nop{})
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	f := &fixture{
		store:     store,
		trainer:   trainer,
		predictor: predictor,
		cache:     mc,
		dataPath:  writeDataset(t, rows, 7),
	}
	f.service = NewForecastService(
		ForecastConfig{DataPath: f.dataPath, TestSize: 0.2, StatsTTL: time.Minute},
		trainer, predictor, store, nil, nil, mc, logger.Nop(), metrics.Nop{},
	)
	return f
}

func request(productID, month, dow int, price float64, promo, stock int) map[string]any {
	return map[string]any{
		models.ColProductID: productID,
		models.ColMonth:     month,
		models.ColDayOfWeek: dow,
		models.ColPrice:     price,
		models.ColPromotion: promo,
		models.ColStock:     stock,
	}
}

type memPublisher struct {
	mu      sync.Mutex
	records []models.PredictionRecord
	err     error
	closed  bool
}

func (p *memPublisher) PublishBatch(_ context.Context, records []models.PredictionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, records...)
	return nil
}

func (p *memPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *memPublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

type memStorage struct {
	memPublisher
}

func (s *memStorage) Init(context.Context) error { return nil }

func (s *memStorage) StoreBatch(ctx context.Context, records []models.PredictionRecord) error {
	return s.PublishBatch(ctx, records)
}

func (s *memStorage) Health(context.Context) error { return nil }

type memEvents struct {
	events []models.ModelTrainedEvent
}

func (e *memEvents) PublishModelTrained(_ context.Context, ev models.ModelTrainedEvent) error {
	e.events = append(e.events, ev)
	return nil
}
