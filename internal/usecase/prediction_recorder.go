package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/pkg/logger"
)

// Audit backends accepted by PredictionRecorder.
const (
	AuditNone       = "none"
	AuditKafka      = "kafka"
	AuditClickHouse = "clickhouse"
)

// PredictionRecorder buffers served predictions and routes them to the
// configured backend in batches. Recording never blocks a prediction: when
// the buffer is full the record is dropped and counted.
type PredictionRecorder struct {
	pub     drepo.PredictionPublisher
	store   drepo.PredictionStorage
	metrics drepo.Metrics
	logger  *logger.Logger
	backend string
	batchSz int
	batchTO time.Duration

	in       chan models.PredictionRecord
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	done     chan struct{}
	started  bool
}

// NewPredictionRecorder creates a recorder. pub or store may be nil when the
// backend does not use them.
func NewPredictionRecorder(
	pub drepo.PredictionPublisher,
	store drepo.PredictionStorage,
	metrics drepo.Metrics,
	l *logger.Logger,
	backend string,
	batchSz int,
	batchTO time.Duration,
	bufferSz int,
) (*PredictionRecorder, error) {
	switch backend {
	case "", AuditNone:
		backend = AuditNone
	case AuditKafka:
		if pub == nil {
			return nil, fmt.Errorf("audit backend kafka needs a publisher")
		}
	case AuditClickHouse:
		if store == nil {
			return nil, fmt.Errorf("audit backend clickhouse needs a storage")
		}
	default:
		return nil, fmt.Errorf("unknown audit backend: %s", backend)
	}
	if batchSz <= 0 {
		batchSz = 500
	}
	if batchTO <= 0 {
		batchTO = 2 * time.Second
	}
	if bufferSz < batchSz {
		bufferSz = batchSz
	}
	return &PredictionRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		logger:  l,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
		in:      make(chan models.PredictionRecord, bufferSz),
		done:    make(chan struct{}),
	}, nil
}

// Backend names where records go.
func (p *PredictionRecorder) Backend() string { return p.backend }

// Enabled is false for the none backend.
func (p *PredictionRecorder) Enabled() bool { return p.backend != AuditNone }

// Start launches the flush loop. It is a no-op for the none backend.
func (p *PredictionRecorder) Start() {
	if !p.Enabled() || p.started {
		return
	}
	p.started = true
	go p.loop()
}

// Record queues one record without blocking.
func (p *PredictionRecorder) Record(r models.PredictionRecord) {
	if !p.Enabled() {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.in <- r:
	default:
		p.metrics.RecordError("audit_dropped")
	}
}

func (p *PredictionRecorder) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.batchTO)
	defer ticker.Stop()

	batch := make([]models.PredictionRecord, 0, p.batchSz)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.ProcessBatch(ctx, batch); err != nil {
			p.logger.Error("audit flush failed",
				logger.String("backend", p.backend),
				logger.Int("records", len(batch)),
				logger.Error(err))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case r, ok := <-p.in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, r)
			if len(batch) >= p.batchSz {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// ProcessBatch writes records to the configured backend synchronously.
func (p *PredictionRecorder) ProcessBatch(ctx context.Context, records []models.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	var err error
	switch p.backend {
	case AuditKafka:
		err = p.pub.PublishBatch(ctx, records)
	case AuditClickHouse:
		err = p.store.StoreBatch(ctx, records)
	case AuditNone:
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("audit_" + p.backend)
		return fmt.Errorf("process audit batch: %w", err)
	}
	p.metrics.RecordAuditSent(p.backend, len(records))
	return nil
}

// Close drains the buffer and closes the backend.
func (p *PredictionRecorder) Close() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.in)
		p.mu.Unlock()
		if p.started {
			<-p.done
		}
		if p.pub != nil {
			_ = p.pub.Close()
		}
		if p.store != nil {
			_ = p.store.Close()
		}
	})
}
