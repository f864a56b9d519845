package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/services/features"
	pkgkafka "DemandCast/pkg/kafka"
)

// AuditLogHandler consumes prediction records from Kafka and writes them to
// the analytical store.
type AuditLogHandler struct {
	topic   string
	storage drepo.PredictionStorage
	metrics drepo.Metrics
}

func NewAuditLogHandler(topic string, storage drepo.PredictionStorage, metrics drepo.Metrics) *AuditLogHandler {
	return &AuditLogHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *AuditLogHandler) Topic() string { return h.topic }

// Handle decodes one record. Malformed payloads are returned as errors so
// the consumer retries and then dead-letters them.
func (h *AuditLogHandler) Handle(ctx context.Context, b []byte) error {
	var r models.PredictionRecord
	if err := json.Unmarshal(b, &r); err != nil {
		h.metrics.RecordError("audit_unmarshal")
		return fmt.Errorf("decode prediction record: %w", err)
	}
	if _, err := features.EncodeFloats(r.Features); err != nil {
		h.metrics.RecordError("audit_schema")
		return fmt.Errorf("prediction record %s: %w", r.RunID, err)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	if err := h.storage.StoreBatch(ctx, []models.PredictionRecord{r}); err != nil {
		h.metrics.RecordError("audit_store")
		return err
	}
	h.metrics.RecordAuditSent(AuditClickHouse, 1)
	return nil
}

var _ pkgkafka.MessageHandler = (*AuditLogHandler)(nil)
