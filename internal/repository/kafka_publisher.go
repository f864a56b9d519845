package repository

import (
	"context"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/repository"
	pkgkafka "DemandCast/pkg/kafka"
)

// KafkaPredictionPublisher implements PredictionPublisher.
type KafkaPredictionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPredictionPublisher(producer *pkgkafka.Producer, topic string) repository.PredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

func (p *KafkaPredictionPublisher) PublishBatch(ctx context.Context, records []models.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(records))
	for i, r := range records {
		msgs[i] = pkgkafka.Message{Key: []byte(r.RunID), Value: r}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared with the event publisher.
func (p *KafkaPredictionPublisher) Close() error { return nil }

// KafkaEventPublisher implements EventPublisher.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishModelTrained(ctx context.Context, ev models.ModelTrainedEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.RunID), ev)
}
