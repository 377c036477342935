package repository

import (
	"context"

	"omniscient/internal/domain/models"
	domrepo "omniscient/internal/domain/repository"
	pkgkafka "omniscient/pkg/kafka"
)

// KafkaSignalPublisher ships market signals to a Kafka topic, keyed by
// keyword so per-keyword ordering survives partitioning.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Keyword), s)
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, signals []*models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(signals))
	for _, s := range signals {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(s.Keyword), Value: s})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	return p.producer.Close()
}

// NopSignalPublisher discards signals; used when Kafka is disabled.
type NopSignalPublisher struct{}

func (NopSignalPublisher) Publish(ctx context.Context, s *models.Signal) error { return nil }
func (NopSignalPublisher) PublishBatch(ctx context.Context, signals []*models.Signal) error {
	return nil
}
func (NopSignalPublisher) Close() error { return nil }

var (
	_ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
	_ domrepo.SignalPublisher = NopSignalPublisher{}
)
