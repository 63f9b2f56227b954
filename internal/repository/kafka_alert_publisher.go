package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"
)

// KafkaAlertPublisher mirrors emitted alerts onto Kafka, keyed by symbol so
// consumers see per-symbol ordering.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertPublisher creates the Kafka alert publisher.
func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) repository.AlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, a models.AlertCandidate) error {
	return p.producer.Publish(ctx, p.topic, []byte(a.Key.Symbol), map[string]interface{}{
		"symbol":    a.Key.Symbol,
		"timeframe": a.Key.Timeframe,
		"family":    string(a.Key.Family),
		"severity":  a.Severity.String(),
		"condition": a.Condition,
		"value":     a.Value,
		"price":     a.Price,
		"ref_price": a.RefPrice,
		"fired_at":  a.FiredAt.UnixMilli(),
	})
}

func (p *KafkaAlertPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
