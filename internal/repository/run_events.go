package repository

import (
	"context"
	"fmt"

	"CargoCast/internal/domain/models"
	pkgkafka "CargoCast/pkg/kafka"
	applogger "CargoCast/pkg/logger"
)

// KafkaRunEvents publishes run lifecycle transitions to a Kafka topic, keyed
// by run ID so one run's events stay in order on a single partition.
type KafkaRunEvents struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaRunEvents(producer *pkgkafka.Producer, topic string, l *applogger.Logger) *KafkaRunEvents {
	return &KafkaRunEvents{producer: producer, topic: topic, l: l}
}

func (p *KafkaRunEvents) Publish(ctx context.Context, ev models.RunEvent) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.RunID), ev); err != nil {
		if p.l != nil {
			p.l.Error("run event publish failed",
				applogger.String("run_id", ev.RunID),
				applogger.String("status", string(ev.Status)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish run event: %w", err)
	}
	return nil
}

func (p *KafkaRunEvents) Close() error {
	return p.producer.Close()
}

// NopRunEvents drops all events. Used when no broker is configured.
type NopRunEvents struct{}

func (NopRunEvents) Publish(context.Context, models.RunEvent) error { return nil }
func (NopRunEvents) Close() error                                   { return nil }
