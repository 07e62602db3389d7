package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/segmentio/kafka-go"

	"verification-service/models"
)

// Publisher emits verification outcome events for downstream consumers
// (receipts, vendor notifications).
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher over the given comma-separated brokers.
func NewPublisher(brokers, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(brokers, ",")...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishOutcome writes one terminal-outcome event keyed by reference.
func (p *Publisher) PublishOutcome(ctx context.Context, event models.VerificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Reference),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
