package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// RawPublisher is satisfied by messagebroker.NatsClient.
type RawPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NatsEventPublisher encodes domain events as JSON and publishes them on NATS.
type NatsEventPublisher struct {
	client RawPublisher
	logger *slog.Logger
}

func NewNatsEventPublisher(client RawPublisher, logger *slog.Logger) *NatsEventPublisher {
	return &NatsEventPublisher{client: client, logger: logger.With("component", "event_publisher")}
}

func (p *NatsEventPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", subject, err)
	}
	if err := p.client.Publish(ctx, subject, data); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "Event published", "subject", subject, "bytes", len(data))
	return nil
}
