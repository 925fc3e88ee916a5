package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuditSubject matches every ledger event.
const AuditSubject = "ledger.>"

var auditEventsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bank",
		Subsystem: "audit",
		Name:      "events_received_total",
		Help:      "Ledger events observed by the audit subscriber.",
	},
	[]string{"subject", "result"},
)

// Subscriber is satisfied by messagebroker.NatsClient.
type Subscriber interface {
	Subscribe(ctx context.Context, subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// AuditSubscriber writes every ledger event to the structured log.
type AuditSubscriber struct {
	client Subscriber
	queue  string
	logger *slog.Logger
}

func NewAuditSubscriber(client Subscriber, queue string, logger *slog.Logger) *AuditSubscriber {
	return &AuditSubscriber{client: client, queue: queue, logger: logger.With("component", "audit_subscriber")}
}

// Start subscribes and returns; the subscription is drained when ctx ends.
func (s *AuditSubscriber) Start(ctx context.Context) error {
	_, err := s.client.Subscribe(ctx, AuditSubject, s.queue, func(msg *nats.Msg) {
		s.Handle(ctx, msg.Subject, msg.Data)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Audit subscriber listening", "subject", AuditSubject, "queue", s.queue)
	return nil
}

func (s *AuditSubscriber) Handle(ctx context.Context, subject string, data []byte) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		auditEventsCounter.WithLabelValues(subject, "malformed").Inc()
		s.logger.WarnContext(ctx, "Malformed ledger event", "subject", subject, "error", err, "bytes", len(data))
		return
	}

	attrs := []any{"subject", subject}
	for _, key := range []string{"user_id", "pix_id", "withdrawal_id", "status", "net", "amount"} {
		if v, ok := fields[key]; ok {
			attrs = append(attrs, key, v)
		}
	}
	auditEventsCounter.WithLabelValues(subject, "ok").Inc()
	s.logger.InfoContext(ctx, "Ledger event", attrs...)
}
