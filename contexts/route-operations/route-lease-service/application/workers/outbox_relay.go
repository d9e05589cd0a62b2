package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

// DefaultLeaseEventsTopic is the subject lease transitions are relayed to.
const DefaultLeaseEventsTopic = "routeops.route_lease.events"

type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Metrics   ports.Metrics
	Logger    *slog.Logger
}

// RunOnce publishes one batch of pending outbox rows in creation order. It stops at
// the first failure so later rows are never published ahead of an earlier one.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = DefaultLeaseEventsTopic
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			"event", "route_lease_outbox_list_failed",
			"module", "route-operations/route-lease-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	sent := 0
	defer func() {
		application.ResolveMetrics(r.Metrics).RecordOutboxPublished(sent)
	}()

	for _, message := range pending {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			logger.Error("outbox payload decode failed",
				"event", "route_lease_outbox_decode_failed",
				"module", "route-operations/route-lease-service",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}

		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("outbox publish failed",
				"event", "route_lease_outbox_publish_failed",
				"module", "route-operations/route-lease-service",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxSent(ctx, message.OutboxID, now); err != nil {
			logger.Error("outbox mark sent failed",
				"event", "route_lease_outbox_mark_sent_failed",
				"module", "route-operations/route-lease-service",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		sent++
	}

	if sent > 0 {
		logger.Info("outbox relay cycle completed",
			"event", "route_lease_outbox_relay_completed",
			"module", "route-operations/route-lease-service",
			"layer", "worker",
			"topic", topic,
			"sent_count", sent,
		)
	}
	return nil
}
