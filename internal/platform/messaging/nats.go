package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	contractsv1 "routeops/contracts/gen/events/v1"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultStreamName is the JetStream stream that captures every routeops subject.
const DefaultStreamName = "ROUTEOPS_EVENTS"

// NATSPublisher publishes envelopes to JetStream. The envelope event id is used
// as the message id, so a relay retry after a lost ack is deduplicated by the server.
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	owned  bool
	logger *slog.Logger
}

// ConnectNATS dials url and ensures the stream exists.
func ConnectNATS(ctx context.Context, url string, logger *slog.Logger) (*NATSPublisher, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	conn, err := nats.Connect(url,
		nats.Name("routeops"),
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	publisher, err := NewNATSPublisher(ctx, conn, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher.owned = true
	return publisher, nil
}

// NewNATSPublisher wraps an existing connection. The caller keeps ownership of conn.
func NewNATSPublisher(ctx context.Context, conn *nats.Conn, logger *slog.Logger) (*NATSPublisher, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       DefaultStreamName,
		Subjects:   []string{"routeops.>"},
		Duplicates: 10 * time.Minute,
	}); err != nil {
		return nil, fmt.Errorf("ensure jetstream stream: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, js: js, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	msg := nats.NewMsg(topic)
	msg.Data = payload
	msg.Header.Set("Event-Type", event.EventType)
	msg.Header.Set("Partition-Key", event.PartitionKey)

	ack, err := p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(event.EventID))
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.EventID, topic, err)
	}

	p.logger.Debug("event published",
		"event", "nats_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate,
	)
	return nil
}

func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil || !p.owned {
		return nil
	}
	return p.conn.Drain()
}
