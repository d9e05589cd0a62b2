package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	contractsv1 "routeops/contracts/gen/events/v1"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startEmbeddedNATS(t *testing.T) *nats.Conn {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
	})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server not ready")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Timeout(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}

func TestNATSPublisherPublishesEnvelope(t *testing.T) {
	nc := startEmbeddedNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	publisher, err := NewNATSPublisher(ctx, nc, nil)
	require.NoError(t, err)

	sub, err := nc.SubscribeSync("routeops.route_lease.events")
	require.NoError(t, err)

	event := contractsv1.Envelope{
		EventID:       "evt-42",
		EventType:     "route_lease.claimed",
		OccurredAt:    time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		SourceService: "route-lease-service",
		SchemaVersion: 1,
		PartitionKey:  "acme:2026-03-02:north",
		Data:          json.RawMessage(`{"route":"north"}`),
	}
	require.NoError(t, publisher.Publish(ctx, "routeops.route_lease.events", event))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "route_lease.claimed", msg.Header.Get("Event-Type"))

	var decoded contractsv1.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, event.PartitionKey, decoded.PartitionKey)
}

func TestNATSPublisherDeduplicatesByEventID(t *testing.T) {
	nc := startEmbeddedNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	publisher, err := NewNATSPublisher(ctx, nc, nil)
	require.NoError(t, err)

	event := contractsv1.Envelope{EventID: "evt-dup", EventType: "route_lease.released"}
	require.NoError(t, publisher.Publish(ctx, "routeops.route_lease.events", event))
	require.NoError(t, publisher.Publish(ctx, "routeops.route_lease.events", event))

	js, err := jetstream.New(nc)
	require.NoError(t, err)
	stream, err := js.Stream(ctx, DefaultStreamName)
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}
