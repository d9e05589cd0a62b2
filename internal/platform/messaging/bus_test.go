package messaging

import (
	"context"
	"testing"
	"time"

	contractsv1 "routeops/contracts/gen/events/v1"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(nil)
	received := make(chan contractsv1.Envelope, 1)
	require.NoError(t, bus.Subscribe(ctx, "routeops.route_lease.events", "test", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "routeops.route_lease.events", contractsv1.Envelope{
		EventID:   "evt-1",
		EventType: "route_lease.claimed",
	}))

	select {
	case event := <-received:
		require.Equal(t, "evt-1", event.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(nil)
	err := bus.Publish(context.Background(), "nobody.listens", contractsv1.Envelope{EventID: "evt-2"})
	require.ErrorIs(t, err, ErrNoSubscribers)
}
