package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"routeops/contexts/route-operations/route-lease-service/adapters/calendar"
	"routeops/contexts/route-operations/route-lease-service/adapters/memory"
	"routeops/contexts/route-operations/route-lease-service/application/reassignment"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

var workerNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.EventEnvelope
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	p.topics = append(p.topics, topic)
	return nil
}

type recordingMetrics struct {
	published       int
	reconcileLeases int
	reconcileFails  int
}

func (m *recordingMetrics) RecordLeaseOperation(string, string) {}
func (m *recordingMetrics) RecordDeliveriesMoved(string, int) {}
func (m *recordingMetrics) RecordReconcileRun(leases int, failures int) {
	m.reconcileLeases += leases
	m.reconcileFails += failures
}
func (m *recordingMetrics) RecordOutboxPublished(count int) { m.published += count }

func saveHeldLease(t *testing.T, store *memory.Store, route string, holder string, eventID string) {
	t.Helper()
	key, err := valueobjects.NewLeaseKey("tenant-1", valueobjects.DayKey(workerNow, time.UTC), route)
	if err != nil {
		t.Fatalf("lease key: %v", err)
	}
	lease, err := entities.NewFreeLease("lease-"+route, key, workerNow)
	if err != nil {
		t.Fatalf("free lease: %v", err)
	}
	lease.Assign(holder, "", workerNow)
	_, err = store.SaveLeaseWithOutbox(context.Background(), lease, 0, ports.LeaseEvent{
		EventID:      eventID,
		EventType:    ports.EventTypeLeaseClaimed,
		LeaseID:      lease.LeaseID,
		TenantID:     lease.TenantID,
		Day:          lease.Day,
		Route:        lease.Route,
		HolderID:     holder,
		PartitionKey: key.String(),
		OccurredAt:   workerNow,
	})
	if err != nil {
		t.Fatalf("save lease: %v", err)
	}
}

func TestOutboxRelayPublishesPendingInOrder(t *testing.T) {
	store := memory.NewStore(nil)
	saveHeldLease(t, store, "r1", "agent-a", "evt-1")
	saveHeldLease(t, store, "r2", "agent-b", "evt-2")

	publisher := &recordingPublisher{}
	metrics := &recordingMetrics{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: fixedClock{now: workerNow}, Metrics: metrics}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if len(publisher.events) != 2 || publisher.events[0].EventID != "evt-1" || publisher.events[1].EventID != "evt-2" {
		t.Fatalf("unexpected published events: %+v", publisher.events)
	}
	if publisher.topics[0] != DefaultLeaseEventsTopic {
		t.Fatalf("expected default topic, got %s", publisher.topics[0])
	}
	if publisher.events[0].PartitionKey != "tenant-1:2026-03-02:r1" {
		t.Fatalf("unexpected partition key %q", publisher.events[0].PartitionKey)
	}
	if metrics.published != 2 {
		t.Fatalf("expected 2 published in metrics, got %d", metrics.published)
	}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay failed: %v", err)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected sent rows not to be republished, got %d events", len(publisher.events))
	}
}

func TestOutboxRelayKeepsRowsPendingOnPublishFailure(t *testing.T) {
	store := memory.NewStore(nil)
	saveHeldLease(t, store, "r1", "agent-a", "evt-1")

	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Topic: "custom.topic"}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure")
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected row to stay pending, got %d err=%v", len(pending), err)
	}

	publisher.err = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(publisher.events) != 1 || publisher.topics[0] != "custom.topic" {
		t.Fatalf("expected retry to publish to custom topic, got %+v", publisher.topics)
	}
}

func newReconciler(t *testing.T, store *memory.Store, metrics *recordingMetrics) ReassignmentReconciler {
	t.Helper()
	cal, err := calendar.NewStaticCalendar("UTC", nil)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return ReassignmentReconciler{
		Leases:       store,
		Reassignment: reassignment.Engine{Deliveries: store, Routes: store, Calendar: cal},
		Clock:        fixedClock{now: workerNow},
		Metrics:      metrics,
	}
}

func seedRoute(store *memory.Store) {
	scheduled := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	store.SeedMemberships(
		entities.RouteMembership{TenantID: "tenant-1", CustomerID: "cust-1", Route: "r1"},
	)
	store.SeedDeliveries(
		entities.DeliveryRecord{DeliveryID: "d-1", TenantID: "tenant-1", CustomerID: "cust-1", ScheduledFor: scheduled},
		entities.DeliveryRecord{DeliveryID: "d-2", TenantID: "tenant-1", CustomerID: "cust-1", ScheduledFor: scheduled, HolderID: "agent-z"},
	)
}

func TestReassignmentReconcilerRepairsHolders(t *testing.T) {
	store := memory.NewStore(nil)
	seedRoute(store)
	saveHeldLease(t, store, "r1", "agent-a", "evt-1")

	metrics := &recordingMetrics{}
	reconciler := newReconciler(t, store, metrics)
	if err := reconciler.RunOnce(context.Background()); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	deliveries := store.Deliveries()
	if deliveries[0].HolderID != "agent-a" {
		t.Fatalf("expected unassigned delivery repaired to agent-a, got %q", deliveries[0].HolderID)
	}
	if deliveries[1].HolderID != "agent-z" {
		t.Fatalf("expected foreign holder untouched, got %q", deliveries[1].HolderID)
	}
	if metrics.reconcileLeases != 1 || metrics.reconcileFails != 0 {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}

	if err := reconciler.RunOnce(context.Background()); err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}
	if got := store.Deliveries()[0].HolderID; got != "agent-a" {
		t.Fatalf("expected idempotent reconcile, got %q", got)
	}
}

func TestReassignmentReconcilerCountsFailures(t *testing.T) {
	store := memory.NewStore(nil)
	seedRoute(store)
	saveHeldLease(t, store, "r1", "agent-a", "evt-1")
	store.FailDeliveryWrites(errors.New("delivery store down"))

	metrics := &recordingMetrics{}
	if err := newReconciler(t, store, metrics).RunOnce(context.Background()); err != nil {
		t.Fatalf("expected failures to be absorbed, got %v", err)
	}
	if metrics.reconcileFails != 1 {
		t.Fatalf("expected one failure recorded, got %d", metrics.reconcileFails)
	}
}

// snapshotLeases hands the reconciler its listing, then runs afterList before
// the reconciler acts on it.
type snapshotLeases struct {
	*memory.Store
	afterList func()
}

func (s snapshotLeases) ListLeasesByStatus(
	ctx context.Context,
	status entities.LeaseStatus,
	days []string,
	limit int,
) ([]entities.RouteLease, error) {
	leases, err := s.Store.ListLeasesByStatus(ctx, status, days, limit)
	if s.afterList != nil {
		s.afterList()
	}
	return leases, err
}

func TestReassignmentReconcilerSkipsLeaseReleasedAfterListing(t *testing.T) {
	store := memory.NewStore(nil)
	seedRoute(store)
	saveHeldLease(t, store, "r1", "agent-a", "evt-1")

	metrics := &recordingMetrics{}
	reconciler := newReconciler(t, store, metrics)
	reconciler.Leases = snapshotLeases{Store: store, afterList: func() {
		ctx := context.Background()
		key, err := valueobjects.NewLeaseKey("tenant-1", valueobjects.DayKey(workerNow, time.UTC), "r1")
		if err != nil {
			t.Fatalf("lease key: %v", err)
		}
		current, _, err := store.GetLease(ctx, key)
		if err != nil {
			t.Fatalf("get lease: %v", err)
		}
		released := current.Clone()
		released.Vacate(workerNow)
		if _, err := store.SaveLeaseWithOutbox(ctx, released, current.Version, ports.LeaseEvent{
			EventID:      "evt-2",
			EventType:    ports.EventTypeLeaseReleased,
			LeaseID:      current.LeaseID,
			TenantID:     current.TenantID,
			Day:          current.Day,
			Route:        current.Route,
			PartitionKey: key.String(),
			OccurredAt:   workerNow,
		}); err != nil {
			t.Fatalf("release lease: %v", err)
		}
		if _, err := reconciler.Reassignment.UnassignHolder(ctx, key, "agent-a"); err != nil {
			t.Fatalf("unassign: %v", err)
		}
	}}

	if err := reconciler.RunOnce(context.Background()); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	for _, delivery := range store.Deliveries() {
		if delivery.HolderID == "agent-a" {
			t.Fatalf("delivery %s handed back to released holder agent-a", delivery.DeliveryID)
		}
	}
	if metrics.reconcileFails != 0 {
		t.Fatalf("expected no failures, got %d", metrics.reconcileFails)
	}
}

func TestReassignmentReconcilerMovesRowsOfPreviousHolder(t *testing.T) {
	store := memory.NewStore(nil)
	seedRoute(store)

	key, err := valueobjects.NewLeaseKey("tenant-1", valueobjects.DayKey(workerNow, time.UTC), "r1")
	if err != nil {
		t.Fatalf("lease key: %v", err)
	}
	lease, err := entities.NewFreeLease("lease-r1", key, workerNow)
	if err != nil {
		t.Fatalf("free lease: %v", err)
	}
	lease.Assign("agent-z", "", workerNow.Add(-time.Hour))
	lease.Vacate(workerNow.Add(-30 * time.Minute))
	lease.Assign("agent-a", "", workerNow)
	if _, err := store.SaveLeaseWithOutbox(context.Background(), lease, 0, ports.LeaseEvent{
		EventID:      "evt-1",
		EventType:    ports.EventTypeLeaseClaimed,
		LeaseID:      lease.LeaseID,
		TenantID:     lease.TenantID,
		Day:          lease.Day,
		Route:        lease.Route,
		HolderID:     "agent-a",
		PartitionKey: key.String(),
		OccurredAt:   workerNow,
	}); err != nil {
		t.Fatalf("save lease: %v", err)
	}

	if err := newReconciler(t, store, &recordingMetrics{}).RunOnce(context.Background()); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	for _, delivery := range store.Deliveries() {
		if delivery.HolderID != "agent-a" {
			t.Fatalf("expected %s moved to agent-a, got %q", delivery.DeliveryID, delivery.HolderID)
		}
	}
}
