package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"routeops/contexts/route-operations/route-lease-service/adapters/calendar"
	"routeops/contexts/route-operations/route-lease-service/adapters/memory"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/services"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
)

const testTenant = "tenant-1"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var queryNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func seededLease(t *testing.T, route string, holder string, status entities.LeaseStatus, heartbeat time.Time) entities.RouteLease {
	t.Helper()
	key, err := valueobjects.NewLeaseKey(testTenant, "2026-03-02", route)
	if err != nil {
		t.Fatalf("lease key: %v", err)
	}
	lease, err := entities.NewFreeLease("lease-"+route, key, queryNow.Add(-time.Hour))
	if err != nil {
		t.Fatalf("free lease: %v", err)
	}
	if holder != "" {
		lease.Assign(holder, "Agent "+holder, heartbeat)
	}
	lease.Status = status
	return lease
}

func newQueryFixture(t *testing.T) (*memory.Store, ListAvailableRoutesUseCase, GetLeaseUseCase) {
	t.Helper()
	store := memory.NewStore(nil)
	cal, err := calendar.NewStaticCalendar("UTC", nil)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	scheduled := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	store.SeedMemberships(
		entities.RouteMembership{TenantID: testTenant, CustomerID: "cust-1", Route: "Alpha"},
		entities.RouteMembership{TenantID: testTenant, CustomerID: "cust-2", Route: "Bravo"},
		entities.RouteMembership{TenantID: testTenant, CustomerID: "cust-3", Route: "Charlie"},
		entities.RouteMembership{TenantID: testTenant, CustomerID: "cust-4", Route: "Delta"},
		entities.RouteMembership{TenantID: "tenant-2", CustomerID: "cust-9", Route: "Other"},
	)
	store.SeedDeliveries(
		entities.DeliveryRecord{DeliveryID: "d-1", TenantID: testTenant, CustomerID: "cust-1", ScheduledFor: scheduled},
		entities.DeliveryRecord{DeliveryID: "d-2", TenantID: testTenant, CustomerID: "cust-1", ScheduledFor: scheduled},
		entities.DeliveryRecord{DeliveryID: "d-3", TenantID: testTenant, CustomerID: "cust-2", ScheduledFor: scheduled},
		entities.DeliveryRecord{DeliveryID: "d-4", TenantID: testTenant, CustomerID: "cust-4", ScheduledFor: scheduled, Resolved: true},
	)
	store.SeedLease(seededLease(t, "Bravo", "agent-a", entities.LeaseStatusHeld, queryNow.Add(-15*time.Minute)))
	store.SeedLease(seededLease(t, "Delta", "agent-b", entities.LeaseStatusCompleted, queryNow.Add(-time.Hour)))
	store.SeedLease(seededLease(t, "Echo", "agent-b", entities.LeaseStatusHeld, queryNow.Add(-time.Minute)))

	clock := fixedClock{now: queryNow}
	staleness := services.StalenessPolicy{Threshold: 10 * time.Minute}
	list := ListAvailableRoutesUseCase{
		Leases: store, Deliveries: store, Routes: store, Calendar: cal, Clock: clock, Staleness: staleness,
	}
	get := GetLeaseUseCase{Leases: store, Calendar: cal, Clock: clock, Staleness: staleness}
	return store, list, get
}

func TestListAvailableRoutesBuildsView(t *testing.T) {
	_, list, _ := newQueryFixture(t)

	result, err := list.Execute(context.Background(), ListAvailableRoutesQuery{TenantID: testTenant, AgentID: "agent-a"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Day != "2026-03-02" {
		t.Fatalf("expected day resolved from clock, got %s", result.Day)
	}

	want := []RouteAvailability{
		{Route: "alpha", PendingCount: 2, Status: AvailabilityFree},
		{Route: "bravo", PendingCount: 1, Status: AvailabilityHeld, HolderID: "agent-a", HolderName: "Agent agent-a", Stale: true, HeldByMe: true},
		{Route: "charlie", PendingCount: 0, Status: AvailabilityEmpty},
		{Route: "delta", PendingCount: 0, Status: AvailabilityCompleted, HolderID: "agent-b", HolderName: "Agent agent-b"},
		{Route: "echo", PendingCount: 0, Status: AvailabilityEmpty, HolderID: "agent-b", HolderName: "Agent agent-b"},
	}
	if len(result.Items) != len(want) {
		t.Fatalf("expected %d items, got %d: %+v", len(want), len(result.Items), result.Items)
	}
	for i := range want {
		if result.Items[i] != want[i] {
			t.Fatalf("item %d: want %+v, got %+v", i, want[i], result.Items[i])
		}
	}
}

func TestListAvailableRoutesHeldByMeOnlyForHolder(t *testing.T) {
	_, list, _ := newQueryFixture(t)

	result, err := list.Execute(context.Background(), ListAvailableRoutesQuery{TenantID: testTenant, AgentID: "agent-z"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, item := range result.Items {
		if item.HeldByMe {
			t.Fatalf("expected no route held by agent-z, got %+v", item)
		}
	}
}

func TestListAvailableRoutesOtherDayIsFree(t *testing.T) {
	_, list, _ := newQueryFixture(t)

	result, err := list.Execute(context.Background(), ListAvailableRoutesQuery{TenantID: testTenant, Day: "2026-03-03"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Items) != 4 {
		t.Fatalf("expected only membership routes on a day without leases, got %+v", result.Items)
	}
	for _, item := range result.Items {
		if item.Status != AvailabilityEmpty || item.HolderID != "" {
			t.Fatalf("expected empty unheld routes, got %+v", item)
		}
	}
}

func TestListAvailableRoutesRejectsBlankTenant(t *testing.T) {
	_, list, _ := newQueryFixture(t)
	if _, err := list.Execute(context.Background(), ListAvailableRoutesQuery{}); !errors.Is(err, domainerrors.ErrInvalidLeaseRequest) {
		t.Fatalf("expected ErrInvalidLeaseRequest, got %v", err)
	}
}

func TestGetLeaseReportsStaleness(t *testing.T) {
	_, _, get := newQueryFixture(t)

	result, err := get.Execute(context.Background(), GetLeaseQuery{TenantID: testTenant, Route: " BRAVO "})
	if err != nil {
		t.Fatalf("get lease failed: %v", err)
	}
	if result.Lease.HolderID != "agent-a" || !result.Stale {
		t.Fatalf("unexpected result: %+v", result)
	}

	completed, err := get.Execute(context.Background(), GetLeaseQuery{TenantID: testTenant, Route: "delta"})
	if err != nil {
		t.Fatalf("get lease failed: %v", err)
	}
	if completed.Stale {
		t.Fatalf("expected completed lease never reported stale")
	}
}

func TestGetLeaseNotFound(t *testing.T) {
	_, _, get := newQueryFixture(t)
	if _, err := get.Execute(context.Background(), GetLeaseQuery{TenantID: testTenant, Route: "alpha"}); !errors.Is(err, domainerrors.ErrLeaseNotFound) {
		t.Fatalf("expected ErrLeaseNotFound, got %v", err)
	}
}
