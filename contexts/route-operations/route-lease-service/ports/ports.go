package ports

import (
	"context"
	"time"

	contractsv1 "routeops/contracts/gen/events/v1"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
)

// LeaseEvent is the outbound integration payload persisted to outbox with every lease write.
type LeaseEvent struct {
	EventID          string
	EventType        string
	LeaseID          string
	TenantID         string
	Day              string
	Route            string
	HolderID         string
	PreviousHolderID string
	Actor            string
	Reason           string
	PartitionKey     string
	OccurredAt       time.Time
}

// LeaseRepository owns lease persistence. Every write is a compare-and-set on
// RouteLease.Version so concurrent writers of one key cannot both win.
type LeaseRepository interface {
	GetLease(ctx context.Context, key valueobjects.LeaseKey) (entities.RouteLease, bool, error)
	// SaveLeaseWithOutbox inserts the lease when expectedVersion is 0 and otherwise
	// updates it only if the stored version still equals expectedVersion. The lease
	// row and the outbox event commit together. A lost race returns
	// ErrLeaseVersionConflict. The returned lease carries the new version.
	SaveLeaseWithOutbox(
		ctx context.Context,
		lease entities.RouteLease,
		expectedVersion int64,
		event LeaseEvent,
	) (entities.RouteLease, error)
	ListLeasesForDay(ctx context.Context, tenantID string, day string) ([]entities.RouteLease, error)
	ListLeasesHeldBy(ctx context.Context, tenantID string, day string, holderID string) ([]entities.RouteLease, error)
	// TouchHeldLeases refreshes last_heartbeat on leases still held by holderID.
	TouchHeldLeases(ctx context.Context, tenantID string, day string, holderID string, at time.Time) (int, error)
	// ListLeasesByStatus is used by workers sweeping across tenants.
	ListLeasesByStatus(ctx context.Context, status entities.LeaseStatus, days []string, limit int) ([]entities.RouteLease, error)
}

// DeliveryScope selects the delivery rows of one tenant, route membership and day window.
type DeliveryScope struct {
	TenantID    string
	CustomerIDs []string
	From        time.Time
	To          time.Time
}

// HolderMatch selects rows by their current holder. Unassigned matches rows with no holder.
type HolderMatch struct {
	Unassigned bool
	HolderIDs  []string
}

// DeliveryStore is the external delivery collection. All operations only touch unresolved rows.
type DeliveryStore interface {
	CountUnresolved(ctx context.Context, scope DeliveryScope) (int, error)
	AssignUnresolved(ctx context.Context, scope DeliveryScope, match HolderMatch, holderID string) (int, error)
	ClearUnresolvedHolder(ctx context.Context, scope DeliveryScope, holderID string) (int, error)
}

// RouteMembershipResolver maps route names to the customers assigned to them.
type RouteMembershipResolver interface {
	ListRoutes(ctx context.Context, tenantID string) ([]string, error)
	ResolveCustomers(ctx context.Context, tenantID string, route string) ([]string, error)
}

// TenantCalendar pins calendar-day boundaries to the tenant's timezone.
type TenantCalendar interface {
	Location(ctx context.Context, tenantID string) (*time.Location, error)
}

// Clock allows deterministic testing of staleness and day boundaries.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts lease/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Metrics receives operational counters. Implementations must not block.
type Metrics interface {
	RecordLeaseOperation(operation string, outcome string)
	RecordDeliveriesMoved(operation string, count int)
	RecordReconcileRun(leases int, failures int)
	RecordOutboxPublished(count int)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
