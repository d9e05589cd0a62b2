package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

// Store is an in-memory adapter implementing the lease, delivery, membership and
// outbox ports for local runtime and tests. Lease writes follow the same
// compare-and-set contract as the SQL repository.
// It is not intended as production persistence.
type Store struct {
	mu            sync.RWMutex
	leases        map[string]entities.RouteLease
	deliveries    map[string]entities.DeliveryRecord
	deliveryOrder []string
	memberships   []entities.RouteMembership
	outbox        map[string]ports.OutboxMessage
	outboxOrder   []string
	outboxSent    map[string]time.Time
	sequence      uint64
	logger        *slog.Logger

	deliveryWriteErr error
	leaseTouchErr    error
	beforeLeaseWrite func(entities.RouteLease)
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		leases:      make(map[string]entities.RouteLease),
		deliveries:  make(map[string]entities.DeliveryRecord),
		outbox:      make(map[string]ports.OutboxMessage),
		outboxOrder: make([]string, 0),
		outboxSent:  make(map[string]time.Time),
		logger:      application.ResolveLogger(logger),
	}
}

func (s *Store) GetLease(_ context.Context, key valueobjects.LeaseKey) (entities.RouteLease, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lease, ok := s.leases[key.String()]
	if !ok {
		return entities.RouteLease{}, false, nil
	}
	return lease.Clone(), true, nil
}

func (s *Store) SaveLeaseWithOutbox(
	_ context.Context,
	lease entities.RouteLease,
	expectedVersion int64,
	event ports.LeaseEvent,
) (entities.RouteLease, error) {
	if err := lease.CheckInvariant(); err != nil {
		return entities.RouteLease{}, err
	}
	envelope, err := event.Envelope()
	if err != nil {
		return entities.RouteLease{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return entities.RouteLease{}, err
	}

	if hook := s.leaseWriteHook(); hook != nil {
		hook(lease.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := lease.Key().String()
	existing, exists := s.leases[id]
	switch {
	case expectedVersion == 0 && exists:
		return entities.RouteLease{}, domainerrors.ErrLeaseVersionConflict
	case expectedVersion > 0 && (!exists || existing.Version != expectedVersion):
		return entities.RouteLease{}, domainerrors.ErrLeaseVersionConflict
	}
	if _, dup := s.outbox[event.EventID]; dup {
		return entities.RouteLease{}, domainerrors.ErrRepositoryInvariantBroke
	}

	saved := lease.Clone()
	saved.Version = expectedVersion + 1
	if exists {
		saved.LeaseID = existing.LeaseID
		saved.CreatedAt = existing.CreatedAt
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = event.OccurredAt.UTC()
	}
	s.leases[id] = saved

	s.outbox[event.EventID] = ports.OutboxMessage{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	s.outboxOrder = append(s.outboxOrder, event.EventID)

	s.logger.Debug("lease and outbox persisted in memory store",
		"event", "memory_save_lease_with_outbox",
		"module", "route-operations/route-lease-service",
		"layer", "adapter",
		"lease_id", saved.LeaseID,
		"route", saved.Route,
		"status", saved.Status,
		"version", saved.Version,
		"outbox_event_id", event.EventID,
	)
	return saved.Clone(), nil
}

func (s *Store) ListLeasesForDay(_ context.Context, tenantID string, day string) ([]entities.RouteLease, error) {
	return s.filterLeases(func(l entities.RouteLease) bool {
		return l.TenantID == tenantID && l.Day == day
	}, 0), nil
}

func (s *Store) ListLeasesHeldBy(_ context.Context, tenantID string, day string, holderID string) ([]entities.RouteLease, error) {
	return s.filterLeases(func(l entities.RouteLease) bool {
		return l.TenantID == tenantID && l.Day == day && l.HeldBy(holderID)
	}, 0), nil
}

func (s *Store) ListLeasesByStatus(
	_ context.Context,
	status entities.LeaseStatus,
	days []string,
	limit int,
) ([]entities.RouteLease, error) {
	daySet := make(map[string]struct{}, len(days))
	for _, day := range days {
		daySet[day] = struct{}{}
	}
	return s.filterLeases(func(l entities.RouteLease) bool {
		_, ok := daySet[l.Day]
		return ok && l.Status == status
	}, limit), nil
}

func (s *Store) TouchHeldLeases(_ context.Context, tenantID string, day string, holderID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.leaseTouchErr != nil {
		return 0, s.leaseTouchErr
	}
	touched := 0
	for id, lease := range s.leases {
		if lease.TenantID != tenantID || lease.Day != day || !lease.HeldBy(holderID) {
			continue
		}
		lease.Touch(at)
		lease.Version++
		s.leases[id] = lease
		touched++
	}
	return touched, nil
}

func (s *Store) CountUnresolved(_ context.Context, scope ports.DeliveryScope) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := memberSet(scope.CustomerIDs)
	count := 0
	for _, record := range s.deliveries {
		if inScope(record, scope, members) {
			count++
		}
	}
	return count, nil
}

// AssignUnresolved skips rows already held by holderID so the count reflects
// rows that actually moved.
func (s *Store) AssignUnresolved(
	_ context.Context,
	scope ports.DeliveryScope,
	match ports.HolderMatch,
	holderID string,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deliveryWriteErr != nil {
		return 0, s.deliveryWriteErr
	}
	members := memberSet(scope.CustomerIDs)
	holders := memberSet(match.HolderIDs)
	moved := 0
	for id, record := range s.deliveries {
		if !inScope(record, scope, members) || record.HolderID == holderID {
			continue
		}
		_, matchedHolder := holders[record.HolderID]
		if !(match.Unassigned && record.HolderID == "") && !(record.HolderID != "" && matchedHolder) {
			continue
		}
		record.HolderID = holderID
		s.deliveries[id] = record
		moved++
	}
	return moved, nil
}

func (s *Store) ClearUnresolvedHolder(_ context.Context, scope ports.DeliveryScope, holderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deliveryWriteErr != nil {
		return 0, s.deliveryWriteErr
	}
	if holderID == "" {
		return 0, nil
	}
	members := memberSet(scope.CustomerIDs)
	cleared := 0
	for id, record := range s.deliveries {
		if !inScope(record, scope, members) || record.HolderID != holderID {
			continue
		}
		record.HolderID = ""
		s.deliveries[id] = record
		cleared++
	}
	return cleared, nil
}

func (s *Store) ListRoutes(_ context.Context, tenantID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	routes := make([]string, 0)
	for _, member := range s.memberships {
		route := valueobjects.NormalizeRoute(member.Route)
		if member.TenantID != tenantID || route == "" {
			continue
		}
		if _, ok := seen[route]; ok {
			continue
		}
		seen[route] = struct{}{}
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes, nil
}

func (s *Store) ResolveCustomers(_ context.Context, tenantID string, route string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	route = valueobjects.NormalizeRoute(route)
	customers := make([]string, 0)
	for _, member := range s.memberships {
		if member.TenantID == tenantID && valueobjects.NormalizeRoute(member.Route) == route {
			customers = append(customers, member.CustomerID)
		}
	}
	sort.Strings(customers)
	return customers, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		if msg, ok := s.outbox[id]; ok {
			messages = append(messages, msg)
		}
		if len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("rl-%d", value), nil
}

// SeedMemberships registers route members for a tenant.
func (s *Store) SeedMemberships(members ...entities.RouteMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, members...)
}

func (s *Store) SeedDeliveries(records ...entities.DeliveryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		if _, ok := s.deliveries[record.DeliveryID]; !ok {
			s.deliveryOrder = append(s.deliveryOrder, record.DeliveryID)
		}
		record.ScheduledFor = record.ScheduledFor.UTC()
		s.deliveries[record.DeliveryID] = record
	}
}

// SeedLease stores a lease as-is, bypassing the version check.
func (s *Store) SeedLease(lease entities.RouteLease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lease.Version <= 0 {
		lease.Version = 1
	}
	s.leases[lease.Key().String()] = lease.Clone()
}

// Deliveries returns a snapshot in seed order.
func (s *Store) Deliveries() []entities.DeliveryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]entities.DeliveryRecord, 0, len(s.deliveryOrder))
	for _, id := range s.deliveryOrder {
		records = append(records, s.deliveries[id])
	}
	return records
}

func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if evt, ok := s.outbox[id]; ok {
			events = append(events, evt)
		}
	}
	return events
}

// FailDeliveryWrites makes delivery bulk updates return err until reset with nil.
func (s *Store) FailDeliveryWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveryWriteErr = err
}

func (s *Store) FailHeartbeats(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaseTouchErr = err
}

// OnBeforeLeaseWrite runs hook ahead of every lease write, outside the store lock.
// Tests use it to interleave a competing writer.
func (s *Store) OnBeforeLeaseWrite(hook func(entities.RouteLease)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeLeaseWrite = hook
}

func (s *Store) leaseWriteHook() func(entities.RouteLease) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.beforeLeaseWrite
}

func (s *Store) filterLeases(keep func(entities.RouteLease) bool, limit int) []entities.RouteLease {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.RouteLease, 0)
	for _, lease := range s.leases {
		if keep(lease) {
			items = append(items, lease.Clone())
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].TenantID != items[j].TenantID {
			return items[i].TenantID < items[j].TenantID
		}
		if items[i].Day != items[j].Day {
			return items[i].Day < items[j].Day
		}
		return items[i].Route < items[j].Route
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func memberSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func inScope(record entities.DeliveryRecord, scope ports.DeliveryScope, members map[string]struct{}) bool {
	if record.Resolved || record.TenantID != scope.TenantID {
		return false
	}
	if _, ok := members[record.CustomerID]; !ok {
		return false
	}
	at := record.ScheduledFor.UTC()
	return !at.Before(scope.From) && at.Before(scope.To)
}
