package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/application/reassignment"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/services"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

type AvailabilityStatus string

const (
	AvailabilityFree      AvailabilityStatus = "free"
	AvailabilityHeld      AvailabilityStatus = "held"
	AvailabilityCompleted AvailabilityStatus = "completed"
	AvailabilityEmpty     AvailabilityStatus = "empty"
)

type ListAvailableRoutesQuery struct {
	TenantID string
	Day      string
	AgentID  string
}

type RouteAvailability struct {
	Route        string
	PendingCount int
	Status       AvailabilityStatus
	HolderID     string
	HolderName   string
	Stale        bool
	HeldByMe     bool
}

type ListAvailableRoutesResult struct {
	Day   string
	Items []RouteAvailability
}

// ListAvailableRoutesUseCase builds the per-route availability view. Staleness and
// pending counts are recomputed on every call.
type ListAvailableRoutesUseCase struct {
	Leases     ports.LeaseRepository
	Deliveries ports.DeliveryStore
	Routes     ports.RouteMembershipResolver
	Calendar   ports.TenantCalendar
	Clock      ports.Clock
	Staleness  services.StalenessPolicy
	Logger     *slog.Logger
}

func (u ListAvailableRoutesUseCase) Execute(
	ctx context.Context,
	query ListAvailableRoutesQuery,
) (ListAvailableRoutesResult, error) {
	logger := application.ResolveLogger(u.Logger)
	tenantID := strings.TrimSpace(query.TenantID)
	if tenantID == "" {
		return ListAvailableRoutesResult{}, domainerrors.ErrInvalidLeaseRequest
	}
	agentID := strings.TrimSpace(query.AgentID)

	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}
	day, err := application.ResolveDay(ctx, u.Calendar, tenantID, query.Day, now)
	if err != nil {
		return ListAvailableRoutesResult{}, err
	}

	routeNames, err := u.Routes.ListRoutes(ctx, tenantID)
	if err != nil {
		u.logFailure(logger, tenantID, day, err)
		return ListAvailableRoutesResult{}, err
	}
	leases, err := u.Leases.ListLeasesForDay(ctx, tenantID, day)
	if err != nil {
		u.logFailure(logger, tenantID, day, err)
		return ListAvailableRoutesResult{}, err
	}

	leaseByRoute := make(map[string]entities.RouteLease, len(leases))
	known := make(map[string]struct{}, len(routeNames)+len(leases))
	for _, lease := range leases {
		leaseByRoute[lease.Route] = lease
		known[lease.Route] = struct{}{}
	}
	for _, name := range routeNames {
		if route := valueobjects.NormalizeRoute(name); route != "" {
			known[route] = struct{}{}
		}
	}

	items := make([]RouteAvailability, 0, len(known))
	for route := range known {
		key := valueobjects.LeaseKey{TenantID: tenantID, Day: day, Route: route}
		pending, err := u.countPending(ctx, key)
		if err != nil {
			u.logFailure(logger, tenantID, day, err)
			return ListAvailableRoutesResult{}, err
		}

		item := RouteAvailability{Route: route, PendingCount: pending, Status: AvailabilityFree}
		if lease, ok := leaseByRoute[route]; ok {
			item.Status = AvailabilityStatus(lease.Status)
			item.HolderID = lease.HolderID
			item.HolderName = lease.HolderName
			item.Stale = lease.Status == entities.LeaseStatusHeld && u.Staleness.IsStale(lease.LastHeartbeat, now)
			item.HeldByMe = lease.HeldBy(agentID)
		}
		if pending == 0 && item.Status != AvailabilityCompleted {
			item.Status = AvailabilityEmpty
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Route < items[j].Route })

	logger.Debug("list available routes completed",
		"event", "route_lease_availability_listed",
		"module", "route-operations/route-lease-service",
		"layer", "application",
		"tenant_id", tenantID,
		"day", day,
		"agent_id", agentID,
		"items_count", len(items),
	)
	return ListAvailableRoutesResult{Day: day, Items: items}, nil
}

func (u ListAvailableRoutesUseCase) countPending(ctx context.Context, key valueobjects.LeaseKey) (int, error) {
	scope, ok, err := reassignment.ResolveScope(ctx, u.Routes, u.Calendar, key)
	if err != nil || !ok {
		return 0, err
	}
	return u.Deliveries.CountUnresolved(ctx, scope)
}

func (u ListAvailableRoutesUseCase) logFailure(logger *slog.Logger, tenantID string, day string, err error) {
	logger.Error("list available routes failed",
		"event", "route_lease_availability_failed",
		"module", "route-operations/route-lease-service",
		"layer", "application",
		"tenant_id", tenantID,
		"day", day,
		"error", err.Error(),
	)
}
