package reassignment

import (
	"context"
	"fmt"
	"log/slog"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

// Engine moves the holder field of a route's unresolved deliveries when lease ownership changes.
// Both operations are idempotent bulk updates and may be retried freely.
type Engine struct {
	Deliveries ports.DeliveryStore
	Routes     ports.RouteMembershipResolver
	Calendar   ports.TenantCalendar
	Metrics    ports.Metrics
	Logger     *slog.Logger
}

// ReassignToHolder gives newHolderID every unresolved delivery of the route and day
// that is unassigned, already theirs, or held by previousStaleHolderID.
func (e Engine) ReassignToHolder(
	ctx context.Context,
	key valueobjects.LeaseKey,
	newHolderID string,
	previousStaleHolderID string,
) (int, error) {
	logger := application.ResolveLogger(e.Logger)
	scope, ok, err := ResolveScope(ctx, e.Routes, e.Calendar, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	match := ports.HolderMatch{Unassigned: true, HolderIDs: []string{newHolderID}}
	if previousStaleHolderID != "" && previousStaleHolderID != newHolderID {
		match.HolderIDs = append(match.HolderIDs, previousStaleHolderID)
	}

	moved, err := e.Deliveries.AssignUnresolved(ctx, scope, match, newHolderID)
	if err != nil {
		return 0, fmt.Errorf("assign unresolved deliveries: %w", err)
	}
	application.ResolveMetrics(e.Metrics).RecordDeliveriesMoved("reassign", moved)

	logger.Info("deliveries reassigned to route holder",
		"event", "route_lease_deliveries_reassigned",
		"module", "route-operations/route-lease-service",
		"layer", "application",
		"tenant_id", key.TenantID,
		"day", key.Day,
		"route", key.Route,
		"holder_id", newHolderID,
		"previous_holder_id", previousStaleHolderID,
		"moved_count", moved,
	)
	return moved, nil
}

// UnassignHolder clears agentID from the route's unresolved deliveries for the day.
func (e Engine) UnassignHolder(ctx context.Context, key valueobjects.LeaseKey, agentID string) (int, error) {
	logger := application.ResolveLogger(e.Logger)
	scope, ok, err := ResolveScope(ctx, e.Routes, e.Calendar, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	cleared, err := e.Deliveries.ClearUnresolvedHolder(ctx, scope, agentID)
	if err != nil {
		return 0, fmt.Errorf("clear unresolved delivery holder: %w", err)
	}
	application.ResolveMetrics(e.Metrics).RecordDeliveriesMoved("unassign", cleared)

	logger.Info("deliveries unassigned from former holder",
		"event", "route_lease_deliveries_unassigned",
		"module", "route-operations/route-lease-service",
		"layer", "application",
		"tenant_id", key.TenantID,
		"day", key.Day,
		"route", key.Route,
		"holder_id", agentID,
		"cleared_count", cleared,
	)
	return cleared, nil
}

// ResolveScope builds the delivery scope of a lease key. It reports false when the
// route has no members, in which case there is nothing to update or count.
func ResolveScope(
	ctx context.Context,
	routes ports.RouteMembershipResolver,
	calendar ports.TenantCalendar,
	key valueobjects.LeaseKey,
) (ports.DeliveryScope, bool, error) {
	customers, err := routes.ResolveCustomers(ctx, key.TenantID, key.Route)
	if err != nil {
		return ports.DeliveryScope{}, false, fmt.Errorf("resolve route members: %w", err)
	}
	if len(customers) == 0 {
		return ports.DeliveryScope{}, false, nil
	}

	loc, err := calendar.Location(ctx, key.TenantID)
	if err != nil {
		return ports.DeliveryScope{}, false, err
	}
	from, to, err := valueobjects.DayWindow(key.Day, loc)
	if err != nil {
		return ports.DeliveryScope{}, false, fmt.Errorf("resolve day window: %w", err)
	}

	return ports.DeliveryScope{
		TenantID:    key.TenantID,
		CustomerIDs: customers,
		From:        from,
		To:          to,
	}, true, nil
}
