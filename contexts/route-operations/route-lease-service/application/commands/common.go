package commands

import (
	"context"
	"time"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

const defaultMaxAttempts = 3

// resolveLeaseKey validates the key parts and fills an empty day with the
// tenant-local current day.
func resolveLeaseKey(
	ctx context.Context,
	calendar ports.TenantCalendar,
	tenantID string,
	day string,
	route string,
	now time.Time,
) (valueobjects.LeaseKey, error) {
	day, err := application.ResolveDay(ctx, calendar, tenantID, day, now)
	if err != nil {
		return valueobjects.LeaseKey{}, err
	}
	return valueobjects.NewLeaseKey(tenantID, day, route)
}

// loadLease returns the stored lease, or an unsaved free lease when the key has none.
func loadLease(
	ctx context.Context,
	leases ports.LeaseRepository,
	ids ports.IDGenerator,
	key valueobjects.LeaseKey,
	now time.Time,
) (entities.RouteLease, error) {
	lease, found, err := leases.GetLease(ctx, key)
	if err != nil {
		return entities.RouteLease{}, err
	}
	if found {
		return lease, nil
	}
	leaseID, err := ids.NewID(ctx)
	if err != nil {
		return entities.RouteLease{}, err
	}
	return entities.NewFreeLease(leaseID, key, now)
}

func maxAttempts(configured int) int {
	if configured <= 0 {
		return defaultMaxAttempts
	}
	return configured
}

func currentTime(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
