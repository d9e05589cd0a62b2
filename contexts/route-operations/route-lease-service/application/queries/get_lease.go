package queries

import (
	"context"
	"log/slog"
	"time"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/services"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

type GetLeaseQuery struct {
	TenantID string
	Day      string
	Route    string
}

type GetLeaseResult struct {
	Lease entities.RouteLease
	Stale bool
}

type GetLeaseUseCase struct {
	Leases    ports.LeaseRepository
	Calendar  ports.TenantCalendar
	Clock     ports.Clock
	Staleness services.StalenessPolicy
	Logger    *slog.Logger
}

func (u GetLeaseUseCase) Execute(ctx context.Context, query GetLeaseQuery) (GetLeaseResult, error) {
	logger := application.ResolveLogger(u.Logger)
	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}
	day, err := application.ResolveDay(ctx, u.Calendar, query.TenantID, query.Day, now)
	if err != nil {
		return GetLeaseResult{}, err
	}
	key, err := valueobjects.NewLeaseKey(query.TenantID, day, query.Route)
	if err != nil {
		return GetLeaseResult{}, err
	}

	lease, found, err := u.Leases.GetLease(ctx, key)
	if err != nil {
		logger.Error("get lease failed",
			"event", "route_lease_get_failed",
			"module", "route-operations/route-lease-service",
			"layer", "application",
			"tenant_id", key.TenantID,
			"day", key.Day,
			"route", key.Route,
			"error", err.Error(),
		)
		return GetLeaseResult{}, err
	}
	if !found {
		return GetLeaseResult{}, domainerrors.ErrLeaseNotFound
	}

	return GetLeaseResult{
		Lease: lease,
		Stale: lease.Status == entities.LeaseStatusHeld && u.Staleness.IsStale(lease.LastHeartbeat, now),
	}, nil
}
