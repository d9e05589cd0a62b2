package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/application/reassignment"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/services"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

// ReleaseRouteCommand releases one route, or every route the agent holds for
// the day when Route is empty.
type ReleaseRouteCommand struct {
	TenantID string
	Day      string
	Route    string
	AgentID  string
}

type ReleaseRouteResult struct {
	Released bool
	Routes   []string
}

type ReleaseRouteUseCase struct {
	Leases       ports.LeaseRepository
	Reassignment reassignment.Engine
	Calendar     ports.TenantCalendar
	Clock        ports.Clock
	IDGenerator  ports.IDGenerator
	MaxAttempts  int
	Metrics      ports.Metrics
	Logger       *slog.Logger
}

func (u ReleaseRouteUseCase) Execute(ctx context.Context, cmd ReleaseRouteCommand) (ReleaseRouteResult, error) {
	logger := application.ResolveLogger(u.Logger)
	agentID := strings.TrimSpace(cmd.AgentID)
	if agentID == "" {
		return ReleaseRouteResult{}, domainerrors.ErrInvalidLeaseRequest
	}

	now := currentTime(u.Clock)
	day, err := application.ResolveDay(ctx, u.Calendar, cmd.TenantID, cmd.Day, now)
	if err != nil {
		return ReleaseRouteResult{}, err
	}
	tenantID := strings.TrimSpace(cmd.TenantID)

	var keys []valueobjects.LeaseKey
	if strings.TrimSpace(cmd.Route) != "" {
		key, err := valueobjects.NewLeaseKey(tenantID, day, cmd.Route)
		if err != nil {
			return ReleaseRouteResult{}, err
		}
		keys = append(keys, key)
	} else {
		held, err := u.Leases.ListLeasesHeldBy(ctx, tenantID, day, agentID)
		if err != nil {
			logger.Error("release route failed listing held leases",
				"event", "route_lease_release_list_failed",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"tenant_id", tenantID,
				"agent_id", agentID,
				"error", err.Error(),
			)
			return ReleaseRouteResult{}, err
		}
		for _, lease := range held {
			keys = append(keys, lease.Key())
		}
	}

	result := ReleaseRouteResult{Routes: []string{}}
	for _, key := range keys {
		released, err := u.releaseOne(ctx, key, agentID)
		if err != nil {
			return ReleaseRouteResult{}, err
		}
		if released {
			result.Released = true
			result.Routes = append(result.Routes, key.Route)
		}
	}

	if !result.Released {
		logger.Info("release route found nothing to release",
			"event", "route_lease_release_noop",
			"module", "route-operations/route-lease-service",
			"layer", "application",
			"tenant_id", tenantID,
			"day", day,
			"route", cmd.Route,
			"agent_id", agentID,
		)
		application.ResolveMetrics(u.Metrics).RecordLeaseOperation("release", "noop")
	}
	return result, nil
}

func (u ReleaseRouteUseCase) releaseOne(ctx context.Context, key valueobjects.LeaseKey, agentID string) (bool, error) {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)
	now := currentTime(u.Clock)

	for attempt := 1; attempt <= maxAttempts(u.MaxAttempts); attempt++ {
		current, found, err := u.Leases.GetLease(ctx, key)
		if err != nil {
			metrics.RecordLeaseOperation("release", "error")
			return false, err
		}
		if !found {
			return false, nil
		}

		next, released := services.EvaluateRelease(current, agentID, now)
		if !released {
			return false, nil
		}

		event, err := newLeaseEvent(ctx, u.IDGenerator, ports.EventTypeLeaseReleased, next, agentID, now)
		if err != nil {
			return false, err
		}
		saved, err := u.Leases.SaveLeaseWithOutbox(ctx, next, current.Version, event)
		if errors.Is(err, domainerrors.ErrLeaseVersionConflict) {
			continue
		}
		if err != nil {
			logger.Error("release route failed on write",
				"event", "route_lease_release_write_failed",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"route", key.Route,
				"agent_id", agentID,
				"error", err.Error(),
			)
			metrics.RecordLeaseOperation("release", "error")
			return false, err
		}

		if _, err := u.Reassignment.UnassignHolder(ctx, key, agentID); err != nil {
			logger.Error("release route unassignment failed",
				"event", "route_lease_release_unassign_failed",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"route", key.Route,
				"agent_id", agentID,
				"error", err.Error(),
			)
			metrics.RecordLeaseOperation("unassign", "error")
		}

		logger.Info("route released",
			"event", "route_lease_released",
			"module", "route-operations/route-lease-service",
			"layer", "application",
			"lease_id", saved.LeaseID,
			"tenant_id", key.TenantID,
			"day", key.Day,
			"route", key.Route,
			"agent_id", agentID,
		)
		metrics.RecordLeaseOperation("release", "released")
		return true, nil
	}

	metrics.RecordLeaseOperation("release", "contention")
	return false, domainerrors.ErrLeaseConcurrentUpdate
}
