package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/services"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

type CompleteRouteCommand struct {
	TenantID string
	Day      string
	Route    string
	AgentID  string
}

type CompleteRouteResult struct {
	Lease   entities.RouteLease
	Changed bool
}

// CompleteRouteUseCase closes a route for the day on behalf of its holder.
// A completed lease is never reopened by claim or release.
type CompleteRouteUseCase struct {
	Leases      ports.LeaseRepository
	Calendar    ports.TenantCalendar
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	MaxAttempts int
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (u CompleteRouteUseCase) Execute(ctx context.Context, cmd CompleteRouteCommand) (CompleteRouteResult, error) {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)
	agentID := strings.TrimSpace(cmd.AgentID)
	if agentID == "" || strings.TrimSpace(cmd.Route) == "" {
		return CompleteRouteResult{}, domainerrors.ErrInvalidLeaseRequest
	}

	now := currentTime(u.Clock)
	key, err := resolveLeaseKey(ctx, u.Calendar, cmd.TenantID, cmd.Day, cmd.Route, now)
	if err != nil {
		return CompleteRouteResult{}, err
	}

	for attempt := 1; attempt <= maxAttempts(u.MaxAttempts); attempt++ {
		current, found, err := u.Leases.GetLease(ctx, key)
		if err != nil {
			metrics.RecordLeaseOperation("complete", "error")
			return CompleteRouteResult{}, err
		}
		if !found {
			return CompleteRouteResult{}, domainerrors.ErrLeaseNotFound
		}

		next, changed, err := services.EvaluateCompletion(current, agentID, now)
		if err != nil {
			logger.Warn("complete route rejected",
				"event", "route_lease_complete_rejected",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"route", key.Route,
				"agent_id", agentID,
				"holder_id", current.HolderID,
				"error", err.Error(),
			)
			metrics.RecordLeaseOperation("complete", "conflict")
			return CompleteRouteResult{}, err
		}
		if !changed {
			return CompleteRouteResult{Lease: current}, nil
		}

		event, err := newLeaseEvent(ctx, u.IDGenerator, ports.EventTypeLeaseCompleted, next, "", now)
		if err != nil {
			return CompleteRouteResult{}, err
		}
		saved, err := u.Leases.SaveLeaseWithOutbox(ctx, next, current.Version, event)
		if errors.Is(err, domainerrors.ErrLeaseVersionConflict) {
			continue
		}
		if err != nil {
			metrics.RecordLeaseOperation("complete", "error")
			return CompleteRouteResult{}, err
		}

		logger.Info("route completed",
			"event", "route_lease_completed",
			"module", "route-operations/route-lease-service",
			"layer", "application",
			"lease_id", saved.LeaseID,
			"tenant_id", key.TenantID,
			"day", key.Day,
			"route", key.Route,
			"agent_id", agentID,
		)
		metrics.RecordLeaseOperation("complete", "completed")
		return CompleteRouteResult{Lease: saved, Changed: true}, nil
	}

	metrics.RecordLeaseOperation("complete", "contention")
	return CompleteRouteResult{}, domainerrors.ErrLeaseConcurrentUpdate
}
