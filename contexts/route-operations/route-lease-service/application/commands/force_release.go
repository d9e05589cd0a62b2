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

type ForceReleaseCommand struct {
	TenantID string
	Day      string
	Route    string
	Actor    string
	Reason   string
}

type ForceReleaseResult struct {
	Lease            entities.RouteLease
	PreviousHolderID string
}

// ForceReleaseUseCase is the administrative override. It skips every conflict
// check and leaves delivery holders alone. The next claim of the route moves the
// released holder's deliveries to the claimer, and the reconciler repeats that
// move for the new holder.
type ForceReleaseUseCase struct {
	Leases      ports.LeaseRepository
	Calendar    ports.TenantCalendar
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	MaxAttempts int
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (u ForceReleaseUseCase) Execute(ctx context.Context, cmd ForceReleaseCommand) (ForceReleaseResult, error) {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)
	if strings.TrimSpace(cmd.Route) == "" {
		return ForceReleaseResult{}, domainerrors.ErrInvalidLeaseRequest
	}

	now := currentTime(u.Clock)
	key, err := resolveLeaseKey(ctx, u.Calendar, cmd.TenantID, cmd.Day, cmd.Route, now)
	if err != nil {
		return ForceReleaseResult{}, err
	}
	actor := strings.TrimSpace(cmd.Actor)
	reason := strings.TrimSpace(cmd.Reason)

	for attempt := 1; attempt <= maxAttempts(u.MaxAttempts); attempt++ {
		current, err := loadLease(ctx, u.Leases, u.IDGenerator, key, now)
		if err != nil {
			metrics.RecordLeaseOperation("force_release", "error")
			return ForceReleaseResult{}, err
		}

		next := services.ApplyForceRelease(current, actor, reason, now)
		event, err := newLeaseEvent(ctx, u.IDGenerator, ports.EventTypeLeaseForceReleased, next, current.HolderID, now)
		if err != nil {
			return ForceReleaseResult{}, err
		}
		saved, err := u.Leases.SaveLeaseWithOutbox(ctx, next, current.Version, event)
		if errors.Is(err, domainerrors.ErrLeaseVersionConflict) {
			continue
		}
		if err != nil {
			logger.Error("force release failed on write",
				"event", "route_lease_force_release_write_failed",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"route", key.Route,
				"actor", actor,
				"error", err.Error(),
			)
			metrics.RecordLeaseOperation("force_release", "error")
			return ForceReleaseResult{}, err
		}

		logger.Warn("route force released",
			"event", "route_lease_force_released",
			"module", "route-operations/route-lease-service",
			"layer", "application",
			"lease_id", saved.LeaseID,
			"tenant_id", key.TenantID,
			"day", key.Day,
			"route", key.Route,
			"previous_holder_id", current.HolderID,
			"previous_status", current.Status,
			"actor", actor,
			"reason", reason,
		)
		metrics.RecordLeaseOperation("force_release", "released")
		return ForceReleaseResult{Lease: saved, PreviousHolderID: current.HolderID}, nil
	}

	metrics.RecordLeaseOperation("force_release", "contention")
	return ForceReleaseResult{}, domainerrors.ErrLeaseConcurrentUpdate
}
