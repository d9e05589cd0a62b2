package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/application/reassignment"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/services"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

type ClaimRouteCommand struct {
	TenantID  string
	Day       string
	Route     string
	AgentID   string
	AgentName string
}

type ClaimRouteResult struct {
	Lease      entities.RouteLease
	Outcome    services.ClaimOutcome
	Reassigned bool
	MovedCount int
}

type ClaimRouteUseCase struct {
	Leases       ports.LeaseRepository
	Reassignment reassignment.Engine
	Calendar     ports.TenantCalendar
	Clock        ports.Clock
	IDGenerator  ports.IDGenerator
	Staleness    services.StalenessPolicy
	MaxAttempts  int
	Metrics      ports.Metrics
	Logger       *slog.Logger
}

// Execute runs the claim workflow in this order:
// 1) load the lease for the key (a free lease when absent)
// 2) domain claim evaluation against the staleness policy
// 3) compare-and-set lease write + outbox event, re-deciding on a lost race
// 4) best-effort reassignment of the route's unresolved deliveries.
func (u ClaimRouteUseCase) Execute(ctx context.Context, cmd ClaimRouteCommand) (ClaimRouteResult, error) {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)
	agentID := strings.TrimSpace(cmd.AgentID)
	if agentID == "" || strings.TrimSpace(cmd.Route) == "" {
		return ClaimRouteResult{}, domainerrors.ErrInvalidLeaseRequest
	}

	now := currentTime(u.Clock)
	key, err := resolveLeaseKey(ctx, u.Calendar, cmd.TenantID, cmd.Day, cmd.Route, now)
	if err != nil {
		return ClaimRouteResult{}, err
	}

	logger.Info("claim route started",
		"event", "route_lease_claim_started",
		"module", "route-operations/route-lease-service",
		"layer", "application",
		"tenant_id", key.TenantID,
		"day", key.Day,
		"route", key.Route,
		"agent_id", agentID,
	)

	for attempt := 1; attempt <= maxAttempts(u.MaxAttempts); attempt++ {
		current, err := loadLease(ctx, u.Leases, u.IDGenerator, key, now)
		if err != nil {
			logger.Error("claim route failed loading lease",
				"event", "route_lease_claim_load_failed",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"route", key.Route,
				"error", err.Error(),
			)
			metrics.RecordLeaseOperation("claim", "error")
			return ClaimRouteResult{}, err
		}

		decision, err := services.EvaluateClaim(current, agentID, strings.TrimSpace(cmd.AgentName), now, u.Staleness)
		if err != nil {
			logger.Warn("claim route conflict",
				"event", "route_lease_claim_conflict",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"tenant_id", key.TenantID,
				"day", key.Day,
				"route", key.Route,
				"agent_id", agentID,
				"holder_id", current.HolderID,
				"error", err.Error(),
			)
			metrics.RecordLeaseOperation("claim", "conflict")
			return ClaimRouteResult{}, err
		}

		event, err := newLeaseEvent(ctx, u.IDGenerator, claimEventType(decision.Outcome), decision.Lease, decision.AbandonedHolderID, now)
		if err != nil {
			return ClaimRouteResult{}, err
		}

		saved, err := u.Leases.SaveLeaseWithOutbox(ctx, decision.Lease, current.Version, event)
		if errors.Is(err, domainerrors.ErrLeaseVersionConflict) {
			logger.Debug("claim route lost write race, retrying",
				"event", "route_lease_claim_retry",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"route", key.Route,
				"agent_id", agentID,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			logger.Error("claim route failed on write",
				"event", "route_lease_claim_write_failed",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"route", key.Route,
				"agent_id", agentID,
				"error", err.Error(),
			)
			metrics.RecordLeaseOperation("claim", "error")
			return ClaimRouteResult{}, err
		}

		result := ClaimRouteResult{Lease: saved, Outcome: decision.Outcome}

		// The lease row is the source of truth; a failed reassignment is repaired by
		// the reconciler and never fails the claim.
		moved, err := u.Reassignment.ReassignToHolder(ctx, key, agentID, decision.AbandonedHolderID)
		if err != nil {
			logger.Error("claim route reassignment failed",
				"event", "route_lease_claim_reassign_failed",
				"module", "route-operations/route-lease-service",
				"layer", "application",
				"route", key.Route,
				"agent_id", agentID,
				"error", err.Error(),
			)
			metrics.RecordLeaseOperation("reassign", "error")
		} else {
			result.Reassigned = true
			result.MovedCount = moved
		}

		logger.Info("route claimed",
			"event", "route_lease_claimed",
			"module", "route-operations/route-lease-service",
			"layer", "application",
			"lease_id", saved.LeaseID,
			"tenant_id", key.TenantID,
			"day", key.Day,
			"route", key.Route,
			"agent_id", agentID,
			"outcome", decision.Outcome,
			"abandoned_holder_id", decision.AbandonedHolderID,
			"reassigned", result.Reassigned,
		)
		metrics.RecordLeaseOperation("claim", string(decision.Outcome))
		return result, nil
	}

	metrics.RecordLeaseOperation("claim", "contention")
	return ClaimRouteResult{}, domainerrors.ErrLeaseConcurrentUpdate
}
