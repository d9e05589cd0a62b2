package commands

import (
	"context"
	"log/slog"
	"strings"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

type HeartbeatCommand struct {
	TenantID string
	AgentID  string
}

// HeartbeatResult is an acknowledgment; Touched is informational only.
type HeartbeatResult struct {
	Touched int
}

// HeartbeatUseCase refreshes liveness for leases the agent already holds today.
// It has no error result: failures are logged and counted, never returned.
type HeartbeatUseCase struct {
	Leases   ports.LeaseRepository
	Calendar ports.TenantCalendar
	Clock    ports.Clock
	Metrics  ports.Metrics
	Logger   *slog.Logger
}

func (u HeartbeatUseCase) Execute(ctx context.Context, cmd HeartbeatCommand) HeartbeatResult {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)
	tenantID := strings.TrimSpace(cmd.TenantID)
	agentID := strings.TrimSpace(cmd.AgentID)
	if tenantID == "" || agentID == "" {
		logger.Warn("heartbeat ignored without tenant or agent",
			"event", "route_lease_heartbeat_ignored",
			"module", "route-operations/route-lease-service",
			"layer", "application",
			"tenant_id", tenantID,
			"agent_id", agentID,
		)
		metrics.RecordLeaseOperation("heartbeat", "invalid")
		return HeartbeatResult{}
	}

	now := currentTime(u.Clock)
	day, err := application.ResolveDay(ctx, u.Calendar, tenantID, "", now)
	if err != nil {
		u.logFailure(logger, tenantID, agentID, err)
		metrics.RecordLeaseOperation("heartbeat", "error")
		return HeartbeatResult{}
	}

	touched, err := u.Leases.TouchHeldLeases(ctx, tenantID, day, agentID, now)
	if err != nil {
		u.logFailure(logger, tenantID, agentID, err)
		metrics.RecordLeaseOperation("heartbeat", "error")
		return HeartbeatResult{}
	}

	logger.Debug("heartbeat recorded",
		"event", "route_lease_heartbeat_recorded",
		"module", "route-operations/route-lease-service",
		"layer", "application",
		"tenant_id", tenantID,
		"day", day,
		"agent_id", agentID,
		"touched_count", touched,
	)
	metrics.RecordLeaseOperation("heartbeat", "ok")
	return HeartbeatResult{Touched: touched}
}

func (u HeartbeatUseCase) logFailure(logger *slog.Logger, tenantID string, agentID string, err error) {
	logger.Error("heartbeat failed",
		"event", "route_lease_heartbeat_failed",
		"module", "route-operations/route-lease-service",
		"layer", "application",
		"tenant_id", tenantID,
		"agent_id", agentID,
		"error", err.Error(),
	)
}
