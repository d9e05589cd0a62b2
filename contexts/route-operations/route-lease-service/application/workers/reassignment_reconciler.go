package workers

import (
	"context"
	"log/slog"
	"time"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/application/reassignment"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

// ReassignmentReconciler re-applies holder reassignment for every held lease around
// the current day, including rows left with the lease's previous holder. A claim commits its lease before moving deliveries, so a failed
// follow-up leaves deliveries behind until this sweep runs.
type ReassignmentReconciler struct {
	Leases       ports.LeaseRepository
	Reassignment reassignment.Engine
	Clock        ports.Clock
	BatchSize    int
	Metrics      ports.Metrics
	Logger       *slog.Logger
}

func (r ReassignmentReconciler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 500
	}
	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	// Tenant-local days can be one off from the UTC day in either direction.
	days := []string{
		valueobjects.DayKey(now.AddDate(0, 0, -1), time.UTC),
		valueobjects.DayKey(now, time.UTC),
		valueobjects.DayKey(now.AddDate(0, 0, 1), time.UTC),
	}

	held, err := r.Leases.ListLeasesByStatus(ctx, entities.LeaseStatusHeld, days, limit)
	if err != nil {
		logger.Error("reconciler list held leases failed",
			"event", "route_lease_reconcile_list_failed",
			"module", "route-operations/route-lease-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	failures := 0
	moved := 0
	skipped := 0
	for _, lease := range held {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, found, err := r.Leases.GetLease(ctx, lease.Key())
		if err != nil {
			failures++
			logger.Warn("reconciler lease reload failed",
				"event", "route_lease_reconcile_reload_failed",
				"module", "route-operations/route-lease-service",
				"layer", "worker",
				"route", lease.Route,
				"error", err.Error(),
			)
			continue
		}
		// The listing is a snapshot; a lease released or taken over since then must
		// not pull deliveries back to its old holder.
		if !found || current.Version != lease.Version || !current.HeldBy(lease.HolderID) {
			skipped++
			continue
		}
		count, err := r.Reassignment.ReassignToHolder(ctx, current.Key(), current.HolderID, current.LastClosedHolderID())
		if err != nil {
			failures++
			logger.Warn("reconciler reassignment failed",
				"event", "route_lease_reconcile_reassign_failed",
				"module", "route-operations/route-lease-service",
				"layer", "worker",
				"tenant_id", lease.TenantID,
				"day", lease.Day,
				"route", lease.Route,
				"holder_id", lease.HolderID,
				"error", err.Error(),
			)
			continue
		}
		moved += count
	}

	application.ResolveMetrics(r.Metrics).RecordReconcileRun(len(held), failures)
	if len(held) > 0 {
		logger.Info("reconciler cycle completed",
			"event", "route_lease_reconcile_completed",
			"module", "route-operations/route-lease-service",
			"layer", "worker",
			"leases_count", len(held),
			"moved_count", moved,
			"skipped_count", skipped,
			"failures_count", failures,
		)
	}
	return nil
}
