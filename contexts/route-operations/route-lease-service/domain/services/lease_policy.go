package services

import (
	"time"

	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
)

type ClaimOutcome string

const (
	ClaimOutcomeClaimed   ClaimOutcome = "claimed"
	ClaimOutcomeRenewed   ClaimOutcome = "renewed"
	ClaimOutcomeTakenOver ClaimOutcome = "taken_over"
)

// ClaimDecision is the lease state a claim wants to write.
// AbandonedHolderID names the holder whose unresolved deliveries move to the
// claimer: the stale holder on a takeover, or the last holder of a free lease.
type ClaimDecision struct {
	Lease             entities.RouteLease
	Outcome           ClaimOutcome
	AbandonedHolderID string
}

// EvaluateClaim applies the claim transition to a copy of current.
// Completed routes and live foreign holders are rejected; current is never mutated.
func EvaluateClaim(
	current entities.RouteLease,
	agentID string,
	agentName string,
	now time.Time,
	policy StalenessPolicy,
) (ClaimDecision, error) {
	if agentID == "" {
		return ClaimDecision{}, domainerrors.ErrInvalidLeaseRequest
	}
	if current.Status == entities.LeaseStatusCompleted {
		return ClaimDecision{}, domainerrors.ErrRouteCompleted
	}

	lease := current.Clone()
	decision := ClaimDecision{Outcome: ClaimOutcomeClaimed}

	if lease.HasHolder() && lease.HolderID != agentID {
		if !policy.IsStale(lease.LastHeartbeat, now) {
			return ClaimDecision{}, domainerrors.ErrRouteAlreadyHeld
		}
		decision.AbandonedHolderID = lease.Vacate(now)
		decision.Outcome = ClaimOutcomeTakenOver
	}

	if lease.HasHolder() && lease.HolderID == agentID {
		lease.Touch(now)
		if agentName != "" {
			lease.HolderName = agentName
		}
		decision.Outcome = ClaimOutcomeRenewed
	} else {
		// A free lease keeps the holder that left it. After a force release that
		// holder still owns the route's deliveries.
		if decision.Outcome == ClaimOutcomeClaimed {
			if previous := lease.LastClosedHolderID(); previous != agentID {
				decision.AbandonedHolderID = previous
			}
		}
		lease.Assign(agentID, agentName, now)
	}

	decision.Lease = lease
	return decision, nil
}

// EvaluateRelease vacates the lease when agentID holds it.
// Anything else is a no-op reported as released=false.
func EvaluateRelease(current entities.RouteLease, agentID string, now time.Time) (entities.RouteLease, bool) {
	if !current.HeldBy(agentID) {
		return current, false
	}
	lease := current.Clone()
	lease.Vacate(now)
	return lease, true
}

// ApplyForceRelease resets the lease to free whatever its state, stamping the override audit fields.
func ApplyForceRelease(current entities.RouteLease, actor string, reason string, now time.Time) entities.RouteLease {
	lease := current.Clone()
	lease.Vacate(now)
	at := now.UTC()
	lease.OverrideBy = actor
	lease.OverrideReason = reason
	lease.OverriddenAt = &at
	return lease
}

// EvaluateCompletion marks a held route completed by its holder.
// The bool result is false when the route was already completed.
func EvaluateCompletion(current entities.RouteLease, agentID string, now time.Time) (entities.RouteLease, bool, error) {
	if current.Status == entities.LeaseStatusCompleted {
		return current, false, nil
	}
	if current.HasHolder() && current.HolderID != agentID {
		return entities.RouteLease{}, false, domainerrors.ErrRouteAlreadyHeld
	}
	if !current.HeldBy(agentID) {
		return entities.RouteLease{}, false, domainerrors.ErrRouteNotHeld
	}
	lease := current.Clone()
	lease.CloseOpenInterval(now)
	lease.Status = entities.LeaseStatusCompleted
	lease.UpdatedAt = now.UTC()
	return lease, true, nil
}
