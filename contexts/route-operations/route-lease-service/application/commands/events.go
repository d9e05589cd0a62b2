package commands

import (
	"context"
	"time"

	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	"routeops/contexts/route-operations/route-lease-service/domain/services"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

func newLeaseEvent(
	ctx context.Context,
	ids ports.IDGenerator,
	eventType string,
	lease entities.RouteLease,
	previousHolderID string,
	occurredAt time.Time,
) (ports.LeaseEvent, error) {
	eventID, err := ids.NewID(ctx)
	if err != nil {
		return ports.LeaseEvent{}, err
	}
	return ports.LeaseEvent{
		EventID:          eventID,
		EventType:        eventType,
		LeaseID:          lease.LeaseID,
		TenantID:         lease.TenantID,
		Day:              lease.Day,
		Route:            lease.Route,
		HolderID:         lease.HolderID,
		PreviousHolderID: previousHolderID,
		Actor:            lease.OverrideBy,
		Reason:           lease.OverrideReason,
		PartitionKey:     lease.Key().String(),
		OccurredAt:       occurredAt.UTC(),
	}, nil
}

func claimEventType(outcome services.ClaimOutcome) string {
	switch outcome {
	case services.ClaimOutcomeRenewed:
		return ports.EventTypeLeaseRenewed
	case services.ClaimOutcomeTakenOver:
		return ports.EventTypeLeaseTakenOver
	default:
		return ports.EventTypeLeaseClaimed
	}
}
