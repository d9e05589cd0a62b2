package ports

import "encoding/json"

const (
	EventTypeLeaseClaimed       = "route_lease.claimed"
	EventTypeLeaseRenewed       = "route_lease.renewed"
	EventTypeLeaseTakenOver     = "route_lease.taken_over"
	EventTypeLeaseReleased      = "route_lease.released"
	EventTypeLeaseForceReleased = "route_lease.force_released"
	EventTypeLeaseCompleted     = "route_lease.completed"

	LeaseEventSourceService = "route-lease-service"
)

// Envelope wraps the event in the canonical contract stored in the outbox.
func (e LeaseEvent) Envelope() (EventEnvelope, error) {
	data, err := json.Marshal(map[string]string{
		"lease_id":           e.LeaseID,
		"tenant_id":          e.TenantID,
		"day":                e.Day,
		"route":              e.Route,
		"holder_id":          e.HolderID,
		"previous_holder_id": e.PreviousHolderID,
		"actor":              e.Actor,
		"reason":             e.Reason,
	})
	if err != nil {
		return EventEnvelope{}, err
	}
	return EventEnvelope{
		EventID:          e.EventID,
		EventType:        e.EventType,
		OccurredAt:       e.OccurredAt.UTC(),
		SourceService:    LeaseEventSourceService,
		TraceID:          e.EventID,
		SchemaVersion:    1,
		PartitionKeyPath: "tenant_id:day:route",
		PartitionKey:     e.PartitionKey,
		Data:             data,
	}, nil
}
