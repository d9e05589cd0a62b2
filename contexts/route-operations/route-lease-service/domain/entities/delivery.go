package entities

import "time"

// DeliveryRecord is a delivery row owned by the delivery store.
// The lease service only ever rewrites HolderID on unresolved records.
type DeliveryRecord struct {
	DeliveryID   string
	TenantID     string
	CustomerID   string
	ScheduledFor time.Time
	HolderID     string
	Resolved     bool
}

// RouteMembership assigns one customer to a route for a tenant.
type RouteMembership struct {
	TenantID   string
	CustomerID string
	Route      string
}
