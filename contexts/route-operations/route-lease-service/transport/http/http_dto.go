package httptransport

type RouteAvailabilityDTO struct {
	Route        string `json:"route"`
	PendingCount int    `json:"pending_count"`
	Status       string `json:"status"`
	HolderName   string `json:"holder_name,omitempty"`
	Stale        bool   `json:"stale"`
	HeldByMe     bool   `json:"held_by_me"`
}

type ListAvailableRoutesResponse struct {
	Day   string                 `json:"day"`
	Items []RouteAvailabilityDTO `json:"items"`
}

type ClaimRouteRequest struct {
	Day string `json:"day,omitempty"`
}

type ClaimRouteResponse struct {
	OK         bool   `json:"ok"`
	Route      string `json:"route"`
	LeaseID    string `json:"lease_id"`
	Outcome    string `json:"outcome"`
	Reassigned bool   `json:"reassigned"`
	MovedCount int    `json:"moved_count"`
}

type ReleaseRouteRequest struct {
	Route string `json:"route,omitempty"`
	Day   string `json:"day,omitempty"`
}

type ReleaseRouteResponse struct {
	OK       bool     `json:"ok"`
	Released bool     `json:"released"`
	Route    string   `json:"route,omitempty"`
	Routes   []string `json:"routes,omitempty"`
}

type HeartbeatResponse struct {
	OK bool `json:"ok"`
}

type ForceReleaseRequest struct {
	Reason string `json:"reason,omitempty"`
	Day    string `json:"day,omitempty"`
}

type ForceReleaseResponse struct {
	OK               bool   `json:"ok"`
	Route            string `json:"route"`
	PreviousHolderID string `json:"previous_holder_id,omitempty"`
}

type CompleteRouteRequest struct {
	Day string `json:"day,omitempty"`
}

type CompleteRouteResponse struct {
	OK     bool   `json:"ok"`
	Route  string `json:"route"`
	Status string `json:"status"`
}

type HolderIntervalDTO struct {
	HolderID string `json:"holder_id"`
	Start    string `json:"start"`
	End      string `json:"end,omitempty"`
}

type LeaseDTO struct {
	LeaseID        string              `json:"lease_id"`
	TenantID       string              `json:"tenant_id"`
	Day            string              `json:"day"`
	Route          string              `json:"route"`
	HolderID       string              `json:"holder_id,omitempty"`
	HolderName     string              `json:"holder_name,omitempty"`
	Status         string              `json:"status"`
	LastHeartbeat  string              `json:"last_heartbeat,omitempty"`
	Stale          bool                `json:"stale"`
	Version        int64               `json:"version"`
	OverrideBy     string              `json:"override_by,omitempty"`
	OverrideReason string              `json:"override_reason,omitempty"`
	OverriddenAt   string              `json:"overridden_at,omitempty"`
	History        []HolderIntervalDTO `json:"history"`
}

type GetLeaseResponse struct {
	Item LeaseDTO `json:"item"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
