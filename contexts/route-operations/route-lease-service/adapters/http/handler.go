package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "routeops/contexts/route-operations/route-lease-service/application"
	"routeops/contexts/route-operations/route-lease-service/application/commands"
	"routeops/contexts/route-operations/route-lease-service/application/queries"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	httptransport "routeops/contexts/route-operations/route-lease-service/transport/http"
)

const timestampLayout = "2006-01-02T15:04:05Z"

type Handler struct {
	ListRoutes    queries.ListAvailableRoutesUseCase
	GetLease      queries.GetLeaseUseCase
	ClaimRoute    commands.ClaimRouteUseCase
	ReleaseRoute  commands.ReleaseRouteUseCase
	Heartbeat     commands.HeartbeatUseCase
	ForceRelease  commands.ForceReleaseUseCase
	CompleteRoute commands.CompleteRouteUseCase
	Logger        *slog.Logger
}

// ListAvailableRoutesHandler godoc
// @Summary List routes with availability
// @Description Returns every route of the tenant with pending deliveries, lease status and staleness for the day.
// @Tags route-lease-service
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Id header string false "Calling agent id"
// @Param day query string false "Calendar day YYYY-MM-DD, tenant-local today when omitted"
// @Success 200 {object} httptransport.ListAvailableRoutesResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/route-leases/routes [get]
func (h Handler) ListAvailableRoutesHandler(
	ctx context.Context,
	tenantID string,
	agentID string,
	day string,
) (httptransport.ListAvailableRoutesResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Debug("list available routes request received",
		"event", "http_list_available_routes_received",
		"module", "route-operations/route-lease-service",
		"layer", "transport",
		"tenant_id", tenantID,
	)

	result, err := h.ListRoutes.Execute(ctx, queries.ListAvailableRoutesQuery{
		TenantID: tenantID,
		Day:      day,
		AgentID:  agentID,
	})
	if err != nil {
		return httptransport.ListAvailableRoutesResponse{}, err
	}

	items := make([]httptransport.RouteAvailabilityDTO, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, httptransport.RouteAvailabilityDTO{
			Route:        item.Route,
			PendingCount: item.PendingCount,
			Status:       string(item.Status),
			HolderName:   item.HolderName,
			Stale:        item.Stale,
			HeldByMe:     item.HeldByMe,
		})
	}
	return httptransport.ListAvailableRoutesResponse{Day: result.Day, Items: items}, nil
}

// ClaimRouteHandler godoc
// @Summary Claim a route
// @Description Takes the route lease for the day, taking over a stale holder, and moves pending deliveries to the caller.
// @Tags route-lease-service
// @Accept json
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Id header string true "Agent id"
// @Param X-User-Name header string false "Agent display name"
// @Param route path string true "Route name"
// @Param request body httptransport.ClaimRouteRequest false "Claim payload"
// @Success 200 {object} httptransport.ClaimRouteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/route-leases/routes/{route}/claim [post]
func (h Handler) ClaimRouteHandler(
	ctx context.Context,
	tenantID string,
	agentID string,
	agentName string,
	route string,
	req httptransport.ClaimRouteRequest,
) (httptransport.ClaimRouteResponse, error) {
	result, err := h.ClaimRoute.Execute(ctx, commands.ClaimRouteCommand{
		TenantID:  tenantID,
		Day:       req.Day,
		Route:     route,
		AgentID:   agentID,
		AgentName: agentName,
	})
	if err != nil {
		return httptransport.ClaimRouteResponse{}, err
	}
	return httptransport.ClaimRouteResponse{
		OK:         true,
		Route:      result.Lease.Route,
		LeaseID:    result.Lease.LeaseID,
		Outcome:    string(result.Outcome),
		Reassigned: result.Reassigned,
		MovedCount: result.MovedCount,
	}, nil
}

// ReleaseRouteHandler godoc
// @Summary Release a route
// @Description Releases the named route, or every route the caller holds today when no route is given.
// @Tags route-lease-service
// @Accept json
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Id header string true "Agent id"
// @Param request body httptransport.ReleaseRouteRequest false "Release payload"
// @Success 200 {object} httptransport.ReleaseRouteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/route-leases/release [post]
func (h Handler) ReleaseRouteHandler(
	ctx context.Context,
	tenantID string,
	agentID string,
	req httptransport.ReleaseRouteRequest,
) (httptransport.ReleaseRouteResponse, error) {
	result, err := h.ReleaseRoute.Execute(ctx, commands.ReleaseRouteCommand{
		TenantID: tenantID,
		Day:      req.Day,
		Route:    req.Route,
		AgentID:  agentID,
	})
	if err != nil {
		return httptransport.ReleaseRouteResponse{}, err
	}
	resp := httptransport.ReleaseRouteResponse{OK: true, Released: result.Released}
	if len(result.Routes) > 0 {
		resp.Route = result.Routes[0]
		resp.Routes = result.Routes
	}
	return resp, nil
}

// HeartbeatHandler godoc
// @Summary Record agent heartbeat
// @Description Refreshes liveness on every lease the caller holds today. Always acknowledges.
// @Tags route-lease-service
// @Produce json
// @Param X-Tenant-Id header string false "Tenant id"
// @Param X-User-Id header string false "Agent id"
// @Success 200 {object} httptransport.HeartbeatResponse
// @Router /v1/route-leases/heartbeat [post]
func (h Handler) HeartbeatHandler(ctx context.Context, tenantID string, agentID string) httptransport.HeartbeatResponse {
	h.Heartbeat.Execute(ctx, commands.HeartbeatCommand{TenantID: tenantID, AgentID: agentID})
	return httptransport.HeartbeatResponse{OK: true}
}

// ForceReleaseHandler godoc
// @Summary Force-release a route
// @Description Administrative reset of a route lease to free, regardless of holder or completion.
// @Tags route-lease-service
// @Accept json
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-Admin-Id header string true "Administrator id"
// @Param route path string true "Route name"
// @Param request body httptransport.ForceReleaseRequest false "Override payload"
// @Success 200 {object} httptransport.ForceReleaseResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/route-leases/admin/routes/{route}/force-release [post]
func (h Handler) ForceReleaseHandler(
	ctx context.Context,
	tenantID string,
	adminID string,
	route string,
	req httptransport.ForceReleaseRequest,
) (httptransport.ForceReleaseResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("force release request received",
		"event", "http_force_release_received",
		"module", "route-operations/route-lease-service",
		"layer", "transport",
		"tenant_id", tenantID,
		"admin_id", adminID,
		"route", route,
	)

	result, err := h.ForceRelease.Execute(ctx, commands.ForceReleaseCommand{
		TenantID: tenantID,
		Day:      req.Day,
		Route:    route,
		Actor:    adminID,
		Reason:   req.Reason,
	})
	if err != nil {
		return httptransport.ForceReleaseResponse{}, err
	}
	return httptransport.ForceReleaseResponse{
		OK:               true,
		Route:            result.Lease.Route,
		PreviousHolderID: result.PreviousHolderID,
	}, nil
}

// CompleteRouteHandler godoc
// @Summary Complete a route
// @Description Marks the caller's route as completed for the day; it cannot be claimed again.
// @Tags route-lease-service
// @Accept json
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Id header string true "Agent id"
// @Param route path string true "Route name"
// @Param request body httptransport.CompleteRouteRequest false "Completion payload"
// @Success 200 {object} httptransport.CompleteRouteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/route-leases/routes/{route}/complete [post]
func (h Handler) CompleteRouteHandler(
	ctx context.Context,
	tenantID string,
	agentID string,
	route string,
	req httptransport.CompleteRouteRequest,
) (httptransport.CompleteRouteResponse, error) {
	result, err := h.CompleteRoute.Execute(ctx, commands.CompleteRouteCommand{
		TenantID: tenantID,
		Day:      req.Day,
		Route:    route,
		AgentID:  agentID,
	})
	if err != nil {
		return httptransport.CompleteRouteResponse{}, err
	}
	return httptransport.CompleteRouteResponse{
		OK:     true,
		Route:  result.Lease.Route,
		Status: string(result.Lease.Status),
	}, nil
}

// GetLeaseHandler godoc
// @Summary Get a route lease
// @Description Returns the lease of a route for the day with its holder history.
// @Tags route-lease-service
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param route path string true "Route name"
// @Param day query string false "Calendar day YYYY-MM-DD, tenant-local today when omitted"
// @Success 200 {object} httptransport.GetLeaseResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/route-leases/routes/{route}/lease [get]
func (h Handler) GetLeaseHandler(
	ctx context.Context,
	tenantID string,
	route string,
	day string,
) (httptransport.GetLeaseResponse, error) {
	result, err := h.GetLease.Execute(ctx, queries.GetLeaseQuery{
		TenantID: tenantID,
		Day:      day,
		Route:    route,
	})
	if err != nil {
		return httptransport.GetLeaseResponse{}, err
	}
	item := mapLease(result.Lease)
	item.Stale = result.Stale
	return httptransport.GetLeaseResponse{Item: item}, nil
}

func mapLease(lease entities.RouteLease) httptransport.LeaseDTO {
	history := make([]httptransport.HolderIntervalDTO, 0, len(lease.History))
	for _, interval := range lease.History {
		history = append(history, httptransport.HolderIntervalDTO{
			HolderID: interval.HolderID,
			Start:    interval.Start.UTC().Format(timestampLayout),
			End:      formatOptional(interval.End),
		})
	}
	return httptransport.LeaseDTO{
		LeaseID:        lease.LeaseID,
		TenantID:       lease.TenantID,
		Day:            lease.Day,
		Route:          lease.Route,
		HolderID:       lease.HolderID,
		HolderName:     lease.HolderName,
		Status:         string(lease.Status),
		LastHeartbeat:  formatOptional(lease.LastHeartbeat),
		Version:        lease.Version,
		OverrideBy:     lease.OverrideBy,
		OverrideReason: lease.OverrideReason,
		OverriddenAt:   formatOptional(lease.OverriddenAt),
		History:        history,
	}
}

func formatOptional(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(timestampLayout)
}
