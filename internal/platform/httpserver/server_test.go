package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	routeleaseservice "routeops/contexts/route-operations/route-lease-service"
	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	leasehttp "routeops/contexts/route-operations/route-lease-service/transport/http"
)

const testTenant = "tenant-1"

func newTestServer() (*Server, routeleaseservice.Module, string) {
	module := routeleaseservice.NewInMemoryModule(nil)
	now := time.Now().UTC()
	day := now.Format("2006-01-02")
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC)

	module.Store.SeedMemberships(
		entities.RouteMembership{TenantID: testTenant, CustomerID: "cust-1", Route: "R1"},
		entities.RouteMembership{TenantID: testTenant, CustomerID: "cust-2", Route: "R1"},
		entities.RouteMembership{TenantID: testTenant, CustomerID: "cust-3", Route: "R2"},
	)
	module.Store.SeedDeliveries(
		entities.DeliveryRecord{DeliveryID: "d-1", TenantID: testTenant, CustomerID: "cust-1", ScheduledFor: scheduled},
		entities.DeliveryRecord{DeliveryID: "d-2", TenantID: testTenant, CustomerID: "cust-2", ScheduledFor: scheduled},
		entities.DeliveryRecord{DeliveryID: "d-3", TenantID: testTenant, CustomerID: "cust-3", ScheduledFor: scheduled, Resolved: true},
	)
	return New(module, nil, nil, ""), module, day
}

func doRequest(server *Server, method string, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func agentHeaders(agentID string) map[string]string {
	return map[string]string{
		headerTenantID: testTenant,
		headerUserID:   agentID,
		headerUserName: "Agent " + agentID,
	}
}

func TestHealthz(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(server, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestListAvailableRoutesRequiresTenant(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(server, http.MethodGet, "/v1/route-leases/routes", nil, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListAvailableRoutesReportsPendingAndEmpty(t *testing.T) {
	server, _, day := newTestServer()
	rr := doRequest(server, http.MethodGet, "/v1/route-leases/routes?day="+day, nil, agentHeaders("agent-a"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp leasehttp.ListAvailableRoutesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Day != day {
		t.Fatalf("expected day %s, got %s", day, resp.Day)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(resp.Items))
	}
	if resp.Items[0].Route != "r1" || resp.Items[0].Status != "free" || resp.Items[0].PendingCount != 2 {
		t.Fatalf("unexpected r1 item: %+v", resp.Items[0])
	}
	if resp.Items[1].Route != "r2" || resp.Items[1].Status != "empty" {
		t.Fatalf("unexpected r2 item: %+v", resp.Items[1])
	}
}

func TestClaimRouteRequiresAgent(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", nil, map[string]string{
		headerTenantID: testTenant,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestClaimRouteAssignsDeliveriesAndRejectsSecondAgent(t *testing.T) {
	server, module, day := newTestServer()

	rr := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: day}, agentHeaders("agent-a"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp leasehttp.ClaimRouteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || !resp.Reassigned || resp.MovedCount != 2 {
		t.Fatalf("unexpected claim response: %+v", resp)
	}
	for _, record := range module.Store.Deliveries() {
		if record.Resolved {
			continue
		}
		if record.HolderID != "agent-a" {
			t.Fatalf("expected %s assigned to agent-a, got %q", record.DeliveryID, record.HolderID)
		}
	}

	conflict := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: day}, agentHeaders("agent-b"))
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", conflict.Code, conflict.Body.String())
	}
	var errResp leasehttp.ErrorResponse
	if err := json.Unmarshal(conflict.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != "route_already_held" {
		t.Fatalf("expected route_already_held, got %s", errResp.Code)
	}
}

func TestClaimRouteRejectsInvalidDay(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: "2026-13-40"}, agentHeaders("agent-a"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestReleaseRouteFreesLeaseAndClearsDeliveries(t *testing.T) {
	server, module, day := newTestServer()
	if rr := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: day}, agentHeaders("agent-a")); rr.Code != http.StatusOK {
		t.Fatalf("claim failed: %d body=%s", rr.Code, rr.Body.String())
	}

	rr := doRequest(server, http.MethodPost, "/v1/route-leases/release", leasehttp.ReleaseRouteRequest{Route: "R1", Day: day}, agentHeaders("agent-a"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp leasehttp.ReleaseRouteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || !resp.Released {
		t.Fatalf("unexpected release response: %+v", resp)
	}
	for _, record := range module.Store.Deliveries() {
		if !record.Resolved && record.HolderID != "" {
			t.Fatalf("expected %s unassigned, got %q", record.DeliveryID, record.HolderID)
		}
	}

	again := doRequest(server, http.MethodPost, "/v1/route-leases/release", leasehttp.ReleaseRouteRequest{Route: "R1", Day: day}, agentHeaders("agent-a"))
	if again.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeated release, got %d", again.Code)
	}
	var second leasehttp.ReleaseRouteResponse
	if err := json.Unmarshal(again.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if second.Released {
		t.Fatalf("expected repeated release to be a no-op")
	}
}

func TestHeartbeatAlwaysAcknowledges(t *testing.T) {
	server, _, _ := newTestServer()
	for _, headers := range []map[string]string{nil, agentHeaders("agent-a"), {headerTenantID: testTenant}} {
		rr := doRequest(server, http.MethodPost, "/v1/route-leases/heartbeat", nil, headers)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
		}
	}
}

func TestForceReleaseRequiresAdmin(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(server, http.MethodPost, "/v1/route-leases/admin/routes/R1/force-release", nil, map[string]string{
		headerTenantID: testTenant,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestForceReleaseResetsCompletedRoute(t *testing.T) {
	server, _, day := newTestServer()
	if rr := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: day}, agentHeaders("agent-a")); rr.Code != http.StatusOK {
		t.Fatalf("claim failed: %d body=%s", rr.Code, rr.Body.String())
	}
	complete := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/complete", leasehttp.CompleteRouteRequest{Day: day}, agentHeaders("agent-a"))
	if complete.Code != http.StatusOK {
		t.Fatalf("complete failed: %d body=%s", complete.Code, complete.Body.String())
	}

	blocked := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: day}, agentHeaders("agent-b"))
	if blocked.Code != http.StatusConflict {
		t.Fatalf("expected 409 on completed route, got %d", blocked.Code)
	}

	rr := doRequest(server, http.MethodPost, "/v1/route-leases/admin/routes/R1/force-release", leasehttp.ForceReleaseRequest{Reason: "reopened", Day: day}, map[string]string{
		headerTenantID: testTenant,
		headerAdminID:  "admin-1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp leasehttp.ForceReleaseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PreviousHolderID != "agent-a" {
		t.Fatalf("expected previous holder agent-a, got %q", resp.PreviousHolderID)
	}

	lease := doRequest(server, http.MethodGet, "/v1/route-leases/routes/R1/lease?day="+day, nil, agentHeaders("agent-b"))
	if lease.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", lease.Code, lease.Body.String())
	}
	var leaseResp leasehttp.GetLeaseResponse
	if err := json.Unmarshal(lease.Body.Bytes(), &leaseResp); err != nil {
		t.Fatalf("decode lease: %v", err)
	}
	if leaseResp.Item.Status != "free" || leaseResp.Item.OverrideBy != "admin-1" || leaseResp.Item.OverrideReason != "reopened" {
		t.Fatalf("unexpected lease after force release: %+v", leaseResp.Item)
	}
}

func TestForceReleaseOfLiveHolderUnblocksClaim(t *testing.T) {
	server, module, day := newTestServer()
	if rr := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: day}, agentHeaders("agent-a")); rr.Code != http.StatusOK {
		t.Fatalf("claim failed: %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: day}, agentHeaders("agent-b")); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while agent-a is live, got %d", rr.Code)
	}

	rr := doRequest(server, http.MethodPost, "/v1/route-leases/admin/routes/R1/force-release", leasehttp.ForceReleaseRequest{Day: day}, map[string]string{
		headerTenantID: testTenant,
		headerAdminID:  "admin-1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	claim := doRequest(server, http.MethodPost, "/v1/route-leases/routes/R1/claim", leasehttp.ClaimRouteRequest{Day: day}, agentHeaders("agent-b"))
	if claim.Code != http.StatusOK {
		t.Fatalf("expected agent-b claim to succeed at once, got %d body=%s", claim.Code, claim.Body.String())
	}
	var resp leasehttp.ClaimRouteResponse
	if err := json.Unmarshal(claim.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Reassigned || resp.MovedCount != 2 {
		t.Fatalf("expected agent-a's two deliveries moved, got %+v", resp)
	}
	for _, delivery := range module.Store.Deliveries() {
		if delivery.DeliveryID != "d-3" && delivery.HolderID != "agent-b" {
			t.Fatalf("delivery %s held by %q after agent-b claimed", delivery.DeliveryID, delivery.HolderID)
		}
	}
}

func TestGetLeaseNotFound(t *testing.T) {
	server, _, day := newTestServer()
	rr := doRequest(server, http.MethodGet, "/v1/route-leases/routes/R9/lease?day="+day, nil, agentHeaders("agent-a"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMetricsEndpointOnlyWhenConfigured(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(server, http.MethodGet, "/metrics", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics handler, got %d", rr.Code)
	}
}
