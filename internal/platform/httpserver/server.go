package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	routeleaseservice "routeops/contexts/route-operations/route-lease-service"
	leasedomainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	leasehttp "routeops/contexts/route-operations/route-lease-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "routeops/internal/platform/httpserver/docs"
)

const (
	headerTenantID  = "X-Tenant-Id"
	headerUserID    = "X-User-Id"
	headerUserName  = "X-User-Name"
	headerAdminID   = "X-Admin-Id"
	maxRequestBytes = 1 << 16
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	leases  routeleaseservice.Module
	metrics http.Handler
	server  *http.Server
}

// New builds the API server. A nil metrics handler leaves /metrics unregistered.
func New(
	leases routeleaseservice.Module,
	metrics http.Handler,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		leases:  leases,
		metrics: metrics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /v1/route-leases/routes", s.handleListAvailableRoutes)
	s.mux.HandleFunc("GET /v1/route-leases/routes/{route}/lease", s.handleGetLease)
	s.mux.HandleFunc("POST /v1/route-leases/routes/{route}/claim", s.handleClaimRoute)
	s.mux.HandleFunc("POST /v1/route-leases/routes/{route}/complete", s.handleCompleteRoute)
	s.mux.HandleFunc("POST /v1/route-leases/release", s.handleReleaseRoute)
	s.mux.HandleFunc("POST /v1/route-leases/heartbeat", s.handleHeartbeat)
	s.mux.HandleFunc("POST /v1/route-leases/admin/routes/{route}/force-release", s.handleForceRelease)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAvailableRoutes(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(r.Header.Get(headerTenantID))
	if tenantID == "" {
		writeRouteLeaseError(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required")
		return
	}
	resp, err := s.leases.Handler.ListAvailableRoutesHandler(
		r.Context(),
		tenantID,
		r.Header.Get(headerUserID),
		r.URL.Query().Get("day"),
	)
	if err != nil {
		s.writeRouteLeaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLease(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(r.Header.Get(headerTenantID))
	if tenantID == "" {
		writeRouteLeaseError(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required")
		return
	}
	resp, err := s.leases.Handler.GetLeaseHandler(r.Context(), tenantID, r.PathValue("route"), r.URL.Query().Get("day"))
	if err != nil {
		s.writeRouteLeaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimRoute(w http.ResponseWriter, r *http.Request) {
	tenantID, agentID, ok := requireAgentContext(w, r)
	if !ok {
		return
	}
	var req leasehttp.ClaimRouteRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeRouteLeaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.leases.Handler.ClaimRouteHandler(
		r.Context(),
		tenantID,
		agentID,
		strings.TrimSpace(r.Header.Get(headerUserName)),
		r.PathValue("route"),
		req,
	)
	if err != nil {
		s.writeRouteLeaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteRoute(w http.ResponseWriter, r *http.Request) {
	tenantID, agentID, ok := requireAgentContext(w, r)
	if !ok {
		return
	}
	var req leasehttp.CompleteRouteRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeRouteLeaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.leases.Handler.CompleteRouteHandler(r.Context(), tenantID, agentID, r.PathValue("route"), req)
	if err != nil {
		s.writeRouteLeaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReleaseRoute(w http.ResponseWriter, r *http.Request) {
	tenantID, agentID, ok := requireAgentContext(w, r)
	if !ok {
		return
	}
	var req leasehttp.ReleaseRouteRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeRouteLeaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.leases.Handler.ReleaseRouteHandler(r.Context(), tenantID, agentID, req)
	if err != nil {
		s.writeRouteLeaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHeartbeat always acknowledges, whatever the headers or store state.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	resp := s.leases.Handler.HeartbeatHandler(
		r.Context(),
		strings.TrimSpace(r.Header.Get(headerTenantID)),
		strings.TrimSpace(r.Header.Get(headerUserID)),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForceRelease(w http.ResponseWriter, r *http.Request) {
	adminID := strings.TrimSpace(r.Header.Get(headerAdminID))
	if adminID == "" {
		writeRouteLeaseError(w, http.StatusUnauthorized, "missing_admin", "X-Admin-Id header is required")
		return
	}
	tenantID := strings.TrimSpace(r.Header.Get(headerTenantID))
	if tenantID == "" {
		writeRouteLeaseError(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required")
		return
	}
	var req leasehttp.ForceReleaseRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeRouteLeaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.leases.Handler.ForceReleaseHandler(r.Context(), tenantID, adminID, r.PathValue("route"), req)
	if err != nil {
		s.writeRouteLeaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireAgentContext(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	tenantID := strings.TrimSpace(r.Header.Get(headerTenantID))
	if tenantID == "" {
		writeRouteLeaseError(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required")
		return "", "", false
	}
	agentID := strings.TrimSpace(r.Header.Get(headerUserID))
	if agentID == "" {
		writeRouteLeaseError(w, http.StatusBadRequest, "missing_agent", "X-User-Id header is required")
		return "", "", false
	}
	return tenantID, agentID, true
}

func (s *Server) writeRouteLeaseDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leasedomainerrors.ErrInvalidLeaseRequest):
		writeRouteLeaseError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, leasedomainerrors.ErrLeaseNotFound):
		writeRouteLeaseError(w, http.StatusNotFound, "lease_not_found", err.Error())
	case errors.Is(err, leasedomainerrors.ErrRouteAlreadyHeld):
		writeRouteLeaseError(w, http.StatusConflict, "route_already_held", err.Error())
	case errors.Is(err, leasedomainerrors.ErrRouteCompleted):
		writeRouteLeaseError(w, http.StatusConflict, "route_completed", err.Error())
	case errors.Is(err, leasedomainerrors.ErrRouteNotHeld):
		writeRouteLeaseError(w, http.StatusConflict, "route_not_held", err.Error())
	case errors.Is(err, leasedomainerrors.ErrLeaseConcurrentUpdate):
		writeRouteLeaseError(w, http.StatusConflict, "concurrent_update", err.Error())
	default:
		s.logger.Error("route lease request failed",
			"event", "http_route_lease_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeRouteLeaseError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRouteLeaseError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, leasehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeOptionalJSON accepts an empty body as the zero request.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
