package routeleaseservice

import (
	"log/slog"
	"time"

	"routeops/contexts/route-operations/route-lease-service/adapters/calendar"
	httpadapter "routeops/contexts/route-operations/route-lease-service/adapters/http"
	"routeops/contexts/route-operations/route-lease-service/adapters/memory"
	"routeops/contexts/route-operations/route-lease-service/application/commands"
	"routeops/contexts/route-operations/route-lease-service/application/queries"
	"routeops/contexts/route-operations/route-lease-service/application/reassignment"
	"routeops/contexts/route-operations/route-lease-service/application/workers"
	"routeops/contexts/route-operations/route-lease-service/domain/services"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

// Module is the composition surface of the route lease service.
// Runtime wiring should consume Handler; Store is exposed for tests/inspection.
type Module struct {
	Handler      httpadapter.Handler
	Reassignment reassignment.Engine
	Store        *memory.Store
}

type Dependencies struct {
	Leases      ports.LeaseRepository
	Deliveries  ports.DeliveryStore
	Routes      ports.RouteMembershipResolver
	Calendar    ports.TenantCalendar
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	StaleAfter  time.Duration
	MaxAttempts int
	Logger      *slog.Logger
}

// NewModule wires the lease use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	staleness := services.StalenessPolicy{Threshold: deps.StaleAfter}
	engine := reassignment.Engine{
		Deliveries: deps.Deliveries,
		Routes:     deps.Routes,
		Calendar:   deps.Calendar,
		Metrics:    deps.Metrics,
		Logger:     deps.Logger,
	}

	handler := httpadapter.Handler{
		ListRoutes: queries.ListAvailableRoutesUseCase{
			Leases:     deps.Leases,
			Deliveries: deps.Deliveries,
			Routes:     deps.Routes,
			Calendar:   deps.Calendar,
			Clock:      deps.Clock,
			Staleness:  staleness,
			Logger:     deps.Logger,
		},
		GetLease: queries.GetLeaseUseCase{
			Leases:    deps.Leases,
			Calendar:  deps.Calendar,
			Clock:     deps.Clock,
			Staleness: staleness,
			Logger:    deps.Logger,
		},
		ClaimRoute: commands.ClaimRouteUseCase{
			Leases:       deps.Leases,
			Reassignment: engine,
			Calendar:     deps.Calendar,
			Clock:        deps.Clock,
			IDGenerator:  deps.IDGenerator,
			Staleness:    staleness,
			MaxAttempts:  deps.MaxAttempts,
			Metrics:      deps.Metrics,
			Logger:       deps.Logger,
		},
		ReleaseRoute: commands.ReleaseRouteUseCase{
			Leases:       deps.Leases,
			Reassignment: engine,
			Calendar:     deps.Calendar,
			Clock:        deps.Clock,
			IDGenerator:  deps.IDGenerator,
			MaxAttempts:  deps.MaxAttempts,
			Metrics:      deps.Metrics,
			Logger:       deps.Logger,
		},
		Heartbeat: commands.HeartbeatUseCase{
			Leases:   deps.Leases,
			Calendar: deps.Calendar,
			Clock:    deps.Clock,
			Metrics:  deps.Metrics,
			Logger:   deps.Logger,
		},
		ForceRelease: commands.ForceReleaseUseCase{
			Leases:      deps.Leases,
			Calendar:    deps.Calendar,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			MaxAttempts: deps.MaxAttempts,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		CompleteRoute: commands.CompleteRouteUseCase{
			Leases:      deps.Leases,
			Calendar:    deps.Calendar,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			MaxAttempts: deps.MaxAttempts,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		Logger: deps.Logger,
	}

	return Module{Handler: handler, Reassignment: engine}
}

// NewReconciler builds the sweep that repairs delivery holders after failed
// best-effort reassignments.
func (m Module) NewReconciler(leases ports.LeaseRepository, clock ports.Clock, metrics ports.Metrics, logger *slog.Logger) workers.ReassignmentReconciler {
	return workers.ReassignmentReconciler{
		Leases:       leases,
		Reassignment: m.Reassignment,
		Clock:        clock,
		Metrics:      metrics,
		Logger:       logger,
	}
}

// NewInMemoryModule wires the lease use cases against the in-memory store and a
// UTC calendar. Used by tests and local runs without a database.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore(logger)
	cal, err := calendar.NewStaticCalendar("UTC", nil)
	if err != nil {
		panic(err)
	}
	module := NewModule(Dependencies{
		Leases:      store,
		Deliveries:  store,
		Routes:      store,
		Calendar:    cal,
		Clock:       store,
		IDGenerator: store,
		StaleAfter:  services.DefaultStaleAfter,
		Logger:      logger,
	})
	module.Store = store
	return module
}
