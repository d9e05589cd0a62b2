package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector records route lease metrics on a Prometheus registry.
type PrometheusCollector struct {
	leaseOperations  *prometheus.CounterVec
	deliveriesMoved  *prometheus.CounterVec
	reconcileRuns    prometheus.Counter
	reconcileLeases  prometheus.Counter
	reconcileFailure prometheus.Counter
	outboxPublished  prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewPrometheus registers the collectors on reg. A nil reg uses a fresh registry,
// so parallel tests never collide on the global default.
func NewPrometheus(reg *prometheus.Registry, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "routeops"
	}

	p := &PrometheusCollector{
		leaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route_lease",
			Name:      "operations_total",
			Help:      "Route lease operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		deliveriesMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route_lease",
			Name:      "deliveries_moved_total",
			Help:      "Unresolved deliveries whose holder changed, by operation.",
		}, []string{"operation"}),
		reconcileRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route_lease",
			Name:      "reconcile_runs_total",
			Help:      "Completed reassignment reconciler sweeps.",
		}),
		reconcileLeases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route_lease",
			Name:      "reconcile_leases_total",
			Help:      "Held leases visited by the reconciler.",
		}),
		reconcileFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route_lease",
			Name:      "reconcile_failures_total",
			Help:      "Leases the reconciler failed to reassign.",
		}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route_lease",
			Name:      "outbox_published_total",
			Help:      "Outbox events relayed to the event bus.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		p.leaseOperations,
		p.deliveriesMoved,
		p.reconcileRuns,
		p.reconcileLeases,
		p.reconcileFailure,
		p.outboxPublished,
	)
	return p
}

func (p *PrometheusCollector) RecordLeaseOperation(operation string, outcome string) {
	p.leaseOperations.WithLabelValues(operation, outcome).Inc()
}

func (p *PrometheusCollector) RecordDeliveriesMoved(operation string, count int) {
	if count <= 0 {
		return
	}
	p.deliveriesMoved.WithLabelValues(operation).Add(float64(count))
}

func (p *PrometheusCollector) RecordReconcileRun(leases int, failures int) {
	p.reconcileRuns.Inc()
	p.reconcileLeases.Add(float64(leases))
	p.reconcileFailure.Add(float64(failures))
}

func (p *PrometheusCollector) RecordOutboxPublished(count int) {
	if count <= 0 {
		return
	}
	p.outboxPublished.Add(float64(count))
}

// Handler exposes the registry in the Prometheus text format.
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
