package application

import "routeops/contexts/route-operations/route-lease-service/ports"

// ResolveMetrics returns m, or a collector that drops everything when m is nil.
func ResolveMetrics(m ports.Metrics) ports.Metrics {
	if m != nil {
		return m
	}
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) RecordLeaseOperation(string, string) {}
func (nopMetrics) RecordDeliveriesMoved(string, int)   {}
func (nopMetrics) RecordReconcileRun(int, int)         {}
func (nopMetrics) RecordOutboxPublished(int)           {}
