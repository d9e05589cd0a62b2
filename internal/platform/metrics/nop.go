package metrics

// NopMetrics discards every measurement. Used when metrics are disabled and in tests.
type NopMetrics struct{}

func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (n *NopMetrics) RecordLeaseOperation(_ string, _ string) {}

func (n *NopMetrics) RecordDeliveriesMoved(_ string, _ int) {}

func (n *NopMetrics) RecordReconcileRun(_ int, _ int) {}

func (n *NopMetrics) RecordOutboxPublished(_ int) {}
