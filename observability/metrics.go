package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeMetrics wraps the collectors tracking contract runtime activity:
// operation volume, host faults, and per-invocation storage footprint.
type RuntimeMetrics struct {
	operations *prometheus.CounterVec
	faults     *prometheus.CounterVec
	touched    prometheus.Histogram
}

var (
	runtimeMetricsOnce sync.Once
	runtimeRegistry    *RuntimeMetrics
)

// Runtime returns the lazily-initialised metrics registry for the contract
// runtime adapter.
func Runtime() *RuntimeMetrics {
	runtimeMetricsOnce.Do(func() {
		runtimeRegistry = &RuntimeMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "zenith",
				Subsystem: "runtime",
				Name:      "operations_total",
				Help:      "Count of contract host operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			faults: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "zenith",
				Subsystem: "runtime",
				Name:      "host_faults_total",
				Help:      "Count of internal failures crossing the sandbox boundary, segmented by fault kind.",
			}, []string{"kind"}),
			touched: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "zenith",
				Subsystem: "runtime",
				Name:      "touched_nodes",
				Help:      "Distribution of backing-store nodes visited per contract invocation.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			}),
		}
		prometheus.MustRegister(
			runtimeRegistry.operations,
			runtimeRegistry.faults,
			runtimeRegistry.touched,
		)
	})
	return runtimeRegistry
}

// RecordOp counts one host operation. The outcome is derived from err so
// call sites cannot drift from the label convention.
func (m *RuntimeMetrics) RecordOp(op string, err error) {
	if m == nil {
		return
	}
	if op = strings.TrimSpace(op); op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// RecordFault counts one internal failure by kind. Kinds should be the
// stable strings exposed by the runtime fault classifier.
func (m *RuntimeMetrics) RecordFault(kind string) {
	if m == nil {
		return
	}
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = "unknown"
	}
	m.faults.WithLabelValues(kind).Inc()
}

// ObserveInvocation records the storage footprint of one completed contract
// invocation.
func (m *RuntimeMetrics) ObserveInvocation(touchedNodes uint64) {
	if m == nil {
		return
	}
	m.touched.Observe(float64(touchedNodes))
}
