package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TreasuryMetrics records the outcome of treasury calls.
type TreasuryMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	pendingFee prometheus.Gauge
}

var (
	treasuryMetricsOnce sync.Once
	treasuryRegistry    *TreasuryMetrics
)

// Treasury returns the lazily-initialised treasury metrics registry.
func Treasury() *TreasuryMetrics {
	treasuryMetricsOnce.Do(func() {
		treasuryRegistry = &TreasuryMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "treasury",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Treasury calls segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "treasury",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for treasury calls including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			pendingFee: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "treasury",
				Subsystem: "engine",
				Name:      "pending_platform_fee",
				Help:      "Platform fee accrued and not yet withdrawn, in the native denomination.",
			}),
		}
		prometheus.MustRegister(
			treasuryRegistry.operations,
			treasuryRegistry.latency,
			treasuryRegistry.pendingFee,
		)
	})
	return treasuryRegistry
}

func normalizeLabel(value, fallback string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

// ObserveOperation records one call and its latency.
func (m *TreasuryMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	operation = normalizeLabel(operation, "unknown")
	m.operations.WithLabelValues(operation, normalizeLabel(outcome, "ok")).Inc()
	if elapsed > 0 {
		m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

// SetPendingFee publishes the pending fee. Values beyond float64 precision
// are rounded.
func (m *TreasuryMetrics) SetPendingFee(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return
	}
	m.pendingFee.Set(value)
}
