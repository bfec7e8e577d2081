package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"junotreasury/core/events"
)

// EventMetrics counts committed treasury events.
type EventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *EventMetrics
)

// Events returns the metrics registry tracking structured treasury events.
func Events() *EventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &EventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "treasury",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed treasury events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Emit implements events.Emitter.
func (m *EventMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.emitted.WithLabelValues(normalizeLabel(strings.TrimSpace(evt.EventType()), "unknown")).Inc()
}
