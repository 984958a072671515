package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter names are part of the observability contract.
const (
	CounterShortcutApplied          = "shortcut_applied"
	CounterEarlyTerminated          = "early_terminated"
	CounterFloorTriggered           = "confidence_floor_triggered"
	CounterConsolidationAdjustments = "consolidation_confidence_adjustments"
	CounterInvalidDetections        = "invalid_detections"
	CounterDeadlineUncertain        = "deadline_uncertain"
)

// Sink holds the in-process counters for the validation core. Increment
// points are fixed: the pipeline, the consolidator, and nowhere else.
type Sink struct {
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
}

// NewSink creates a sink with all counters registered on a private registry.
func NewSink() *Sink {
	registry := prometheus.NewRegistry()
	counters := make(map[string]prometheus.Counter)

	for _, name := range []string{
		CounterShortcutApplied,
		CounterEarlyTerminated,
		CounterFloorTriggered,
		CounterConsolidationAdjustments,
		CounterInvalidDetections,
		CounterDeadlineUncertain,
	} {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "style_analyzer",
			Name:      name,
		})
		registry.MustRegister(c)
		counters[name] = c
	}

	return &Sink{registry: registry, counters: counters}
}

// Inc increments a counter by name. Unknown names are ignored.
func (s *Sink) Inc(name string) {
	if c, ok := s.counters[name]; ok {
		c.Inc()
	}
}

// Handler exposes the counters in Prometheus text format. Mounted only when
// the exporter feature flag is set.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Snapshot returns the current counter values, for tests and debugging.
func (s *Sink) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(s.counters))
	mfs, err := s.registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				out[trimNamespace(mf.GetName())] = m.GetCounter().GetValue()
			}
		}
	}
	return out
}

func trimNamespace(name string) string {
	const prefix = "style_analyzer_"
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}
