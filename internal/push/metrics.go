package push

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts handled events by kind and terminal status.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics creates the engine counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushrouter",
			Name:      "events_total",
			Help:      "Push events handled, by kind and terminal status.",
		}, []string{"kind", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.events)
	}
	return m
}

func (m *Metrics) observe(kind Kind, status Status) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind.String(), string(status)).Inc()
}
