package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the relay's per-batch results.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	claimed prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "partyhub_outbox_events_total",
		Help: "Outbox rows handled by the relay, by result.",
	}, []string{"result"})
	claimed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "partyhub_outbox_batch_claimed",
		Help:    "Rows claimed per relay batch.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(events, claimed)
	return &OutboxMetrics{events: events, claimed: claimed}
}

// ObserveBatch records one relay pass. Zero counts still touch their series so
// dashboards see every result label from the first batch on.
func (m *OutboxMetrics) ObserveBatch(claimed, published, failed, parked, deferred int) {
	if m == nil || m.events == nil {
		return
	}
	m.claimed.Observe(float64(claimed))
	m.events.WithLabelValues("published").Add(float64(published))
	m.events.WithLabelValues("failed").Add(float64(failed))
	m.events.WithLabelValues("parked").Add(float64(parked))
	m.events.WithLabelValues("deferred").Add(float64(deferred))
}
