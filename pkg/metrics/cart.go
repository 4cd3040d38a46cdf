package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart store activity.
type CartMetrics struct {
	mutations       *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	loadFailures    prometheus.Counter
	activeSessions  prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations applied, by operation.",
	}, []string{"op"})
	persistFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Cart writes to storage that failed, by operation.",
	}, []string{"op"})
	loadFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_storage_load_failures_total",
		Help: "Stored carts that could not be read or parsed and were replaced by an empty cart.",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_sessions_active",
		Help: "Cart stores currently held in memory.",
	})
	reg.MustRegister(mutations, persistFailures, loadFailures, activeSessions)
	return &CartMetrics{
		mutations:       mutations,
		persistFailures: persistFailures,
		loadFailures:    loadFailures,
		activeSessions:  activeSessions,
	}
}

func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

func (c *CartMetrics) IncPersistFailure(op string) {
	if c == nil || c.persistFailures == nil {
		return
	}
	c.persistFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

func (c *CartMetrics) IncLoadFailure() {
	if c == nil || c.loadFailures == nil {
		return
	}
	c.loadFailures.Inc()
}

func (c *CartMetrics) SetActiveSessions(n int) {
	if c == nil || c.activeSessions == nil {
		return
	}
	c.activeSessions.Set(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
