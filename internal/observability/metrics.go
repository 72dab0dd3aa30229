package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
)

var healthStatuses = []provider.HealthStatus{provider.HealthHealthy, provider.HealthDegraded, provider.HealthDown}

// ProviderMetrics records adapter calls, adapter health and live refresh passes.
type ProviderMetrics struct {
	calls       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	health      *prometheus.GaugeVec
	passes      *prometheus.CounterVec
	passLatency *prometheus.HistogramVec
}

// NewProviderMetrics registers the collectors on reg. A nil reg uses the
// default registerer.
func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &ProviderMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_provider_calls_total",
			Help: "Provider adapter calls by outcome.",
		}, []string{"provider", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "match_provider_call_duration_seconds",
			Help:    "Provider adapter call latency.",
			Buckets: prometheus.ExponentialBuckets(0.025, 2, 10),
		}, []string{"provider"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "match_provider_health_status",
			Help: "1 for the provider's current health status, 0 otherwise.",
		}, []string{"provider", "status"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_live_refresh_passes_total",
			Help: "Per-sport live refresh passes by outcome.",
		}, []string{"sport", "outcome"}),
		passLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "match_live_refresh_duration_seconds",
			Help:    "Per-sport live refresh duration.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"sport"}),
	}
	reg.MustRegister(m.calls, m.latency, m.health, m.passes, m.passLatency)
	return m
}

func (m *ProviderMetrics) ObserveProviderCall(providerName, outcome string, latency time.Duration) {
	m.calls.WithLabelValues(providerName, outcome).Inc()
	if latency > 0 {
		m.latency.WithLabelValues(providerName).Observe(latency.Seconds())
	}
}

func (m *ProviderMetrics) SetProviderHealth(providerName string, status provider.HealthStatus) {
	for _, candidate := range healthStatuses {
		value := 0.0
		if candidate == status {
			value = 1
		}
		m.health.WithLabelValues(providerName, string(candidate)).Set(value)
	}
}

func (m *ProviderMetrics) ObserveLivePass(sport, outcome string, duration time.Duration) {
	m.passes.WithLabelValues(sport, outcome).Inc()
	m.passLatency.WithLabelValues(sport).Observe(duration.Seconds())
}
