package usecase

import (
	"time"

	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
)

const (
	outcomeSuccess = "success"
	outcomeEmpty   = "empty"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
)

// ProviderMetrics receives aggregation and refresh telemetry.
type ProviderMetrics interface {
	ObserveProviderCall(providerName, outcome string, latency time.Duration)
	SetProviderHealth(providerName string, status provider.HealthStatus)
	ObserveLivePass(sport, outcome string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveProviderCall(string, string, time.Duration) {}
func (noopMetrics) SetProviderHealth(string, provider.HealthStatus)   {}
func (noopMetrics) ObserveLivePass(string, string, time.Duration)     {}

func metricsOrNoop(m ProviderMetrics) ProviderMetrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
