package resilience

import "time"

type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

// DefaultCircuitBreakerConfig opens after five straight failures and probes
// again after 15s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Enabled: true, FailureThreshold: 5, OpenTimeout: 15 * time.Second, HalfOpenMaxReq: 2}
}

// NormalizeCircuitBreakerConfig replaces non-positive limits with defaults.
// Enabled is left as given.
func NormalizeCircuitBreakerConfig(cfg CircuitBreakerConfig) CircuitBreakerConfig {
	def := DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = positiveOr(cfg.FailureThreshold, def.FailureThreshold)
	cfg.OpenTimeout = positiveOr(cfg.OpenTimeout, def.OpenTimeout)
	cfg.HalfOpenMaxReq = positiveOr(cfg.HalfOpenMaxReq, def.HalfOpenMaxReq)
	return cfg
}

func positiveOr[N int | time.Duration](v, fallback N) N {
	if v > 0 {
		return v
	}
	return fallback
}

// RetryPolicy bounds transport retries. Waits grow linearly with the attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Delay is the wait before zero-based retry attempt n.
func (p RetryPolicy) Delay(n int) time.Duration {
	return time.Duration(n+1) * positiveOr(p.Backoff, time.Second)
}
