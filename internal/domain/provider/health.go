package provider

import "time"

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthDown     HealthStatus = "DOWN"
)

// Preference orders statuses for candidate selection; lower is preferred.
func (s HealthStatus) Preference() int {
	switch s {
	case HealthHealthy:
		return 0
	case HealthDegraded:
		return 1
	default:
		return 2
	}
}

// HealthRecord is the rolling per-adapter health state.
type HealthRecord struct {
	Provider            string
	Status              HealthStatus
	ConsecutiveFailures int
	LastSuccessAt       *time.Time
	LastFailureAt       *time.Time
	LastAttemptAt       *time.Time
	LastLatency         time.Duration
	LastError           string
	TotalCalls          int64
	TotalFailures       int64
}
