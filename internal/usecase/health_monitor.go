package usecase

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
)

const (
	defaultDegradedAfter = 3
	defaultDownAfter     = 6
	defaultProbeInterval = time.Minute
)

type HealthMonitorConfig struct {
	DegradedAfter int
	DownAfter     int
	ProbeInterval time.Duration
}

func (c HealthMonitorConfig) normalize() HealthMonitorConfig {
	if c.DegradedAfter <= 0 {
		c.DegradedAfter = defaultDegradedAfter
	}
	if c.DownAfter <= c.DegradedAfter {
		c.DownAfter = max(defaultDownAfter, c.DegradedAfter+1)
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = defaultProbeInterval
	}
	return c
}

type healthEntry struct {
	mu     sync.Mutex
	record provider.HealthRecord
}

// HealthMonitor keeps one rolling record per adapter. Updates are atomic per
// adapter; readers may observe a slightly stale view across adapters.
type HealthMonitor struct {
	cfg     HealthMonitorConfig
	logger  *logging.Logger
	metrics ProviderMetrics
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*healthEntry
}

func NewHealthMonitor(cfg HealthMonitorConfig, logger *logging.Logger, metrics ProviderMetrics) *HealthMonitor {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthMonitor{
		cfg:     cfg.normalize(),
		logger:  logger,
		metrics: metricsOrNoop(metrics),
		now:     time.Now,
		entries: make(map[string]*healthEntry),
	}
}

// Register creates a HEALTHY record if the adapter is unknown.
func (m *HealthMonitor) Register(name string) {
	m.entry(name)
}

func (m *HealthMonitor) RecordSuccess(name string, latency time.Duration) {
	e := m.entry(name)
	now := m.now().UTC()

	e.mu.Lock()
	prev := e.record.Status
	e.record.ConsecutiveFailures = 0
	e.record.Status = provider.HealthHealthy
	e.record.LastSuccessAt = &now
	e.record.LastAttemptAt = &now
	e.record.LastLatency = latency
	e.record.LastError = ""
	e.record.TotalCalls++
	e.mu.Unlock()

	m.transition(e.record.Provider, prev, provider.HealthHealthy)
}

func (m *HealthMonitor) RecordFailure(name string, err error, latency time.Duration) {
	e := m.entry(name)
	now := m.now().UTC()

	e.mu.Lock()
	prev := e.record.Status
	e.record.ConsecutiveFailures++
	e.record.Status = m.statusFor(e.record.ConsecutiveFailures)
	e.record.LastFailureAt = &now
	e.record.LastAttemptAt = &now
	e.record.LastLatency = latency
	if err != nil {
		e.record.LastError = err.Error()
	}
	e.record.TotalCalls++
	e.record.TotalFailures++
	next := e.record.Status
	e.mu.Unlock()

	m.transition(e.record.Provider, prev, next)
}

// Status returns HEALTHY for adapters that were never registered.
func (m *HealthMonitor) Status(name string) provider.HealthStatus {
	e, ok := m.lookup(name)
	if !ok {
		return provider.HealthHealthy
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.Status
}

func (m *HealthMonitor) Record(name string) (provider.HealthRecord, bool) {
	e, ok := m.lookup(name)
	if !ok {
		return provider.HealthRecord{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyHealthRecord(e.record), true
}

// Snapshot returns every record sorted by provider name.
func (m *HealthMonitor) Snapshot() []provider.HealthRecord {
	m.mu.RLock()
	entries := make([]*healthEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]provider.HealthRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, copyHealthRecord(e.record))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Reset re-enables an adapter. Lifetime totals are kept.
func (m *HealthMonitor) Reset(name string) bool {
	e, ok := m.lookup(name)
	if !ok {
		return false
	}
	e.mu.Lock()
	prev := e.record.Status
	e.record.Status = provider.HealthHealthy
	e.record.ConsecutiveFailures = 0
	e.record.LastError = ""
	e.mu.Unlock()

	m.transition(e.record.Provider, prev, provider.HealthHealthy)
	return true
}

// DueForProbe reports whether a DOWN adapter has been idle for a full probe interval.
func (m *HealthMonitor) DueForProbe(name string) bool {
	e, ok := m.lookup(name)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.Status != provider.HealthDown {
		return false
	}
	if e.record.LastAttemptAt == nil {
		return true
	}
	return m.now().Sub(*e.record.LastAttemptAt) >= m.cfg.ProbeInterval
}

// Order sorts names healthiest-first, keeping the input order within a status.
func (m *HealthMonitor) Order(names []string) []string {
	out := append([]string(nil), names...)
	prefs := make(map[string]int, len(out))
	for _, name := range out {
		prefs[name] = m.Status(name).Preference()
	}
	sort.SliceStable(out, func(i, j int) bool { return prefs[out[i]] < prefs[out[j]] })
	return out
}

func (m *HealthMonitor) statusFor(failures int) provider.HealthStatus {
	switch {
	case failures >= m.cfg.DownAfter:
		return provider.HealthDown
	case failures >= m.cfg.DegradedAfter:
		return provider.HealthDegraded
	default:
		return provider.HealthHealthy
	}
}

func (m *HealthMonitor) transition(name string, from, to provider.HealthStatus) {
	m.metrics.SetProviderHealth(name, to)
	if from == to {
		return
	}
	log := m.logger.Info
	if to != provider.HealthHealthy {
		log = m.logger.Warn
	}
	log("provider health changed", "provider", name, "from", from, "to", to)
}

func (m *HealthMonitor) lookup(name string) (*healthEntry, bool) {
	key := healthKey(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}

func (m *HealthMonitor) entry(name string) *healthEntry {
	if e, ok := m.lookup(name); ok {
		return e
	}

	key := healthKey(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return e
	}
	e := &healthEntry{record: provider.HealthRecord{Provider: key, Status: provider.HealthHealthy}}
	m.entries[key] = e
	m.metrics.SetProviderHealth(key, provider.HealthHealthy)
	return e
}

func healthKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func copyHealthRecord(r provider.HealthRecord) provider.HealthRecord {
	r.LastSuccessAt = copyTime(r.LastSuccessAt)
	r.LastFailureAt = copyTime(r.LastFailureAt)
	r.LastAttemptAt = copyTime(r.LastAttemptAt)
	return r
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
