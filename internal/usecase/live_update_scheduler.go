package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultLiveRefreshInterval = 45 * time.Second

	// staleLiveLimit caps how many persisted LIVE rows one pass reconciles.
	staleLiveLimit = 200
)

const (
	passStatusSuccess = "success"
	passStatusFailed  = "failed"
	passStatusSkipped = "skipped"
)

// LiveUpdatePublisher fans refreshed live matches out to downstream consumers.
type LiveUpdatePublisher interface {
	PublishLiveMatches(ctx context.Context, sport match.Sport, items []match.CanonicalMatch) error
}

type LiveUpdateConfig struct {
	Interval   time.Duration
	Sports     []match.Sport
	MaxWorkers int
	RunOnStart bool
}

type SportPassResult struct {
	Sport      match.Sport `json:"sport"`
	Status     string      `json:"status"`
	Fetched    int         `json:"fetched"`
	Upserted   int         `json:"upserted"`
	Settled    int         `json:"settled"`
	Providers  []string    `json:"providers,omitempty"`
	DurationMs int64       `json:"duration_ms"`
	Message    string      `json:"message,omitempty"`
}

type LiveUpdateReport struct {
	Skipped      bool              `json:"skipped"`
	StartedAt    time.Time         `json:"started_at"`
	DurationMs   int64             `json:"duration_ms"`
	SuccessCount int               `json:"success_count"`
	FailedCount  int               `json:"failed_count"`
	SkippedCount int               `json:"skipped_count"`
	Sports       []SportPassResult `json:"sports"`
	Probed       []string          `json:"probed,omitempty"`
}

type SchedulerStatus struct {
	Running    bool              `json:"running"`
	InFlight   bool              `json:"in_flight"`
	Interval   time.Duration     `json:"interval"`
	LastRunAt  *time.Time        `json:"last_run_at,omitempty"`
	LastReport *LiveUpdateReport `json:"last_report,omitempty"`
}

// LiveUpdateScheduler periodically refreshes live matches into the repository.
// A pass that finds another pass in flight is skipped, never queued.
type LiveUpdateScheduler struct {
	aggregator *Aggregator
	health     *HealthMonitor
	normalizer *Normalizer
	repo       match.Repository
	publisher  LiveUpdatePublisher
	metrics    ProviderMetrics
	logger     *logging.Logger
	cfg        LiveUpdateConfig
	now        func() time.Time

	inFlight atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	reportMu   sync.RWMutex
	lastReport *LiveUpdateReport
}

func NewLiveUpdateScheduler(
	aggregator *Aggregator,
	health *HealthMonitor,
	repo match.Repository,
	publisher LiveUpdatePublisher,
	metrics ProviderMetrics,
	logger *logging.Logger,
	cfg LiveUpdateConfig,
) *LiveUpdateScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultLiveRefreshInterval
	}
	return &LiveUpdateScheduler{
		aggregator: aggregator,
		health:     health,
		normalizer: aggregator.normalizer,
		repo:       repo,
		publisher:  publisher,
		metrics:    metricsOrNoop(metrics),
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Start launches the ticker loop. It returns false when already running.
func (s *LiveUpdateScheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	go s.loop(loopCtx)

	s.logger.InfoContext(ctx, "live update scheduler started", "interval", s.cfg.Interval.String())
	return true
}

// Stop cancels the loop without waiting for an in-flight pass. Safe to call
// repeatedly; it returns false when the scheduler was not running.
func (s *LiveUpdateScheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.cancel()
	s.cancel = nil
	s.running = false

	s.logger.Info("live update scheduler stopped")
	return true
}

func (s *LiveUpdateScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := SchedulerStatus{
		Running:  running,
		InFlight: s.inFlight.Load(),
		Interval: s.cfg.Interval,
	}

	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	if s.lastReport != nil {
		report := *s.lastReport
		startedAt := report.StartedAt
		status.LastRunAt = &startedAt
		status.LastReport = &report
	}
	return status
}

func (s *LiveUpdateScheduler) loop(ctx context.Context) {
	// A pass outlives Stop so it can finish writing its results.
	passCtx := context.WithoutCancel(ctx)

	if s.cfg.RunOnStart {
		go s.UpdateAllMatches(passCtx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go s.UpdateAllMatches(passCtx)
		}
	}
}

// UpdateAllMatches runs one refresh pass over every configured sport. Sport
// failures are logged and counted; they never abort the pass or escalate.
func (s *LiveUpdateScheduler) UpdateAllMatches(ctx context.Context) LiveUpdateReport {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.ObserveLivePass("all", outcomeSkipped, 0)
		s.logger.InfoContext(ctx, "live update pass skipped, previous pass still running")
		return LiveUpdateReport{Skipped: true, StartedAt: s.now().UTC(), Sports: []SportPassResult{}}
	}
	defer s.inFlight.Store(false)

	ctx, span := startUsecaseSpan(ctx, "usecase.LiveUpdateScheduler.UpdateAllMatches")
	defer span.End()

	started := s.now()
	report := LiveUpdateReport{StartedAt: started.UTC(), Sports: []SportPassResult{}}

	sports := s.sports()
	span.SetAttributes(attribute.Int("sports", len(sports)))
	if len(sports) > 0 {
		report.Sports = s.runSports(ctx, sports)
	}
	for _, row := range report.Sports {
		switch row.Status {
		case passStatusSuccess:
			report.SuccessCount++
		case passStatusSkipped:
			report.SkippedCount++
		default:
			report.FailedCount++
		}
	}

	report.Probed = s.probeDownProviders(ctx)
	report.DurationMs = s.now().Sub(started).Milliseconds()

	s.reportMu.Lock()
	s.lastReport = &report
	s.reportMu.Unlock()

	s.logger.InfoContext(ctx, "live update pass finished",
		"sports", len(report.Sports),
		"success", report.SuccessCount,
		"failed", report.FailedCount,
		"skipped", report.SkippedCount,
		"duration_ms", report.DurationMs,
	)
	return report
}

func (s *LiveUpdateScheduler) sports() []match.Sport {
	if len(s.cfg.Sports) > 0 {
		return s.cfg.Sports
	}
	return s.aggregator.Sports()
}

func (s *LiveUpdateScheduler) runSports(ctx context.Context, sports []match.Sport) []SportPassResult {
	workers := s.cfg.MaxWorkers
	if workers <= 0 || workers > len(sports) {
		workers = len(sports)
	}

	results := make(chan SportPassResult, len(sports))
	pool, err := ants.NewPool(workers)
	if err != nil {
		s.logger.ErrorContext(ctx, "create live update worker pool failed, refreshing sequentially", "error", err)
		for _, sport := range sports {
			results <- s.refreshSport(ctx, sport)
		}
	} else {
		defer pool.Release()

		var workersWG sync.WaitGroup
		for _, sport := range sports {
			workersWG.Add(1)
			if err := pool.Submit(func() {
				defer workersWG.Done()
				results <- s.refreshSport(ctx, sport)
			}); err != nil {
				workersWG.Done()
				results <- SportPassResult{Sport: sport, Status: passStatusFailed, Message: fmt.Sprintf("submit to worker pool: %v", err)}
			}
		}
		workersWG.Wait()
	}
	close(results)

	out := make([]SportPassResult, 0, len(sports))
	for row := range results {
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sport < out[j].Sport })
	return out
}

func (s *LiveUpdateScheduler) refreshSport(ctx context.Context, sport match.Sport) (row SportPassResult) {
	start := s.now()
	row = SportPassResult{Sport: sport}
	defer func() {
		duration := s.now().Sub(start)
		row.DurationMs = duration.Milliseconds()
		s.metrics.ObserveLivePass(string(sport), row.Status, duration)
	}()
	defer func() {
		if r := recover(); r != nil {
			row.Status = passStatusFailed
			row.Message = fmt.Sprintf("panic: %v", r)
			s.logger.ErrorContext(ctx, "live update panicked", "sport", sport, "panic", r)
		}
	}()

	outcome, err := s.aggregator.List(ctx, sport, match.StatusLive, match.DateRange{})
	if err != nil {
		row.Status = passStatusFailed
		row.Message = err.Error()
		s.logger.WarnContext(ctx, "live update fetch failed", "sport", sport, "error", err)
		return row
	}
	if outcome.NoProvider {
		row.Status = passStatusSkipped
		row.Message = ErrNoProviderForSport.Error()
		return row
	}

	items := s.normalizer.Normalize(ctx, outcome.Matches, KeyByExternalID)
	row.Fetched = len(items)
	row.Providers = outcome.Providers

	if len(items) > 0 {
		if err := s.repo.UpsertMatches(ctx, items); err != nil {
			row.Status = passStatusFailed
			row.Message = err.Error()
			s.logger.ErrorContext(ctx, "live update upsert failed", "sport", sport, "count", len(items), "error", err)
			return row
		}
		row.Upserted = len(items)

		if s.publisher != nil {
			if err := s.publisher.PublishLiveMatches(ctx, sport, items); err != nil {
				s.logger.WarnContext(ctx, "publish live matches failed", "sport", sport, "error", err)
			}
		}
	}

	row.Settled = s.settleEndedMatches(ctx, sport, items)
	row.Status = passStatusSuccess
	return row
}

// settleEndedMatches refreshes persisted LIVE rows that dropped out of the
// current live listing. A match that ended is only reported by the finished
// listing, so without this its row would keep its last live score forever.
// Rows no provider reports as finished yet are left for the next pass.
func (s *LiveUpdateScheduler) settleEndedMatches(ctx context.Context, sport match.Sport, live []match.CanonicalMatch) int {
	persisted, _, err := s.repo.Find(ctx, match.Filter{Sport: sport, Status: match.StatusLive, Limit: staleLiveLimit})
	if err != nil {
		s.logger.WarnContext(ctx, "read persisted live matches failed", "sport", sport, "error", err)
		return 0
	}

	current := make(map[string]struct{}, len(live))
	for _, item := range live {
		current[KeyByExternalID(item)] = struct{}{}
	}
	stale := make(map[string]struct{})
	var earliest time.Time
	for _, item := range persisted {
		key := KeyByExternalID(item)
		if _, ok := current[key]; ok {
			continue
		}
		stale[key] = struct{}{}
		if earliest.IsZero() || item.ScheduledAt.Before(earliest) {
			earliest = item.ScheduledAt
		}
	}
	if len(stale) == 0 {
		return 0
	}

	from := earliest.UTC().Truncate(24 * time.Hour)
	to := s.now().UTC()
	outcome, err := s.aggregator.List(ctx, sport, match.StatusFinished, match.DateRange{From: &from, To: &to})
	if err != nil {
		s.logger.WarnContext(ctx, "fetch finished matches for stale live rows failed", "sport", sport, "stale", len(stale), "error", err)
		return 0
	}

	settled := make([]match.CanonicalMatch, 0, len(stale))
	for _, item := range s.normalizer.Normalize(ctx, outcome.Matches, KeyByExternalID) {
		if _, ok := stale[KeyByExternalID(item)]; ok {
			settled = append(settled, item)
		}
	}
	if len(settled) == 0 {
		s.logger.DebugContext(ctx, "stale live matches not reported as finished yet", "sport", sport, "stale", len(stale))
		return 0
	}
	if err := s.repo.UpsertMatches(ctx, settled); err != nil {
		s.logger.WarnContext(ctx, "settle ended matches failed", "sport", sport, "count", len(settled), "error", err)
		return 0
	}
	s.logger.InfoContext(ctx, "settled ended matches", "sport", sport, "count", len(settled), "unresolved", len(stale)-len(settled))
	return len(settled)
}

// probeDownProviders gives DOWN adapters a chance to recover without user traffic.
func (s *LiveUpdateScheduler) probeDownProviders(ctx context.Context) []string {
	probed := make([]string, 0)
	for _, name := range s.aggregator.ProviderNames() {
		if !s.health.DueForProbe(name) {
			continue
		}
		probed = append(probed, name)
		if err := s.aggregator.Probe(ctx, name); err != nil {
			s.logger.InfoContext(ctx, "probe of down provider failed", "provider", name, "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "down provider recovered after probe", "provider", name)
	}
	return probed
}
