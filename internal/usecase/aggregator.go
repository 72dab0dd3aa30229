package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const defaultAdapterTimeout = 8 * time.Second

// ListMode selects how status-scoped listings use the candidate adapters.
type ListMode string

const (
	// ListShortCircuit stops at the first adapter returning a non-empty result.
	ListShortCircuit ListMode = "short_circuit"
	// ListFanOut queries every candidate concurrently and merges, like search.
	ListFanOut ListMode = "fan_out"
)

func ParseListMode(value string) (ListMode, bool) {
	switch ListMode(value) {
	case ListShortCircuit, "":
		return ListShortCircuit, true
	case ListFanOut:
		return ListFanOut, true
	default:
		return "", false
	}
}

type AggregatorConfig struct {
	AdapterTimeout time.Duration
	ListMode       ListMode
	MaxConcurrency int
}

// ProviderFailure is one adapter that could not answer.
type ProviderFailure struct {
	Provider string
	Err      error
}

// Outcome is what the aggregator could determine for one request.
type Outcome struct {
	Matches    []match.CanonicalMatch
	Providers  []string
	Failures   []ProviderFailure
	NoProvider bool
}

// Err exposes the no-provider case for callers that distinguish it from an
// ordinary empty result.
func (o Outcome) Err() error {
	if o.NoProvider {
		return ErrNoProviderForSport
	}
	return nil
}

type Aggregator struct {
	registry   *provider.Registry
	health     *HealthMonitor
	normalizer *Normalizer
	metrics    ProviderMetrics
	logger     *logging.Logger
	cfg        AggregatorConfig
	now        func() time.Time
}

func NewAggregator(
	registry *provider.Registry,
	health *HealthMonitor,
	normalizer *Normalizer,
	metrics ProviderMetrics,
	logger *logging.Logger,
	cfg AggregatorConfig,
) *Aggregator {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = defaultAdapterTimeout
	}
	if cfg.ListMode == "" {
		cfg.ListMode = ListShortCircuit
	}
	if normalizer == nil {
		normalizer = NewNormalizer(logger)
	}
	for _, adapter := range registry.All() {
		health.Register(adapter.Name())
	}
	return &Aggregator{
		registry:   registry,
		health:     health,
		normalizer: normalizer,
		metrics:    metricsOrNoop(metrics),
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Search queries every eligible adapter concurrently and merges the results.
func (a *Aggregator) Search(ctx context.Context, query match.Query) (Outcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Aggregator.Search")
	defer span.End()

	candidates := a.candidates(query.Sport)
	span.SetAttributes(attribute.String("sport", string(query.Sport)), attribute.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		return Outcome{NoProvider: true, Matches: []match.CanonicalMatch{}}, nil
	}

	outcome, err := a.fanOut(ctx, candidates, func(ctx context.Context, adapter provider.Adapter) ([]match.CanonicalMatch, error) {
		return adapter.Search(ctx, query)
	})
	if err != nil {
		recordSpanError(span, err)
		return outcome, err
	}

	outcome.Matches = filterMatches(a.normalizer.Normalize(ctx, outcome.Matches, KeyByTeams), query.Matches)
	sortForListing(outcome.Matches, query.Status)
	return outcome, nil
}

// List returns matches for one sport and status. In short-circuit mode the
// adapters are tried in health order and the first non-empty answer wins.
func (a *Aggregator) List(ctx context.Context, sport match.Sport, status match.Status, dates match.DateRange) (Outcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Aggregator.List")
	defer span.End()

	candidates := a.candidates(sport)
	span.SetAttributes(
		attribute.String("sport", string(sport)),
		attribute.String("status", string(status)),
		attribute.Int("candidates", len(candidates)),
	)
	if len(candidates) == 0 {
		return Outcome{NoProvider: true, Matches: []match.CanonicalMatch{}}, nil
	}

	fetch := func(ctx context.Context, adapter provider.Adapter) ([]match.CanonicalMatch, error) {
		return adapter.FetchBySport(ctx, sport, dates, status)
	}

	var (
		outcome Outcome
		err     error
		key     DedupKey = KeyByExternalID
	)
	if a.cfg.ListMode == ListFanOut {
		outcome, err = a.fanOut(ctx, candidates, fetch)
		key = KeyByTeams
	} else {
		outcome, err = a.firstNonEmpty(ctx, candidates, fetch)
	}
	if err != nil {
		recordSpanError(span, err)
		return outcome, err
	}

	keep := func(m match.CanonicalMatch) bool {
		return (status == "" || m.Status == status) && dates.Contains(m.ScheduledAt)
	}
	outcome.Matches = filterMatches(a.normalizer.Normalize(ctx, outcome.Matches, key), keep)
	sortForListing(outcome.Matches, status)
	return outcome, nil
}

// Probe issues a cheap live fetch against one adapter so a DOWN adapter can recover.
func (a *Aggregator) Probe(ctx context.Context, name string) error {
	adapter, ok := a.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: unknown provider %s", ErrNotFound, name)
	}
	sports := adapter.Sports()
	if len(sports) == 0 {
		return fmt.Errorf("%w: provider %s declares no sport", ErrValidation, name)
	}
	_, err := a.call(ctx, adapter, func(ctx context.Context, adapter provider.Adapter) ([]match.CanonicalMatch, error) {
		return adapter.FetchBySport(ctx, sports[0], match.DateRange{}, match.StatusLive)
	})
	return err
}

// candidates returns supporting adapters healthiest-first. DOWN adapters are
// only returned when nothing else is available.
func (a *Aggregator) candidates(sport match.Sport) []provider.Adapter {
	var eligible []provider.Adapter
	if sport == "" {
		eligible = a.registry.All()
	} else {
		eligible = a.registry.Supporting(sport)
	}
	if len(eligible) == 0 {
		return nil
	}

	byName := make(map[string]provider.Adapter, len(eligible))
	names := make([]string, 0, len(eligible))
	for _, adapter := range eligible {
		byName[adapter.Name()] = adapter
		names = append(names, adapter.Name())
	}

	usable := make([]provider.Adapter, 0, len(eligible))
	down := make([]provider.Adapter, 0)
	for _, name := range a.health.Order(names) {
		if a.health.Status(name) == provider.HealthDown {
			down = append(down, byName[name])
			continue
		}
		usable = append(usable, byName[name])
	}
	if len(usable) > 0 {
		for _, adapter := range down {
			a.metrics.ObserveProviderCall(adapter.Name(), outcomeSkipped, 0)
		}
		return usable
	}
	return down
}

type adapterCall func(ctx context.Context, adapter provider.Adapter) ([]match.CanonicalMatch, error)

type candidateResult struct {
	index   int
	name    string
	matches []match.CanonicalMatch
	err     error
}

// fanOut runs every candidate concurrently. Results are merged in candidate
// order so completion order never leaks into the output.
func (a *Aggregator) fanOut(ctx context.Context, candidates []provider.Adapter, fn adapterCall) (Outcome, error) {
	workers := a.cfg.MaxConcurrency
	if workers <= 0 || workers > len(candidates) {
		workers = len(candidates)
	}

	p := pool.NewWithResults[candidateResult]().WithMaxGoroutines(workers)
	for i, adapter := range candidates {
		p.Go(func() candidateResult {
			items, err := a.call(ctx, adapter, fn)
			return candidateResult{index: i, name: adapter.Name(), matches: items, err: err}
		})
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	return collectOutcome(results)
}

func (a *Aggregator) firstNonEmpty(ctx context.Context, candidates []provider.Adapter, fn adapterCall) (Outcome, error) {
	results := make([]candidateResult, 0, len(candidates))
	for i, adapter := range candidates {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		items, err := a.call(ctx, adapter, fn)
		results = append(results, candidateResult{index: i, name: adapter.Name(), matches: items, err: err})
		if err == nil && len(items) > 0 {
			break
		}
	}
	return collectOutcome(results)
}

func collectOutcome(results []candidateResult) (Outcome, error) {
	outcome := Outcome{Matches: []match.CanonicalMatch{}}
	errs := make([]error, 0)
	for _, res := range results {
		if res.err != nil {
			outcome.Failures = append(outcome.Failures, ProviderFailure{Provider: res.name, Err: res.err})
			errs = append(errs, res.err)
			continue
		}
		outcome.Providers = append(outcome.Providers, res.name)
		outcome.Matches = append(outcome.Matches, res.matches...)
	}
	if len(outcome.Providers) == 0 {
		return outcome, fmt.Errorf("%w: %w", ErrAllProvidersExhausted, errors.Join(errs...))
	}
	return outcome, nil
}

// call wraps one adapter invocation with its own timeout and feeds the result
// into health tracking. A cancelled parent request does not count against the adapter.
func (a *Aggregator) call(ctx context.Context, adapter provider.Adapter, fn adapterCall) ([]match.CanonicalMatch, error) {
	name := adapter.Name()
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.AdapterTimeout)
	defer cancel()

	start := a.now()
	items, err := fn(callCtx, adapter)
	latency := a.now().Sub(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A cancellation this request did not cause says nothing about the adapter.
		if errors.Is(err, context.Canceled) {
			a.logger.DebugContext(ctx, "provider call cancelled", "provider", name, "error", err)
			return nil, err
		}
		a.health.RecordFailure(name, err, latency)
		a.metrics.ObserveProviderCall(name, outcomeFailure, latency)
		a.logger.WarnContext(ctx, "provider call failed", "provider", name, "latency_ms", latency.Milliseconds(), "error", err)
		return nil, err
	}

	a.health.RecordSuccess(name, latency)
	outcome := outcomeSuccess
	if len(items) == 0 {
		outcome = outcomeEmpty
	}
	a.metrics.ObserveProviderCall(name, outcome, latency)
	for i := range items {
		if items[i].Provider == "" {
			items[i].Provider = name
		}
	}
	return items, nil
}

func filterMatches(items []match.CanonicalMatch, keep func(match.CanonicalMatch) bool) []match.CanonicalMatch {
	out := items[:0]
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// ProviderNames lists registered adapters, sorted.
func (a *Aggregator) ProviderNames() []string {
	return a.registry.Names()
}

// Sports lists every sport at least one adapter declares.
func (a *Aggregator) Sports() []match.Sport {
	return a.registry.Sports()
}
