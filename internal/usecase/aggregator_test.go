package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/match-aggregator/external/providerhttp"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	providermock "github.com/riskibarqy/match-aggregator/internal/mocks/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

type stubAdapter struct {
	name   string
	sports []match.Sport
	search func(ctx context.Context, query match.Query) ([]match.CanonicalMatch, error)
	fetch  func(ctx context.Context, sport match.Sport, dates match.DateRange, status match.Status) ([]match.CanonicalMatch, error)
	calls  atomic.Int32
}

func (s *stubAdapter) Name() string          { return s.name }
func (s *stubAdapter) Sports() []match.Sport { return s.sports }

func (s *stubAdapter) Search(ctx context.Context, query match.Query) ([]match.CanonicalMatch, error) {
	s.calls.Add(1)
	if s.search == nil {
		return nil, nil
	}
	return s.search(ctx, query)
}

func (s *stubAdapter) FetchBySport(ctx context.Context, sport match.Sport, dates match.DateRange, status match.Status) ([]match.CanonicalMatch, error) {
	s.calls.Add(1)
	if s.fetch == nil {
		return nil, nil
	}
	return s.fetch(ctx, sport, dates, status)
}

func returning(items []match.CanonicalMatch, err error) func(context.Context, match.Sport, match.DateRange, match.Status) ([]match.CanonicalMatch, error) {
	return func(context.Context, match.Sport, match.DateRange, match.Status) ([]match.CanonicalMatch, error) {
		return items, err
	}
}

func newTestAggregator(t *testing.T, cfg AggregatorConfig, adapters ...provider.Adapter) (*Aggregator, *HealthMonitor) {
	t.Helper()

	registry := provider.NewRegistry()
	for _, adapter := range adapters {
		if err := registry.Register(adapter); err != nil {
			t.Fatalf("register adapter: %v", err)
		}
	}
	health := NewHealthMonitor(HealthMonitorConfig{}, logging.NewNop(), nil)
	return NewAggregator(registry, health, NewNormalizer(logging.NewNop()), nil, logging.NewNop(), cfg), health
}

func liveFootball(ids ...string) []match.CanonicalMatch {
	kickoff := time.Date(2026, 4, 12, 15, 0, 0, 0, time.UTC)
	out := make([]match.CanonicalMatch, 0, len(ids))
	for i, id := range ids {
		m := testMatch(id, match.StatusLive, kickoff.Add(time.Duration(i)*time.Hour))
		m.HomeTeam.Name = "Home " + id
		m.AwayTeam.Name = "Away " + id
		out = append(out, m)
	}
	return out
}

func TestAggregator_SearchSurvivesUnavailableAdapter(t *testing.T) {
	t.Parallel()

	failing := &stubAdapter{
		name:   "a",
		sports: []match.Sport{match.SportFootball},
		search: func(context.Context, match.Query) ([]match.CanonicalMatch, error) {
			return nil, provider.Unavailable("a", 503, errors.New("service unavailable"))
		},
	}
	healthy := &stubAdapter{
		name:   "b",
		sports: []match.Sport{match.SportFootball},
		search: func(context.Context, match.Query) ([]match.CanonicalMatch, error) {
			return liveFootball("b-1"), nil
		},
	}
	agg, health := newTestAggregator(t, AggregatorConfig{}, failing, healthy)

	outcome, err := agg.Search(context.Background(), match.Query{Sport: match.SportFootball, Search: "home"}.WithDefaults())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(outcome.Matches) != 1 || outcome.Matches[0].ExternalID != "b-1" {
		t.Fatalf("expected b's match, got %+v", outcome.Matches)
	}
	if len(outcome.Failures) != 1 || !errors.Is(outcome.Failures[0].Err, provider.ErrUnavailable) {
		t.Fatalf("expected a's failure recorded, got %+v", outcome.Failures)
	}
	record, _ := health.Record("a")
	if record.ConsecutiveFailures != 1 {
		t.Fatalf("expected one failure for a, got %d", record.ConsecutiveFailures)
	}
}

func TestAggregator_LiveFootballSkipsDownAdapter(t *testing.T) {
	t.Parallel()

	healthy := &stubAdapter{
		name:   "a",
		sports: []match.Sport{match.SportFootball},
		fetch:  returning(liveFootball("a-1", "a-2"), nil),
	}
	down := providermock.NewAdapter(t)
	down.On("Name").Return("b").Maybe()
	down.On("Sports").Return([]match.Sport{match.SportFootball}).Maybe()

	agg, health := newTestAggregator(t, AggregatorConfig{ListMode: ListFanOut}, healthy, down)
	for i := 0; i < defaultDownAfter; i++ {
		health.RecordFailure("b", errors.New("timeout"), 0)
	}

	outcome, err := agg.List(context.Background(), match.SportFootball, match.StatusLive, match.DateRange{})
	if err != nil {
		t.Fatalf("list live: %v", err)
	}
	if len(outcome.Matches) != 2 {
		t.Fatalf("expected exactly a's 2 matches, got %d", len(outcome.Matches))
	}
	if len(outcome.Failures) != 0 {
		t.Fatalf("expected no failures, got %+v", outcome.Failures)
	}
	down.AssertNotCalled(t, "FetchBySport", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAggregator_NoAdapterForSportIsEmptyNotError(t *testing.T) {
	t.Parallel()

	football := &stubAdapter{name: "a", sports: []match.Sport{match.SportFootball}}
	agg, _ := newTestAggregator(t, AggregatorConfig{}, football)

	outcome, err := agg.List(context.Background(), match.SportTennis, match.StatusLive, match.DateRange{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !outcome.NoProvider || len(outcome.Matches) != 0 || outcome.Matches == nil {
		t.Fatalf("expected empty no-provider outcome, got %+v", outcome)
	}
	if !errors.Is(outcome.Err(), ErrNoProviderForSport) {
		t.Fatalf("expected ErrNoProviderForSport, got %v", outcome.Err())
	}
	if football.calls.Load() != 0 {
		t.Fatalf("unsupported adapter must not be called")
	}
}

func TestAggregator_AllFailIsExhausted(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{name: "a", sports: []match.Sport{match.SportFootball}, fetch: returning(nil, provider.Unavailable("a", 500, nil))}
	b := &stubAdapter{name: "b", sports: []match.Sport{match.SportFootball}, fetch: returning(nil, provider.Malformed("b", errors.New("bad json")))}
	agg, _ := newTestAggregator(t, AggregatorConfig{}, a, b)

	_, err := agg.List(context.Background(), match.SportFootball, match.StatusScheduled, match.DateRange{})
	if !errors.Is(err, ErrAllProvidersExhausted) {
		t.Fatalf("expected ErrAllProvidersExhausted, got %v", err)
	}
	if !errors.Is(err, provider.ErrUnavailable) || !errors.Is(err, provider.ErrMalformedData) {
		t.Fatalf("expected both adapter errors in chain, got %v", err)
	}
}

func TestAggregator_DownAdapterTriedAsLastResort(t *testing.T) {
	t.Parallel()

	only := &stubAdapter{name: "a", sports: []match.Sport{match.SportFootball}, fetch: returning(liveFootball("a-1"), nil)}
	agg, health := newTestAggregator(t, AggregatorConfig{}, only)
	for i := 0; i < defaultDownAfter; i++ {
		health.RecordFailure("a", errors.New("timeout"), 0)
	}

	outcome, err := agg.List(context.Background(), match.SportFootball, match.StatusLive, match.DateRange{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcome.Matches) != 1 {
		t.Fatalf("expected last-resort result, got %d", len(outcome.Matches))
	}
	if got := health.Status("a"); got != provider.HealthHealthy {
		t.Fatalf("expected success to heal adapter, got %s", got)
	}
}

func TestAggregator_ShortCircuitStopsAtFirstNonEmpty(t *testing.T) {
	t.Parallel()

	empty := &stubAdapter{name: "a", sports: []match.Sport{match.SportFootball}, fetch: returning(nil, nil)}
	answering := &stubAdapter{name: "b", sports: []match.Sport{match.SportFootball}, fetch: returning(liveFootball("b-1"), nil)}
	untouched := &stubAdapter{name: "c", sports: []match.Sport{match.SportFootball}, fetch: returning(liveFootball("c-1"), nil)}
	agg, _ := newTestAggregator(t, AggregatorConfig{}, empty, answering, untouched)

	outcome, err := agg.List(context.Background(), match.SportFootball, match.StatusLive, match.DateRange{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcome.Matches) != 1 || outcome.Matches[0].ExternalID != "b-1" {
		t.Fatalf("expected b's answer, got %+v", outcome.Matches)
	}
	if empty.calls.Load() != 1 || untouched.calls.Load() != 0 {
		t.Fatalf("unexpected calls: a=%d c=%d", empty.calls.Load(), untouched.calls.Load())
	}
}

func TestAggregator_FanOutMergeIgnoresCompletionOrder(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 4, 12, 15, 0, 0, 0, time.UTC)
	slowScheduled := testMatch("a-1", match.StatusScheduled, kickoff)
	fastLive := testMatch("b-1", match.StatusLive, kickoff)

	slow := &stubAdapter{
		name:   "a",
		sports: []match.Sport{match.SportFootball},
		search: func(ctx context.Context, _ match.Query) ([]match.CanonicalMatch, error) {
			time.Sleep(30 * time.Millisecond)
			return []match.CanonicalMatch{slowScheduled}, nil
		},
	}
	fast := &stubAdapter{
		name:   "b",
		sports: []match.Sport{match.SportFootball},
		search: func(context.Context, match.Query) ([]match.CanonicalMatch, error) {
			return []match.CanonicalMatch{fastLive}, nil
		},
	}
	agg, _ := newTestAggregator(t, AggregatorConfig{}, slow, fast)

	outcome, err := agg.Search(context.Background(), match.Query{Search: "arsenal"}.WithDefaults())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(outcome.Matches) != 1 || outcome.Matches[0].Status != match.StatusLive {
		t.Fatalf("expected merged live record, got %+v", outcome.Matches)
	}
	if outcome.Providers[0] != "a" || outcome.Providers[1] != "b" {
		t.Fatalf("expected providers in candidate order, got %v", outcome.Providers)
	}
}

func TestAggregator_AdapterTimeoutDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	hung := &stubAdapter{
		name:   "a",
		sports: []match.Sport{match.SportFootball},
		search: func(ctx context.Context, _ match.Query) ([]match.CanonicalMatch, error) {
			<-ctx.Done()
			return nil, provider.Unavailable("a", 0, ctx.Err())
		},
	}
	quick := &stubAdapter{
		name:   "b",
		sports: []match.Sport{match.SportFootball},
		search: func(context.Context, match.Query) ([]match.CanonicalMatch, error) {
			return liveFootball("b-1"), nil
		},
	}
	agg, health := newTestAggregator(t, AggregatorConfig{AdapterTimeout: 50 * time.Millisecond}, hung, quick)

	started := time.Now()
	outcome, err := agg.Search(context.Background(), match.Query{Sport: match.SportFootball}.WithDefaults())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("search waited too long: %s", elapsed)
	}
	if len(outcome.Matches) != 1 {
		t.Fatalf("expected quick adapter result, got %d", len(outcome.Matches))
	}
	if record, _ := health.Record("a"); record.ConsecutiveFailures != 1 {
		t.Fatalf("expected timeout counted as failure, got %+v", record)
	}
}

func TestAggregator_ForeignCancellationIsNotAFailure(t *testing.T) {
	t.Parallel()

	adapter := &stubAdapter{
		name:   "a",
		sports: []match.Sport{match.SportFootball},
		fetch:  returning(nil, provider.Unavailable("a", 0, context.Canceled)),
	}
	agg, health := newTestAggregator(t, AggregatorConfig{}, adapter)

	for range 3 {
		if _, err := agg.List(context.Background(), match.SportFootball, match.StatusLive, match.DateRange{}); err == nil {
			t.Fatalf("expected the cancellation to surface")
		}
	}
	record, _ := health.Record("a")
	if record.Status != provider.HealthHealthy || record.ConsecutiveFailures != 0 {
		t.Fatalf("expected adapter to stay healthy, got %+v", record)
	}
}

func TestAggregator_AbandonedRequestDoesNotHurtSharedProviderCall(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := providerhttp.NewClient(providerhttp.ClientConfig{
		Provider: "a",
		BaseURL:  server.URL,
		Logger:   logging.NewNop(),
	})
	adapter := &stubAdapter{
		name:   "a",
		sports: []match.Sport{match.SportFootball},
		fetch: func(ctx context.Context, _ match.Sport, _ match.DateRange, _ match.Status) ([]match.CanonicalMatch, error) {
			if _, err := client.Get(ctx, "/scoreboard", nil); err != nil {
				return nil, err
			}
			return liveFootball("a-1"), nil
		},
	}
	agg, health := newTestAggregator(t, AggregatorConfig{AdapterTimeout: 5 * time.Second}, adapter)

	for round := 0; round < 3; round++ {
		abandoned, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := agg.List(abandoned, match.SportFootball, match.StatusLive, match.DateRange{})
			firstErr <- err
		}()
		<-started

		second := make(chan error, 1)
		go func() {
			outcome, err := agg.List(context.Background(), match.SportFootball, match.StatusLive, match.DateRange{})
			if err == nil && len(outcome.Matches) != 1 {
				err = errors.New("expected the shared result")
			}
			second <- err
		}()

		cancel()
		if err := <-firstErr; !errors.Is(err, context.Canceled) {
			t.Fatalf("round %d: expected abandoned request to be cancelled, got %v", round, err)
		}
		time.Sleep(50 * time.Millisecond)
		release <- struct{}{}
		if err := <-second; err != nil {
			t.Fatalf("round %d: waiting request failed: %v", round, err)
		}
	}

	record, _ := health.Record("a")
	if record.Status != provider.HealthHealthy || record.ConsecutiveFailures != 0 {
		t.Fatalf("expected adapter to stay healthy, got %+v", record)
	}
}

func TestAggregator_FanOutRespectsMaxConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	search := func(context.Context, match.Query) ([]match.CanonicalMatch, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := peak.Load()
			if n <= seen || peak.CompareAndSwap(seen, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	}
	adapters := make([]provider.Adapter, 0, 4)
	stubs := make([]*stubAdapter, 0, 4)
	for _, name := range []string{"a", "b", "c", "d"} {
		stub := &stubAdapter{name: name, sports: []match.Sport{match.SportFootball}, search: search}
		stubs = append(stubs, stub)
		adapters = append(adapters, stub)
	}
	agg, _ := newTestAggregator(t, AggregatorConfig{MaxConcurrency: 2}, adapters...)

	if _, err := agg.Search(context.Background(), match.Query{Sport: match.SportFootball, Search: "home"}.WithDefaults()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent adapter calls, got %d", got)
	}
	for _, stub := range stubs {
		if stub.calls.Load() != 1 {
			t.Fatalf("expected %s to be called once, got %d", stub.name, stub.calls.Load())
		}
	}
}
