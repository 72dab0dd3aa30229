package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/riskibarqy/match-aggregator/internal/usecase"
)

type fakeQueries struct {
	lastQuery match.Query
	page      match.Page
	err       error
	item      match.CanonicalMatch
	health    []provider.HealthRecord
}

func (f *fakeQueries) load(_ context.Context, query match.Query) (match.Page, error) {
	f.lastQuery = query
	return f.page, f.err
}

func (f *fakeQueries) SearchMatches(ctx context.Context, q match.Query) (match.Page, error) {
	return f.load(ctx, q)
}

func (f *fakeQueries) GetLiveMatches(ctx context.Context, q match.Query) (match.Page, error) {
	q.Status = match.StatusLive
	return f.load(ctx, q)
}

func (f *fakeQueries) GetScheduledMatches(ctx context.Context, q match.Query) (match.Page, error) {
	return f.load(ctx, q)
}

func (f *fakeQueries) GetFinishedMatches(ctx context.Context, q match.Query) (match.Page, error) {
	return f.load(ctx, q)
}

func (f *fakeQueries) GetMatch(_ context.Context, _ match.Sport, externalID string) (match.CanonicalMatch, error) {
	if externalID != f.item.ExternalID {
		return match.CanonicalMatch{}, fmt.Errorf("%w: match %s", usecase.ErrNotFound, externalID)
	}
	return f.item, nil
}

func (f *fakeQueries) GetHealthStatus() []provider.HealthRecord {
	return f.health
}

type fakeOps struct {
	token     string
	refreshes int
}

func (f *fakeOps) Authorize(token string) error {
	if token == "" || token != f.token {
		return usecase.ErrUnauthorized
	}
	return nil
}

func (f *fakeOps) Refresh(context.Context) usecase.LiveUpdateReport {
	f.refreshes++
	return usecase.LiveUpdateReport{SuccessCount: 2}
}

func (f *fakeOps) Start(context.Context) usecase.SchedulerStatus {
	return usecase.SchedulerStatus{Running: true, Interval: 45 * time.Second}
}

func (f *fakeOps) Stop(context.Context) usecase.SchedulerStatus {
	return usecase.SchedulerStatus{Interval: 45 * time.Second}
}

func (f *fakeOps) Status() usecase.OperationsStatus {
	return usecase.OperationsStatus{Scheduler: usecase.SchedulerStatus{Running: true}}
}

func (f *fakeOps) ResetProvider(_ context.Context, name string) (provider.HealthRecord, error) {
	if name != "espn" {
		return provider.HealthRecord{}, usecase.ErrNotFound
	}
	return provider.HealthRecord{Provider: name, Status: provider.HealthHealthy}, nil
}

func newTestRouter(queries *fakeQueries, ops *fakeOps) http.Handler {
	handler := NewHandler(queries, ops, logging.NewNop())
	return NewRouter(handler, logging.NewNop(), RouterConfig{CORSAllowedOrigins: []string{"*"}})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestHandler_ListLiveMatches(t *testing.T) {
	t.Parallel()

	queries := &fakeQueries{page: match.Page{
		Matches: []match.CanonicalMatch{{
			ExternalID:  "espn-401",
			Provider:    "espn",
			Sport:       match.SportFootball,
			League:      match.League{Name: "Premier League"},
			HomeTeam:    match.Team{Name: "Arsenal"},
			AwayTeam:    match.Team{Name: "Chelsea"},
			ScheduledAt: time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC),
			Status:      match.StatusLive,
			Minute:      match.IntPtr(67),
			HomeScore:   match.IntPtr(2),
			AwayScore:   match.IntPtr(1),
		}},
		Pagination: match.Pagination{Page: 2, Limit: 1, Total: 3, TotalPages: 3, HasMore: true},
		Source:     match.SourceAPI,
	}}
	router := newTestRouter(queries, &fakeOps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/matches/live?sport=soccer&page=2&limit=1&date_to=2026-10-15", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if queries.lastQuery.Sport != match.SportFootball || queries.lastQuery.Page != 2 || queries.lastQuery.Limit != 1 {
		t.Fatalf("unexpected query: %+v", queries.lastQuery)
	}
	wantTo := time.Date(2026, 10, 15, 23, 59, 59, 999999999, time.UTC)
	if queries.lastQuery.DateTo == nil || !queries.lastQuery.DateTo.Equal(wantTo) {
		t.Fatalf("expected date_to to cover the whole day, got %v", queries.lastQuery.DateTo)
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	matches, _ := data["matches"].([]any)
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %v", data["matches"])
	}
	first, _ := matches[0].(map[string]any)
	if first["external_id"] != "espn-401" || first["minute"] != float64(67) {
		t.Fatalf("unexpected match payload: %v", first)
	}
	pagination, _ := data["pagination"].(map[string]any)
	if pagination["has_more"] != true || pagination["total_pages"] != float64(3) {
		t.Fatalf("unexpected pagination: %v", pagination)
	}
	if data["source"] != "api" {
		t.Fatalf("unexpected source: %v", data["source"])
	}
}

func TestHandler_RejectsBadQueryBeforeCallingService(t *testing.T) {
	t.Parallel()

	cases := []string{
		"/v1/matches/search?sport=curling",
		"/v1/matches/search?status=halftime-ish",
		"/v1/matches/search?page=abc",
		"/v1/matches/search?date_from=15-10-2026",
		"/v1/matches/search?source=cache",
	}
	for _, target := range cases {
		queries := &fakeQueries{}
		router := newTestRouter(queries, &fakeOps{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
		if queries.lastQuery != (match.Query{}) {
			t.Fatalf("%s: service should not be called", target)
		}
	}
}

func TestHandler_ExhaustedProvidersIs503(t *testing.T) {
	t.Parallel()

	queries := &fakeQueries{err: fmt.Errorf("%w: espn: timeout", usecase.ErrAllProvidersExhausted)}
	router := newTestRouter(queries, &fakeOps{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/search?search=arsenal", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if queries.lastQuery.Search != "arsenal" {
		t.Fatalf("unexpected search text: %q", queries.lastQuery.Search)
	}
}

func TestHandler_GetMatch(t *testing.T) {
	t.Parallel()

	queries := &fakeQueries{item: match.CanonicalMatch{ExternalID: "espn-401", Sport: match.SportFootball}}
	router := newTestRouter(queries, &fakeOps{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/football/espn-401", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/football/espn-999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_ProviderHealth(t *testing.T) {
	t.Parallel()

	queries := &fakeQueries{health: []provider.HealthRecord{
		{Provider: "espn", Status: provider.HealthHealthy, LastLatency: 120 * time.Millisecond},
		{Provider: "sportmonks", Status: provider.HealthDown, ConsecutiveFailures: 6},
	}}
	router := newTestRouter(queries, &fakeOps{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/providers/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	data, _ := decodeEnvelope(t, rec)["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("expected two records, got %v", data)
	}
	first, _ := data[0].(map[string]any)
	if first["last_latency_ms"] != float64(120) {
		t.Fatalf("unexpected latency: %v", first["last_latency_ms"])
	}
}

func TestHandler_OpsRoutesRequireToken(t *testing.T) {
	t.Parallel()

	ops := &fakeOps{token: "s3cret"}
	router := newTestRouter(&fakeQueries{}, ops)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ops/refresh", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if ops.refreshes != 0 {
		t.Fatalf("refresh must not run without a token")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/ops/refresh", nil)
	req.Header.Set(opsTokenHeader, "s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || ops.refreshes != 1 {
		t.Fatalf("expected one refresh, got status=%d refreshes=%d", rec.Code, ops.refreshes)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/ops/start", nil)
	req.Header.Set(opsTokenHeader, "s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	data, _ := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["running"] != true || data["interval"] != "45s" {
		t.Fatalf("unexpected scheduler status: %v", data)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/ops/providers/unknown/reset", nil)
	req.Header.Set(opsTokenHeader, "s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown provider, got %d", rec.Code)
	}
}

func TestRecoverPanic(t *testing.T) {
	t.Parallel()

	handler := recoverPanic(logging.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/live", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
