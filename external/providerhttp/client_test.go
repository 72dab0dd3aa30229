package providerhttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/riskibarqy/match-aggregator/internal/platform/resilience"
)

func newTestClient(baseURL string, fetcher Fetcher, retries int) *Client {
	return NewClient(ClientConfig{
		Provider:   "espn",
		BaseURL:    baseURL,
		Fetcher:    fetcher,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
		Secrets:    []string{"s3cret"},
		Logger:     logging.NewNop(),
	})
}

func TestClient_RetriesRetryableStatusThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dates") != "20260412" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"events":[{"id":"401"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, 2)
	var payload struct {
		Events []struct {
			ID string `json:"id"`
		} `json:"events"`
	}
	if err := client.GetJSON(context.Background(), "/scoreboard", url.Values{"dates": {"20260412"}}, &payload); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if len(payload.Events) != 1 || payload.Events[0].ID != "401" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected one retry, got %d hits", hits.Load())
	}
}

func TestClient_NonRetryableStatusIsTypedUnavailable(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, nil, 3).Get(context.Background(), "/missing", nil)
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	typed, ok := provider.AsError(err)
	if !ok || typed.StatusCode != http.StatusNotFound || typed.Retryable {
		t.Fatalf("unexpected typed error: %+v", typed)
	}
	if hits.Load() != 1 {
		t.Fatalf("404 must not be retried, got %d hits", hits.Load())
	}
}

func TestClient_MalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events": [`))
	}))
	defer server.Close()

	var target map[string]any
	err := newTestClient(server.URL, nil, 0).GetJSON(context.Background(), "/scoreboard", nil, &target)
	if !errors.Is(err, provider.ErrMalformedData) {
		t.Fatalf("expected ErrMalformedData, got %v", err)
	}
}

type failingFetcher struct {
	calls atomic.Int32
}

func (f *failingFetcher) Fetch(context.Context, string, string, http.Header) (int, []byte, error) {
	f.calls.Add(1)
	return 0, nil, errors.New("dial tcp: lookup api.example.com?api_token=s3cret failed")
}

func TestClient_BreakerOpensAndErrorsAreRedacted(t *testing.T) {
	t.Parallel()

	fetcher := &failingFetcher{}
	client := NewClient(ClientConfig{
		Provider: "sportmonks",
		BaseURL:  "https://api.example.com",
		Fetcher:  fetcher,
		Secrets:  []string{"s3cret"},
		Logger:   logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
		},
	})

	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), "/fixtures", nil)
		if err == nil || strings.Contains(err.Error(), "s3cret") {
			t.Fatalf("expected redacted error, got %v", err)
		}
	}

	_, err := client.Get(context.Background(), "/fixtures", nil)
	if !errors.Is(err, resilience.ErrCircuitOpen) || !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("expected open circuit error, got %v", err)
	}
	if fetcher.calls.Load() != 2 {
		t.Fatalf("open breaker must not reach the fetcher, got %d calls", fetcher.calls.Load())
	}
}

func TestFastHTTPFetcher_Fetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	fetcher := NewFastHTTPFetcher(nil, time.Second, 0)
	status, body, err := fetcher.Fetch(context.Background(), http.MethodGet, server.URL+"/v1/games", http.Header{"Authorization": {"key-1"}})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if status != http.StatusOK || string(body) != `{"data":[]}` {
		t.Fatalf("unexpected response: status=%d body=%s", status, body)
	}
}

func TestClient_RedactsCredentialParams(t *testing.T) {
	t.Parallel()

	client := newTestClient("https://example.com", nil, 0)
	got := client.redact("https://example.com/x?api_token=abc&page=2 and s3cret")
	if strings.Contains(got, "abc") || strings.Contains(got, "s3cret") || !strings.Contains(got, "page=2") {
		t.Fatalf("unexpected redaction: %s", got)
	}
}

func TestClient_CancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(server.URL, nil, 0)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Get(firstCtx, "/scoreboard", nil)
		firstErr <- err
	}()
	<-started

	type result struct {
		body []byte
		err  error
	}
	second := make(chan result, 1)
	go func() {
		body, err := client.Get(context.Background(), "/scoreboard", nil)
		second <- result{body, err}
	}()

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) || !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("expected first caller to see its own cancellation, got %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	release <- struct{}{}
	got := <-second
	if got.err != nil || string(got.body) != `{"events":[]}` {
		t.Fatalf("expected second caller to get the shared body, got %q err=%v", got.body, got.err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one upstream request, got %d", hits.Load())
	}
}

func TestClient_RequestTimeoutBoundsSharedCall(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(ClientConfig{
		Provider:       "espn",
		BaseURL:        server.URL,
		Logger:         logging.NewNop(),
		RequestTimeout: 50 * time.Millisecond,
	})
	_, err := client.Get(context.Background(), "/scoreboard", nil)
	if !errors.Is(err, provider.ErrUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timed out unavailable error, got %v", err)
	}
}
