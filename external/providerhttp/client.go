package providerhttp

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/riskibarqy/match-aggregator/internal/platform/resilience"
)

// defaultRequestTimeout bounds one shared upstream call, retries included.
const defaultRequestTimeout = 30 * time.Second

var secretParamRegex = regexp.MustCompile(`(?i)(api_token|api_key|apikey|key|token)=[^&\s"']+`)

type ClientConfig struct {
	Provider       string
	BaseURL        string
	Fetcher        Fetcher
	Header         http.Header
	MaxRetries     int
	Backoff        time.Duration
	Secrets        []string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	// RequestTimeout bounds a shared call independently of the callers
	// waiting on it.
	RequestTimeout time.Duration
}

// Client is the shared provider transport: circuit breaker, request
// collapsing, bounded retries and typed provider errors.
type Client struct {
	provider       string
	baseURL        string
	fetcher        Fetcher
	header         http.Header
	retry          resilience.RetryPolicy
	timeout        time.Duration
	secrets        []string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewNetHTTPFetcher(nil, 0)
	}

	secrets := make([]string, 0, len(cfg.Secrets))
	for _, secret := range cfg.Secrets {
		if secret = strings.TrimSpace(secret); secret != "" {
			secrets = append(secrets, secret)
		}
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	client := &Client{
		provider:       cfg.Provider,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		fetcher:        fetcher,
		header:         cfg.Header.Clone(),
		retry:          resilience.RetryPolicy{MaxRetries: max(cfg.MaxRetries, 0), Backoff: cfg.Backoff},
		timeout:        cfg.RequestTimeout,
		secrets:        secrets,
		logger:         logger,
		circuitEnabled: breakerCfg.Enabled,
	}
	if client.timeout <= 0 {
		client.timeout = defaultRequestTimeout
	}
	client.breaker = resilience.NewCircuitBreaker(cfg.Provider, breakerCfg, func(name string, from, to resilience.CircuitState) {
		logger.Warn("provider circuit breaker state changed", "provider", name, "from", from, "to", to)
	})
	return client
}

func (c *Client) Provider() string {
	return c.provider
}

// GetJSON fetches path and decodes the body into target with sonic.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) error {
	raw, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return provider.Malformed(c.provider, err)
	}
	return nil
}

// Get returns the raw body of a successful GET. Concurrent identical requests
// share one upstream call. That call runs detached from every caller, so a
// caller that gives up only abandons its own wait.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err, _ := c.flight.Do(ctx, fullURL, func() ([]byte, error) {
		if c.circuitEnabled {
			if err := c.breaker.Allow(); err != nil {
				return nil, provider.Unavailable(c.provider, 0, err)
			}
		}

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		body, reqErr := c.execute(callCtx, fullURL)
		if c.circuitEnabled {
			if isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return body, reqErr
	})
	if err != nil && ctx.Err() != nil && crerr.Is(err, ctx.Err()) {
		return nil, provider.Unavailable(c.provider, 0, err)
	}
	return raw, err
}

func (c *Client) execute(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr *provider.Error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		status, body, err := c.fetcher.Fetch(ctx, http.MethodGet, fullURL, c.header)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, provider.Unavailable(c.provider, 0, ctx.Err())
			}
			lastErr = provider.Unavailable(c.provider, 0, crerr.Newf("send request: %s", c.redact(err.Error())))
		case status >= 200 && status < 300:
			return body, nil
		default:
			lastErr = provider.Unavailable(c.provider, status, crerr.Newf("body=%s", abbreviateBody(body)))
		}

		if !lastErr.Retryable || attempt == c.retry.MaxRetries {
			break
		}
		timer := time.NewTimer(c.retry.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, provider.Unavailable(c.provider, 0, ctx.Err())
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "provider request failed", "provider", c.provider, "url", c.redact(fullURL), "error", lastErr)
	return nil, lastErr
}

// redact strips configured secrets and well-known credential parameters.
func (c *Client) redact(value string) string {
	for _, secret := range c.secrets {
		value = strings.ReplaceAll(value, secret, "REDACTED")
	}
	return secretParamRegex.ReplaceAllString(value, "$1=REDACTED")
}

// isCircuitFailure counts transport errors and retryable statuses only; a 404
// says nothing about upstream availability.
func isCircuitFailure(err error) bool {
	if err == nil || crerr.Is(err, context.Canceled) {
		return false
	}
	typed, ok := provider.AsError(err)
	if !ok {
		return true
	}
	return typed.Retryable
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
