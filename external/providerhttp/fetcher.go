package providerhttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultMaxBodyBytes = 6 << 20

// Fetcher performs a single HTTP exchange and returns the status and body.
// Transport errors are returned as-is; status handling belongs to Client.
type Fetcher interface {
	Fetch(ctx context.Context, method, fullURL string, header http.Header) (int, []byte, error)
}

// NetHTTPFetcher is the default net/http transport, traced through otelhttp.
type NetHTTPFetcher struct {
	client       *http.Client
	maxBodyBytes int64
}

func NewNetHTTPFetcher(client *http.Client, maxBodyBytes int64) *NetHTTPFetcher {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &NetHTTPFetcher{client: client, maxBodyBytes: maxBodyBytes}
}

func (f *NetHTTPFetcher) Fetch(ctx context.Context, method, fullURL string, header http.Header) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, f.maxBodyBytes)); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, append([]byte(nil), buf.B...), nil
}

// FastHTTPFetcher serves providers that are polled hard enough for fasthttp's
// pooled request objects to matter. Cancellation is honoured through the
// context deadline only.
type FastHTTPFetcher struct {
	client  *fasthttp.Client
	timeout time.Duration
}

func NewFastHTTPFetcher(client *fasthttp.Client, timeout time.Duration, maxBodyBytes int64) *FastHTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	if client == nil {
		client = &fasthttp.Client{
			Name:                "match-aggregator",
			MaxResponseBodySize: int(maxBodyBytes),
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		}
	}
	return &FastHTTPFetcher{client: client, timeout: timeout}
}

func (f *FastHTTPFetcher) Fetch(ctx context.Context, method, fullURL string, header http.Header) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(method)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	deadline := time.Now().Add(f.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, err
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), nil
}
