// Package collyfetcher implements checker.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// DefaultUserAgent identifies the checker to target servers.
const DefaultUserAgent = "check-text/1.0 (+contacto@tusitio.com)"

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements checker.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.UserAgent(cfg.UserAgent),
	)
	// Non-2xx responses are answers, not failures.
	c.ParseHTTPErrorResponse = true

	transport := newHTTPTransport()
	c.WithTransport(transport)
	// Clones share the backend client, so the timeout is fixed here and the
	// per-request deadline is enforced through the context in Fetch.
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET bounded by the request timeout (or the
// configured default).
func (f *Fetcher) Fetch(ctx context.Context, request checker.FetchRequest) (checker.FetchResponse, error) {
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		result   checker.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(ctx, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return checker.FetchResponse{}, checker.NewFetchError(request.URL, err)
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	start time.Time,
	result *checker.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.ParseHTTPErrorResponse = true
	// The request carries ctx, so a deadline or shutdown aborts it in flight.
	collector.Context = ctx
	f.configureCollectorHooks(collector, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *checker.FetchResponse,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		*result = checker.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return err
		}
		if *fetchErr != nil {
			return *fetchErr
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
