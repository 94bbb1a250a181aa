package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/khanhnv2901/seca-recon/internal/metrics"
	consts "github.com/khanhnv2901/seca-recon/internal/shared/constants"
	"go.uber.org/zap"
)

// UserAgents is the pool a User-Agent header is drawn from for every request.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36 Edg/91.0.864.59",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
}

// DefaultHeaders are sent with every request.
var DefaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Cache-Control":             "max-age=0",
}

// Result is a fully read HTTP response.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       string
	FinalURL   string
}

// OK reports a 200 response.
func (r *Result) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Found reports any response other than 404.
func (r *Result) Found() bool {
	return r != nil && r.StatusCode != http.StatusNotFound
}

// Cookies parses the Set-Cookie headers of the response.
func (r *Result) Cookies() []*http.Cookie {
	if r == nil || len(r.Header) == 0 {
		return nil
	}
	return (&http.Response{Header: r.Header}).Cookies()
}

// Fetcher issues GET requests with a bounded timeout and retry budget.
type Fetcher struct {
	Client     *http.Client
	Timeout    time.Duration // Per-attempt timeout
	MaxRetries int           // Total attempts on timeout or connection failure
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// New creates a Fetcher with its own transport.
func New(timeout time.Duration, maxRetries int, logger *zap.Logger, m *metrics.Metrics) *Fetcher {
	if timeout <= 0 {
		timeout = consts.DefaultTimeout
	}
	return &Fetcher{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				TLSHandshakeTimeout: timeout,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Timeout:    timeout,
		MaxRetries: maxRetries,
		Logger:     logger,
		Metrics:    m,
	}
}

// Fetch GETs rawURL. Timeouts and connection failures are retried until
// MaxRetries attempts have been made; any other failure returns at once.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	log := f.logger()
	retries := f.MaxRetries
	if retries < 1 {
		retries = consts.DefaultRetries
	}

	var lastErr error
	lastKind := KindOther
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: classify(err), URL: rawURL, Attempts: attempt - 1, Err: err}
		}

		res, err := f.do(ctx, rawURL)
		if err == nil {
			f.Metrics.ObserveFetch(metrics.OutcomeOK)
			log.Debug("fetched", zap.String("url", rawURL), zap.Int("status", res.StatusCode), zap.Int("attempt", attempt))
			return res, nil
		}

		kind := classify(err)
		f.Metrics.ObserveFetch(outcomeLabel(kind))
		if !kind.Retryable() {
			log.Debug("fetch failed", zap.String("url", rawURL), zap.Stringer("kind", kind), zap.Error(err))
			return nil, &Error{Kind: kind, URL: rawURL, Attempts: attempt, Err: err}
		}

		log.Debug("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retries),
			zap.Stringer("kind", kind),
			zap.Error(err))
		lastErr, lastKind = err, kind
	}

	log.Warn("fetch retries exhausted", zap.String("url", rawURL), zap.Int("attempts", retries), zap.Error(lastErr))
	return nil, &Error{Kind: lastKind, URL: rawURL, Attempts: retries, Err: lastErr}
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*Result, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range DefaultHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", RandomUserAgent())

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       string(body),
		FinalURL:   finalURL,
	}, nil
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// RandomUserAgent returns one entry of UserAgents.
func RandomUserAgent() string {
	return UserAgents[rand.IntN(len(UserAgents))]
}

// Join resolves path against base the way a browser resolves a link.
func Join(base, path string) string {
	b, err := url.Parse(base)
	if err != nil {
		return base + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return base + path
	}
	return b.ResolveReference(ref).String()
}

func outcomeLabel(kind ErrorKind) string {
	switch kind {
	case KindTimeout:
		return metrics.OutcomeTimeout
	case KindConnection:
		return metrics.OutcomeConnection
	default:
		return metrics.OutcomeOther
	}
}
