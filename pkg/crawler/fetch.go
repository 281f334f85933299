package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

var (
	// ErrRateLimited is returned for an HTTP 429 answer
	ErrRateLimited = errors.New("rate limited")

	// ErrUnexpectedStatus is returned for any status other than 200, 404 and 429
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrDisallowed is returned when robots.txt forbids the URL
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// robotsAgent is the product token matched against robots.txt groups
const robotsAgent = "tgcatalog"

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

func getRandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// randomHeaders builds browser-like navigation headers. Accept-Encoding is left to the
// transport so compressed bodies are decoded transparently.
func randomHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                getRandomUserAgent(),
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
	}
}

// HTTPFetcher fetches catalog pages over HTTP with pacing, retries and header rotation
type HTTPFetcher struct {
	client  *resty.Client
	limiter *RateLimiter
	robots  *robotsCache
	opts    Options
	log     zerolog.Logger
}

// NewHTTPFetcher creates a fetcher with a session cookie jar and the configured proxy and timeout
func NewHTTPFetcher(opts Options, log zerolog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(opts.Timeout)
	if opts.Proxy != "" {
		u, err := url.Parse(opts.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL %q", opts.Proxy)
		}
		client.SetProxy(opts.Proxy)
	}
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		log.Debug().
			Str("url", res.Request.URL).
			Int("status", res.StatusCode()).
			Int("bytes", len(res.Body())).
			Dur("elapsed", res.Time()).
			Msg("response received")
		return nil
	})

	f := &HTTPFetcher{
		client:  client,
		limiter: NewRateLimiter(opts.RequestsPerSecond, 1),
		opts:    opts,
		log:     log,
	}
	if opts.RespectRobots {
		f.robots = newRobotsCache(client, log)
	}
	return f, nil
}

// Fetch retrieves pageURL. 200 and 404 are returned as responses; 429, other statuses and
// transport errors are retried with backoff until the attempts run out.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Response, error) {
	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, pageURL, robotsAgent)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
		}
	}

	policy := NewBackOff(f.opts.BackoffInitial, f.opts.BackoffMax)
	log := f.log.With().Str("url", pageURL).Logger()

	return Retry(ctx, f.opts.MaxAttempts, policy, log, func(attempt int) (*Response, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		log.Info().Int("attempt", attempt).Msg("requesting page")
		return f.fetchOnce(ctx, pageURL)
	})
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, pageURL string) (*Response, error) {
	res, err := f.client.R().
		SetContext(ctx).
		SetHeaders(randomHeaders()).
		Get(pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("request %s: %w", pageURL, err)
	}

	switch status := res.StatusCode(); status {
	case http.StatusOK, http.StatusNotFound:
		body, err := DecodeBody(res.Body(), res.Header().Get("Content-Type"))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", pageURL, err)
		}
		return &Response{URL: pageURL, StatusCode: status, Body: body}, nil
	case http.StatusTooManyRequests:
		pause := f.limiter.SetCooldown(f.opts.RateLimitCooldown)
		f.log.Warn().Str("url", pageURL).Dur("cooldown", pause).Msg("rate limited (429), backing off")
		return nil, ErrRateLimited
	default:
		f.log.Error().Str("url", pageURL).Int("status", status).Msg("unexpected HTTP status")
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, status)
	}
}

// DecodeBody converts body to UTF-8 using the Content-Type charset, sniffing the markup when absent
func DecodeBody(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
