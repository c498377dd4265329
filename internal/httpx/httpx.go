// Package httpx builds the shared outbound HTTP transport used by every
// provider adapter.
package httpx

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Doer sends one HTTP request. *http.Client satisfies it.
//
//go:generate mockgen -source=httpx.go -destination=httpxmock/doer.go -package=httpxmock Doer
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MaxBody caps how much of an upstream body is read into memory.
const MaxBody = 16 << 20

// DefaultUserAgent mimics a desktop browser; NSE and Screener reject obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// NewClient returns an *http.Client with a tuned transport and, when withJar
// is set, a persistent cookie jar scoped by the public suffix list.
//
// No client-level timeout is set; adapters bound each call with a context.
func NewClient(withJar bool) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	c := &http.Client{Transport: transport}
	if withJar {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.Jar = jar
	}
	return c, nil
}

// Limited wraps a Doer so every request first waits on a token bucket.
type Limited struct {
	Next    Doer
	Limiter *rate.Limiter
}

// PerMinute builds a limiter allowing n requests per minute with a burst of one.
func PerMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

// PerSecond builds a limiter allowing n requests per second with burst n.
func PerSecond(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(n), n)
}

func (l *Limited) Do(req *http.Request) (*http.Response, error) {
	if l.Limiter != nil {
		if err := l.Limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return l.Next.Do(req)
}

// BrowserHeaders sets the header set scraping targets expect from a browser.
func BrowserHeaders(req *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, text/plain, */*")
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// ReadBody reads at most MaxBody bytes and closes the body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(io.LimitReader(resp.Body, MaxBody))
}

// Drain discards and closes a response body so the connection can be reused.
func Drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
