// Package yahoo adapts the Yahoo Finance chart and quoteSummary endpoints to
// the canonical quote, price-series and company views.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/session"
	"github.com/guttosm/nsepulse/internal/source"
)

// Name identifies this provider in errors, logs and aggregated results.
const Name = "yahoo"

const (
	defaultBaseURL   = "https://query1.finance.yahoo.com"
	defaultCookieURL = "https://fc.yahoo.com"
	defaultTimeout   = 30 * time.Second
)

// Client talks to Yahoo Finance. It is safe for concurrent use; the crumb
// session it keeps for quoteSummary is shared by all callers.
type Client struct {
	baseURL   string
	cookieURL string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	doer      httpx.Doer
	log       zerolog.Logger

	session *session.Manager
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithCookieURL overrides the page visited to obtain session cookies.
func WithCookieURL(u string) Option {
	return func(c *Client) { c.cookieURL = u }
}

// WithDoer sets the HTTP client. It should carry a cookie jar.
func WithDoer(d httpx.Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimiter throttles outbound requests.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a Client. Without WithDoer it creates its own jar-backed client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:   defaultBaseURL,
		cookieURL: defaultCookieURL,
		timeout:   defaultTimeout,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		hc, err := httpx.NewClient(true)
		if err != nil {
			return nil, fmt.Errorf("yahoo: %w", err)
		}
		c.doer = hc
	}
	if c.limiter != nil {
		c.doer = &httpx.Limited{Next: c.doer, Limiter: c.limiter}
	}
	c.session = session.New(Name, c.doer, c.bootstrap,
		session.WithLogger(c.log.With().Str("session", Name).Logger()))
	return c, nil
}

// Session exposes the crumb session, mostly for health reporting.
func (c *Client) Session() *session.Manager { return c.session }

// bootstrap collects the consent cookies from fc.yahoo.com (which answers
// 404 by design, so the status is ignored) and then exchanges them for a crumb.
func (c *Client) bootstrap(ctx context.Context, doer httpx.Doer) (string, error) {
	req, err := c.newRequest(ctx, c.cookieURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("cookie page: %w", err)
	}
	httpx.Drain(resp)

	req, err = c.newRequest(ctx, c.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err = doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("crumb: %w", err)
	}
	body, err := httpx.ReadBody(resp)
	if err != nil {
		return "", fmt.Errorf("crumb: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crumb: status %d", resp.StatusCode)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{") {
		return "", fmt.Errorf("crumb: unexpected body")
	}
	return crumb, nil
}

func (c *Client) newRequest(ctx context.Context, rawURL string, q url.Values) (*http.Request, error) {
	if len(q) > 0 {
		rawURL += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	httpx.BrowserHeaders(req, c.userAgent)
	return req, nil
}

// get performs an unauthenticated GET and returns the body of a 200 answer.
func (c *Client) get(ctx context.Context, op, path string, q url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, c.baseURL+path, q)
	if err != nil {
		return nil, source.New(source.InvalidParameters, Name, op, err)
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, source.ClassifyTransport(Name, op, err)
	}
	return readOK(resp, op)
}

func readOK(resp *http.Response, op string) ([]byte, error) {
	if resp.StatusCode != http.StatusOK {
		httpx.Drain(resp)
		return nil, source.StatusError(Name, op, resp.StatusCode)
	}
	body, err := httpx.ReadBody(resp)
	if err != nil {
		return nil, source.ClassifyTransport(Name, op, err)
	}
	return body, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}
