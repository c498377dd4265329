// Package screener downloads the ten-year fundamentals export from
// Screener.in and scrapes basic company details from its company pages.
//
// The export requires a logged-in sessionid cookie, supplied by the operator.
package screener

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/session"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// Name identifies this provider in errors, logs and aggregated results.
const Name = "screener"

// SourceLabel is recorded on the values this adapter produces.
const SourceLabel = "screener.in"

const (
	defaultBaseURL = "https://www.screener.in"
	defaultTimeout = 30 * time.Second
	cookieName     = "sessionid"
)

// CookieFunc returns the current sessionid. It is consulted on every
// bootstrap so a rotated cookie is picked up without a restart.
type CookieFunc func() string

// Client is a Screener.in adapter.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	doer      httpx.Doer
	cookie    CookieFunc
	log       zerolog.Logger

	session *session.Manager
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the site host, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithDoer sets the HTTP client.
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

// WithCookie sets where the sessionid comes from.
func WithCookie(fn CookieFunc) Option {
	return func(c *Client) { c.cookie = fn }
}

// New builds a Client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		cookie:  func() string { return "" },
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		hc, err := httpx.NewClient(true)
		if err != nil {
			return nil, fmt.Errorf("screener: %w", err)
		}
		c.doer = hc
	}
	if c.limiter != nil {
		c.doer = &httpx.Limited{Next: c.doer, Limiter: c.limiter}
	}
	c.session = session.New(Name, c.doer, c.bootstrap,
		session.WithAuthFailure(isAuthFailure),
		session.WithLogger(c.log.With().Str("session", Name).Logger()))
	return c, nil
}

// Session exposes the cookie session, mostly for health reporting.
func (c *Client) Session() *session.Manager { return c.session }

// isAuthFailure also treats a redirect to the login page as an expired session.
func isAuthFailure(resp *http.Response) bool {
	if session.DefaultAuthFailure(resp) {
		return true
	}
	return resp.Request != nil && resp.Request.URL != nil &&
		strings.HasPrefix(resp.Request.URL.Path, "/login")
}

// bootstrap reads the configured cookie and checks the landing page answers
// with it. The cookie value is the session token.
func (c *Client) bootstrap(ctx context.Context, doer httpx.Doer) (string, error) {
	token := strings.TrimSpace(c.cookie())
	if token == "" {
		c.log.Warn().Msg("no screener session cookie configured; exports will be refused")
	}
	req, err := c.newRequest(ctx, c.baseURL+"/", token)
	if err != nil {
		return "", err
	}
	resp, err := doer.Do(req)
	if err != nil {
		return "", err
	}
	httpx.Drain(resp)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("landing page returned status %d", resp.StatusCode)
	}
	return token, nil
}

func (c *Client) newRequest(ctx context.Context, rawURL, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	httpx.BrowserHeaders(req, c.userAgent)
	req.Header.Set("Referer", c.baseURL+"/")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	return req, nil
}

// fetch GETs path inside the session. Status handling is left to the caller.
func (c *Client) fetch(ctx context.Context, op, path, accept string) (*http.Response, error) {
	resp, err := c.session.Do(ctx, func(ctx context.Context, token string) (*http.Request, error) {
		req, err := c.newRequest(ctx, c.baseURL+path, token)
		if err != nil {
			return nil, err
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		return req, nil
	})
	if err != nil {
		return nil, source.Classify(Name, op, err)
	}
	return resp, nil
}

func companyPath(sym symbol.NormalizedSymbol) string {
	return "/company/" + sym.Base() + "/consolidated/"
}

// Ping checks the landing page answers, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.bootstrap(ctx, c.doer); err != nil {
		return source.ClassifyTransport(Name, "ping", err)
	}
	return nil
}
