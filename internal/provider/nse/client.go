// Package nse reads shareholding patterns and live quotes from the NSE India
// website's JSON endpoints, which only answer inside a cookie session.
package nse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/session"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// Name identifies this provider in errors, logs and aggregated results.
const Name = "nse"

const (
	defaultBaseURL = "https://www.nseindia.com"
	defaultTimeout = 30 * time.Second
)

// Client is an NSE adapter. One Client shares one session across callers.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	doer      httpx.Doer
	log       zerolog.Logger

	session *session.Manager
	// one quote-equity request per symbol in flight; quote and shareholding
	// read the same payload
	inflight singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the exchange host, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithDoer sets the HTTP client. It must carry a cookie jar for the session.
func WithDoer(d httpx.Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithTimeout bounds every call; non-positive values are ignored.
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

// WithUserAgent sets the browser User-Agent NSE insists on.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a Client. Without WithDoer it creates its own jar-backed client.
func New(opts ...Option) (*Client, error) {
	c := &Client{baseURL: defaultBaseURL, timeout: defaultTimeout, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		hc, err := httpx.NewClient(true)
		if err != nil {
			return nil, fmt.Errorf("nse: %w", err)
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

// Session exposes the cookie session, mostly for health reporting.
func (c *Client) Session() *session.Manager { return c.session }

// bootstrap visits the homepage so the jar receives the nsit/nseappid cookies.
func (c *Client) bootstrap(ctx context.Context, doer httpx.Doer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return "", err
	}
	httpx.BrowserHeaders(req, c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	resp, err := doer.Do(req)
	if err != nil {
		return "", err
	}
	httpx.Drain(resp)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("homepage returned status %d", resp.StatusCode)
	}
	return "", nil
}

// quoteEquity returns the /api/quote-equity payload for the base symbol,
// joining a request already in flight for it.
func (c *Client) quoteEquity(ctx context.Context, op string, sym symbol.NormalizedSymbol) (quoteEquity, error) {
	ch := c.inflight.DoChan(sym.Base(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetchQuoteEquity(fctx, sym)
	})

	select {
	case <-ctx.Done():
		return quoteEquity{}, source.Classify(Name, op, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return quoteEquity{}, withOp(op, r.Err)
		}
		return r.Val.(quoteEquity), nil
	}
}

// withOp relabels an error from a shared fetch with the caller's operation.
func withOp(op string, err error) error {
	var se *source.Error
	if !errors.As(err, &se) {
		return err
	}
	cp := *se
	cp.Op = op
	return &cp
}

func (c *Client) fetchQuoteEquity(ctx context.Context, sym symbol.NormalizedSymbol) (quoteEquity, error) {
	const op = "quote-equity"
	base := sym.Base()
	q := url.Values{"symbol": {base}}
	endpoint := c.baseURL + "/api/quote-equity?" + q.Encode()
	referer := c.baseURL + "/get-quotes/equity?" + q.Encode()

	resp, err := c.session.Do(ctx, func(ctx context.Context, _ string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return nil, err
		}
		httpx.BrowserHeaders(req, c.userAgent)
		req.Header.Set("Referer", referer)
		return req, nil
	})
	if err != nil {
		return quoteEquity{}, source.Classify(Name, op, err)
	}
	if resp.StatusCode != http.StatusOK {
		httpx.Drain(resp)
		return quoteEquity{}, source.StatusError(Name, op, resp.StatusCode)
	}
	body, err := httpx.ReadBody(resp)
	if err != nil {
		return quoteEquity{}, source.ClassifyTransport(Name, op, err)
	}

	var out quoteEquity
	if err := json.Unmarshal(body, &out); err != nil {
		return quoteEquity{}, source.New(source.UpstreamFormatError, Name, op, err)
	}
	// NSE answers unknown symbols with 200 and an empty object
	if out.Info.Symbol == "" && out.PriceInfo.LastPrice == nil && out.SecurityWiseDP == nil {
		return quoteEquity{}, source.Errorf(source.NotFound, Name, op, "symbol %s not found", base)
	}
	return out, nil
}

// Ping checks the homepage answers, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.bootstrap(ctx, c.doer); err != nil {
		return source.ClassifyTransport(Name, "ping", err)
	}
	return nil
}

func errMissingPrice(sym symbol.NormalizedSymbol) error {
	return source.Errorf(source.UpstreamFormatError, Name, "quote", "priceInfo.lastPrice missing for %s", sym.Base())
}
