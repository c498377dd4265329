// Package news searches the Google News RSS feed.
package news

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/source"
)

// Name identifies this provider in errors, logs and aggregated results.
const Name = "news"

const (
	defaultFeedURL = "https://news.google.com/rss/search"
	defaultTimeout = 30 * time.Second
	defaultLimit   = 10
	unknownSource  = "Unknown"
	titleSeparator = " - "
)

// Client queries a Google News style RSS search endpoint.
type Client struct {
	feedURL   string
	userAgent string
	language  string
	region    string
	timeout   time.Duration
	limiter   *rate.Limiter
	doer      httpx.Doer
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithFeedURL overrides the RSS search endpoint.
func WithFeedURL(u string) Option { return func(c *Client) { c.feedURL = u } }

// WithDoer sets the HTTP client.
func WithDoer(d httpx.Doer) Option { return func(c *Client) { c.doer = d } }

// WithTimeout bounds every fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimiter throttles outbound requests.
func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// WithLocale sets the hl/gl feed parameters, "en" and "IN" by default.
func WithLocale(language, region string) Option {
	return func(c *Client) { c.language, c.region = language, region }
}

// New builds a Client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		feedURL:  defaultFeedURL,
		language: "en",
		region:   "IN",
		timeout:  defaultTimeout,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		hc, err := httpx.NewClient(false)
		if err != nil {
			return nil, fmt.Errorf("news: %w", err)
		}
		c.doer = hc
	}
	if c.limiter != nil {
		c.doer = &httpx.Limited{Next: c.doer, Limiter: c.limiter}
	}
	return c, nil
}

// Search returns up to limit articles for query. The feed is asked for
// "<query> stock India"; an empty feed is not an error.
func (c *Client) Search(ctx context.Context, query string, limit int) (models.NewsFeed, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.NewsFeed{}, source.Errorf(source.InvalidParameters, Name, "search", "query is empty")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.fetch(ctx, query)
	if err != nil {
		return models.NewsFeed{}, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return models.NewsFeed{}, source.New(source.UpstreamFormatError, Name, "search", err)
	}

	out := models.NewsFeed{Query: query, Items: make([]models.NewsItem, 0, min(limit, len(feed.Items)))}
	if len(feed.Items) == 0 {
		c.log.Warn().Str("query", query).Msg("no news found")
		return out, nil
	}
	for _, it := range feed.Items {
		if len(out.Items) >= limit {
			break
		}
		out.Items = append(out.Items, c.item(it))
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]byte, error) {
	q := url.Values{}
	q.Set("q", query+" stock India")
	q.Set("hl", c.language)
	q.Set("gl", c.region)
	q.Set("ceid", c.region+":"+c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, source.New(source.InvalidParameters, Name, "search", err)
	}
	httpx.BrowserHeaders(req, c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, source.ClassifyTransport(Name, "search", err)
	}
	if resp.StatusCode != http.StatusOK {
		httpx.Drain(resp)
		return nil, source.StatusError(Name, "search", resp.StatusCode)
	}
	body, err := httpx.ReadBody(resp)
	if err != nil {
		return nil, source.ClassifyTransport(Name, "search", err)
	}
	return body, nil
}

func (c *Client) item(it *gofeed.Item) models.NewsItem {
	title, src := SplitTitle(it.Title)
	published := c.now().UTC()
	if it.PublishedParsed != nil {
		published = it.PublishedParsed.UTC()
	} else if it.UpdatedParsed != nil {
		published = it.UpdatedParsed.UTC()
	}
	id := it.GUID
	if id == "" {
		id = it.Link
	}
	summary := strings.TrimSpace(it.Description)
	return models.NewsItem{
		ID:          id,
		Title:       title,
		Link:        it.Link,
		Source:      src,
		PublishedAt: published,
		Summary:     null.NewString(summary, summary != ""),
	}
}

// SplitTitle splits "Headline - Publisher" at the last separator. Titles
// without one get the Unknown source.
func SplitTitle(raw string) (title, src string) {
	raw = strings.TrimSpace(raw)
	i := strings.LastIndex(raw, titleSeparator)
	if i < 0 {
		return raw, unknownSource
	}
	title = strings.TrimSpace(raw[:i])
	src = strings.TrimSpace(raw[i+len(titleSeparator):])
	if src == "" {
		src = unknownSource
	}
	return title, src
}

// Company searches news about one company by name and ticker.
func (c *Client) Company(ctx context.Context, name, symbol string, limit int) (models.NewsFeed, error) {
	return c.Search(ctx, strings.TrimSpace(name+" "+symbol), limit)
}

// Market searches general market news, e.g. for "India" or "NSE".
func (c *Client) Market(ctx context.Context, market string, limit int) (models.NewsFeed, error) {
	return c.Search(ctx, market+" stock market news", limit)
}

// Sector searches news about a sector such as "IT" or "Banking".
func (c *Client) Sector(ctx context.Context, sector string, limit int) (models.NewsFeed, error) {
	return c.Search(ctx, sector+" sector India stocks", limit)
}

// Trending searches news about trending stocks.
func (c *Client) Trending(ctx context.Context, limit int) (models.NewsFeed, error) {
	return c.Search(ctx, "trending stocks India NSE BSE", limit)
}
