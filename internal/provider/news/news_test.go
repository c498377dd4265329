package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/httpx/httpxmock"
	"github.com/guttosm/nsepulse/internal/source"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Google News</title>
<item>
  <title>Reliance Q3 profit beats estimates - Economic Times</title>
  <link>https://news.example/1</link>
  <guid>g-1</guid>
  <pubDate>Thu, 28 Mar 2024 10:00:00 GMT</pubDate>
  <description>Strong refining margins</description>
</item>
<item>
  <title>Markets - why Sensex fell - and what next - Mint</title>
  <link>https://news.example/2</link>
  <pubDate>Wed, 27 Mar 2024 09:00:00 GMT</pubDate>
</item>
<item>
  <title>No publisher here</title>
  <link>https://news.example/3</link>
</item>
</channel></rss>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(WithFeedURL(srv.URL+"/rss/search"), WithTimeout(2*time.Second))
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestSearch_ParsesFeed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "Reliance RELIANCE stock India", q.Get("q"))
		require.Equal(t, "en", q.Get("hl"))
		require.Equal(t, "IN", q.Get("gl"))
		require.Equal(t, "IN:en", q.Get("ceid"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	})

	feed, err := c.Company(context.Background(), "Reliance", "RELIANCE", 10)
	require.NoError(t, err)
	require.Len(t, feed.Items, 3)

	first := feed.Items[0]
	require.Equal(t, "Reliance Q3 profit beats estimates", first.Title)
	require.Equal(t, "Economic Times", first.Source)
	require.Equal(t, "g-1", first.ID)
	require.Equal(t, "Strong refining margins", first.Summary.String)
	require.Equal(t, time.Date(2024, 3, 28, 10, 0, 0, 0, time.UTC), first.PublishedAt)

	require.Equal(t, "Markets - why Sensex fell - and what next", feed.Items[1].Title)
	require.Equal(t, "Mint", feed.Items[1].Source)
	require.Equal(t, "https://news.example/2", feed.Items[1].ID, "link stands in for a missing guid")
	require.False(t, feed.Items[1].Summary.Valid)

	require.Equal(t, "Unknown", feed.Items[2].Source)
	require.Equal(t, c.now(), feed.Items[2].PublishedAt)
}

func TestSearch_LimitAndEmpty(t *testing.T) {
	body := rssFeed
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	feed, err := c.Search(context.Background(), "reliance", 2)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)

	body = `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`
	feed, err = c.Search(context.Background(), "nothing", 5)
	require.NoError(t, err)
	require.NotNil(t, feed.Items)
	require.Empty(t, feed.Items)
}

func TestSearch_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "broken stock India" {
			_, _ = w.Write([]byte("this is not xml"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Search(context.Background(), "broken", 5)
	require.Equal(t, source.UpstreamFormatError, source.KindOf(err))

	_, err = c.Search(context.Background(), "down", 5)
	require.Equal(t, source.UpstreamUnavailable, source.KindOf(err))

	_, err = c.Search(context.Background(), "  ", 5)
	require.Equal(t, source.InvalidParameters, source.KindOf(err))
}

func TestQueryHelpers(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := httpxmock.NewMockDoer(ctrl)

	var queries []string
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		queries = append(queries, req.URL.Query().Get("q"))
		return nil, context.DeadlineExceeded
	}).Times(3)

	c, err := New(WithDoer(doer))
	require.NoError(t, err)
	_, err = c.Market(context.Background(), "India", 5)
	require.Equal(t, source.Timeout, source.KindOf(err))
	_, _ = c.Sector(context.Background(), "Banking", 5)
	_, _ = c.Trending(context.Background(), 5)

	require.Equal(t, []string{
		"India stock market news stock India",
		"Banking sector India stocks stock India",
		"trending stocks India NSE BSE stock India",
	}, queries)
}

func TestSplitTitle(t *testing.T) {
	cases := []struct{ in, title, src string }{
		{"A - B", "A", "B"},
		{"A - B - C", "A - B", "C"},
		{"no separator", "no separator", "Unknown"},
		{"dangling - ", "dangling", "Unknown"},
	}
	for _, tc := range cases {
		title, src := SplitTitle(tc.in)
		require.Equal(t, tc.title, title, tc.in)
		require.Equal(t, tc.src, src, tc.in)
	}
}

func items(titles ...string) []models.NewsItem {
	out := make([]models.NewsItem, len(titles))
	for i, t := range titles {
		out[i] = models.NewsItem{Title: t}
	}
	return out
}

func TestFilterBySentiment(t *testing.T) {
	in := items("Profit surges at TCS", "Shares crash on weak guidance", "Board meeting scheduled")
	in[2].Summary = null.StringFrom("Analysts expect a rally")

	pos := FilterBySentiment(in, SentimentPositive)
	require.Len(t, pos, 2)
	require.Equal(t, "Profit surges at TCS", pos[0].Title)
	require.Equal(t, "Board meeting scheduled", pos[1].Title)

	neg := FilterBySentiment(in, SentimentNegative)
	require.Len(t, neg, 1)
	require.Equal(t, "Shares crash on weak guidance", neg[0].Title)

	require.Len(t, FilterBySentiment(in, SentimentAll), 3)
}

func TestParseSentiment(t *testing.T) {
	for in, want := range map[string]Sentiment{"": SentimentAll, "ALL": SentimentAll, "Positive": SentimentPositive, "negative": SentimentNegative} {
		got, ok := ParseSentiment(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}
	_, ok := ParseSentiment("mixed")
	require.False(t, ok)
}

func TestSince(t *testing.T) {
	base := time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)
	in := items("new", "old", "newer", "newest")
	in[0].PublishedAt = base.Add(time.Hour)
	in[1].PublishedAt = base.Add(-48 * time.Hour)
	in[2].PublishedAt = base.Add(2 * time.Hour)
	in[3].PublishedAt = base.Add(3 * time.Hour)

	got := Since(in, base, 2)
	require.Len(t, got, 2)
	require.Equal(t, "new", got[0].Title)
	require.Equal(t, "newer", got[1].Title)

	require.Len(t, Since(in, base, 0), 3)
}

func TestKeywords(t *testing.T) {
	text := `Reliance profit jumps. Reliance shares rally, profit beats; the market cheers "Reliance".`
	got := Keywords(text, 3)
	require.Equal(t, []string{"reliance", "profit", "jumps"}, got)

	require.Empty(t, Keywords("the and with this that", 5))
	require.Len(t, Keywords(text, 100), 8)
}
