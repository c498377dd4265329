package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/provider/news"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// NewsQuery is a free-text news search with optional post-filters.
type NewsQuery struct {
	Query     string
	Limit     int
	Sentiment news.Sentiment
	// Days keeps only articles from the last Days days when > 0.
	Days int
}

const defaultNewsLimit = 10

func (s *marketService) feed(ctx context.Context, key string, load func(context.Context) (models.NewsFeed, error)) (models.NewsFeed, error) {
	return s.feeds.GetOrLoad(ctx, key, load)
}

func (s *marketService) News(ctx context.Context, q NewsQuery) (models.NewsFeed, error) {
	q.Query = strings.TrimSpace(q.Query)
	if len(q.Query) < 2 {
		return models.NewsFeed{}, source.Errorf(source.InvalidParameters, "news", "search", "query must be at least 2 characters")
	}
	if q.Limit <= 0 {
		q.Limit = defaultNewsLimit
	}
	fetch := q.Limit
	if q.Days > 0 {
		// the feed has no date filter; over-fetch and filter locally
		fetch = q.Limit * 2
	}

	key := fmt.Sprintf("search|%s|%d", strings.ToLower(q.Query), fetch)
	f, err := s.feed(ctx, key, func(ctx context.Context) (models.NewsFeed, error) {
		return s.p.News.Search(ctx, q.Query, fetch)
	})
	if err != nil {
		return models.NewsFeed{}, err
	}

	items := f.Items
	if q.Days > 0 {
		items = news.Since(items, s.now().Add(-time.Duration(q.Days)*24*time.Hour), 0)
	}
	items = news.FilterBySentiment(items, q.Sentiment)
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return models.NewsFeed{Query: f.Query, Items: items}, nil
}

// SymbolNews searches by company name and ticker. The name comes from the
// company profile when it can be had; otherwise the ticker alone is used.
func (s *marketService) SymbolNews(ctx context.Context, raw string, limit int) (models.NewsFeed, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return models.NewsFeed{}, err
	}
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	name := ""
	if info, err := s.CompanyInfo(ctx, sym.Canonical); err == nil {
		name = info.Name
	} else {
		s.log.Debug().Err(err).Str("symbol", sym.Canonical).Msg("company name unavailable for news query")
	}
	key := fmt.Sprintf("company|%s|%d", sym.Canonical, limit)
	return s.feed(ctx, key, func(ctx context.Context) (models.NewsFeed, error) {
		return s.p.News.Company(ctx, name, sym.Base(), limit)
	})
}

func (s *marketService) MarketNews(ctx context.Context, market string, limit int) (models.NewsFeed, error) {
	market = strings.TrimSpace(market)
	if market == "" {
		market = "India"
	}
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	return s.feed(ctx, fmt.Sprintf("market|%s|%d", strings.ToLower(market), limit), func(ctx context.Context) (models.NewsFeed, error) {
		return s.p.News.Market(ctx, market, limit)
	})
}

func (s *marketService) SectorNews(ctx context.Context, sector string, limit int) (models.NewsFeed, error) {
	sector = strings.TrimSpace(sector)
	if sector == "" {
		return models.NewsFeed{}, source.Errorf(source.InvalidParameters, "news", "sector", "sector is required")
	}
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	return s.feed(ctx, fmt.Sprintf("sector|%s|%d", strings.ToLower(sector), limit), func(ctx context.Context) (models.NewsFeed, error) {
		return s.p.News.Sector(ctx, sector, limit)
	})
}

func (s *marketService) TrendingNews(ctx context.Context, limit int) (models.NewsFeed, error) {
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	return s.feed(ctx, fmt.Sprintf("trending|%d", limit), func(ctx context.Context) (models.NewsFeed, error) {
		return s.p.News.Trending(ctx, limit)
	})
}

// NewsKeywords returns the most frequent words across the titles and
// summaries of a news search.
func (s *marketService) NewsKeywords(ctx context.Context, query string, limit, topN int) ([]string, error) {
	f, err := s.News(ctx, NewsQuery{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, it := range f.Items {
		b.WriteString(it.Title)
		b.WriteByte(' ')
		b.WriteString(it.Summary.String)
		b.WriteByte(' ')
	}
	if topN <= 0 {
		topN = 5
	}
	return news.Keywords(b.String(), topN), nil
}
