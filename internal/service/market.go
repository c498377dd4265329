// Package service composes the upstream adapters into the views the API
// serves, with per-view caching and concurrent fan-out for aggregated views.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guttosm/nsepulse/internal/cache"
	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/indicator"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// Default history window used for technicals.
const (
	DefaultPeriod   = "1y"
	DefaultInterval = "1d"
)

// PriceProvider is the quote and history source (Yahoo Finance).
type PriceProvider interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	History(ctx context.Context, symbol, period, interval string) (models.PriceSeries, error)
	Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error)
	Info(ctx context.Context, symbol string) (models.CompanyInfo, error)
}

// ExchangeProvider is the exchange's own data (NSE).
type ExchangeProvider interface {
	Shareholding(ctx context.Context, symbol string) (models.ShareholdingSnapshot, error)
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// FundamentalsProvider is the long-horizon financials source (Screener.in).
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, symbol string) (models.FundamentalsSeries, error)
	CompanyInfo(ctx context.Context, symbol string) (models.CompanyInfo, error)
}

// NewsProvider is the news feed.
type NewsProvider interface {
	Search(ctx context.Context, query string, limit int) (models.NewsFeed, error)
	Company(ctx context.Context, name, symbol string, limit int) (models.NewsFeed, error)
	Market(ctx context.Context, market string, limit int) (models.NewsFeed, error)
	Sector(ctx context.Context, sector string, limit int) (models.NewsFeed, error)
	Trending(ctx context.Context, limit int) (models.NewsFeed, error)
}

// Providers bundles the upstream adapters.
type Providers struct {
	Prices       PriceProvider
	Exchange     ExchangeProvider
	Fundamentals FundamentalsProvider
	News         NewsProvider
}

// CacheTTLs configures how long each view is reused.
type CacheTTLs struct {
	Prices       time.Duration
	News         time.Duration
	Analysis     time.Duration
	Fundamentals time.Duration
	MaxItems     int
}

// DefaultCacheTTLs are the production cache lifetimes.
var DefaultCacheTTLs = CacheTTLs{
	Prices:       5 * time.Minute,
	News:         10 * time.Minute,
	Analysis:     24 * time.Hour,
	Fundamentals: 7 * 24 * time.Hour,
	MaxItems:     2000,
}

// MarketService is the read side of the application: every view the API
// serves comes from here.
type MarketService interface {
	Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error)
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	CompanyInfo(ctx context.Context, symbol string) (models.CompanyInfo, error)
	Prices(ctx context.Context, symbol, period, interval string) (models.PriceSeries, error)
	Technicals(ctx context.Context, symbol, period string) (models.TechnicalSnapshot, error)
	Shareholding(ctx context.Context, symbol string) (models.ShareholdingSnapshot, error)
	Fundamentals(ctx context.Context, symbol string) (models.FundamentalsSeries, error)
	ExchangeOverview(ctx context.Context, symbol string) (Aggregated, error)
	Overview(ctx context.Context, symbol string) (Aggregated, error)

	News(ctx context.Context, q NewsQuery) (models.NewsFeed, error)
	SymbolNews(ctx context.Context, symbol string, limit int) (models.NewsFeed, error)
	MarketNews(ctx context.Context, market string, limit int) (models.NewsFeed, error)
	SectorNews(ctx context.Context, sector string, limit int) (models.NewsFeed, error)
	TrendingNews(ctx context.Context, limit int) (models.NewsFeed, error)
	NewsKeywords(ctx context.Context, query string, limit, topN int) ([]string, error)
}

type marketService struct {
	p          Providers
	aggTimeout time.Duration
	now        func() time.Time
	log        zerolog.Logger

	quotes       *cache.Cache[models.Quote]
	series       *cache.Cache[models.PriceSeries]
	searches     *cache.Cache[[]models.SymbolMatch]
	technicals   *cache.Cache[models.TechnicalSnapshot]
	info         *cache.Cache[models.CompanyInfo]
	holdings     *cache.Cache[models.ShareholdingSnapshot]
	fundamentals *cache.Cache[models.FundamentalsSeries]
	feeds        *cache.Cache[models.NewsFeed]
}

// NewMarketService wires the providers behind per-view caches.
// aggTimeout bounds each constituent call of an aggregated view.
func NewMarketService(p Providers, ttl CacheTTLs, aggTimeout time.Duration, log zerolog.Logger) MarketService {
	n := ttl.MaxItems
	return &marketService{
		p:            p,
		aggTimeout:   aggTimeout,
		now:          time.Now,
		log:          log,
		quotes:       cache.New[models.Quote](ttl.Prices, n),
		series:       cache.New[models.PriceSeries](ttl.Prices, n),
		searches:     cache.New[[]models.SymbolMatch](ttl.Prices, n),
		technicals:   cache.New[models.TechnicalSnapshot](ttl.Analysis, n),
		info:         cache.New[models.CompanyInfo](ttl.Analysis, n),
		holdings:     cache.New[models.ShareholdingSnapshot](ttl.Analysis, n),
		fundamentals: cache.New[models.FundamentalsSeries](ttl.Fundamentals, n),
		feeds:        cache.New[models.NewsFeed](ttl.News, n),
	}
}

func (s *marketService) Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	key := fmt.Sprintf("%s|%d", strings.ToUpper(strings.TrimSpace(query)), limit)
	return s.searches.GetOrLoad(ctx, key, func(ctx context.Context) ([]models.SymbolMatch, error) {
		return s.p.Prices.Search(ctx, query, limit)
	})
}

func (s *marketService) Quote(ctx context.Context, raw string) (models.Quote, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return models.Quote{}, err
	}
	return s.quotes.GetOrLoad(ctx, sym.Canonical, func(ctx context.Context) (models.Quote, error) {
		return s.p.Prices.Quote(ctx, sym.Canonical)
	})
}

// CompanyInfo prefers Yahoo's profile and falls back to the Screener page
// when Yahoo cannot answer.
func (s *marketService) CompanyInfo(ctx context.Context, raw string) (models.CompanyInfo, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return models.CompanyInfo{}, err
	}
	return s.info.GetOrLoad(ctx, sym.Canonical, func(ctx context.Context) (models.CompanyInfo, error) {
		info, err := s.p.Prices.Info(ctx, sym.Canonical)
		if err == nil {
			return info, nil
		}
		s.log.Warn().Err(err).Str("symbol", sym.Canonical).Msg("yahoo company info failed, trying screener")
		alt, altErr := s.p.Fundamentals.CompanyInfo(ctx, sym.Canonical)
		if altErr != nil {
			return models.CompanyInfo{}, err
		}
		return alt, nil
	})
}

func (s *marketService) Prices(ctx context.Context, raw, period, interval string) (models.PriceSeries, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return models.PriceSeries{}, err
	}
	if period == "" {
		period = DefaultPeriod
	}
	if interval == "" {
		interval = DefaultInterval
	}
	key := sym.Canonical + "|" + period + "|" + interval
	return s.series.GetOrLoad(ctx, key, func(ctx context.Context) (models.PriceSeries, error) {
		return s.p.Prices.History(ctx, sym.Canonical, period, interval)
	})
}

func (s *marketService) Technicals(ctx context.Context, raw, period string) (models.TechnicalSnapshot, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return models.TechnicalSnapshot{}, err
	}
	if period == "" {
		period = DefaultPeriod
	}
	return s.technicals.GetOrLoad(ctx, sym.Canonical+"|"+period, func(ctx context.Context) (models.TechnicalSnapshot, error) {
		series, err := s.Prices(ctx, sym.Canonical, period, DefaultInterval)
		if err != nil {
			return models.TechnicalSnapshot{}, err
		}
		snap, err := indicator.Compute(series)
		if err != nil {
			return models.TechnicalSnapshot{}, err
		}
		s.log.Debug().Msg(indicator.Describe(snap))
		return snap, nil
	})
}

func (s *marketService) Shareholding(ctx context.Context, raw string) (models.ShareholdingSnapshot, error) {
	sym, err := symbol.Normalize(raw, symbol.NSE)
	if err != nil {
		return models.ShareholdingSnapshot{}, err
	}
	return s.holdings.GetOrLoad(ctx, sym.Canonical, func(ctx context.Context) (models.ShareholdingSnapshot, error) {
		return s.p.Exchange.Shareholding(ctx, sym.Canonical)
	})
}

func (s *marketService) Fundamentals(ctx context.Context, raw string) (models.FundamentalsSeries, error) {
	sym, err := symbol.Normalize(raw, symbol.NSE)
	if err != nil {
		return models.FundamentalsSeries{}, err
	}
	return s.fundamentals.GetOrLoad(ctx, sym.Base(), func(ctx context.Context) (models.FundamentalsSeries, error) {
		return s.p.Fundamentals.Fundamentals(ctx, sym.Canonical)
	})
}
