package app

import (
	"fmt"

	"github.com/guttosm/nsepulse/config"
	"github.com/guttosm/nsepulse/internal/api"
	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/logger"
	"github.com/guttosm/nsepulse/internal/provider/news"
	"github.com/guttosm/nsepulse/internal/provider/nse"
	"github.com/guttosm/nsepulse/internal/provider/screener"
	"github.com/guttosm/nsepulse/internal/provider/yahoo"
	"github.com/guttosm/nsepulse/internal/service"
)

// NewProviders builds the upstream adapters from cfg. The returned checks
// feed the deep readiness probe.
func NewProviders(cfg config.ProvidersConfig) (service.Providers, map[string]api.Check, error) {
	yopts := []yahoo.Option{
		yahoo.WithTimeout(cfg.Timeout),
		yahoo.WithUserAgent(cfg.UserAgent),
		yahoo.WithLimiter(httpx.PerSecond(cfg.YahooRPS)),
		yahoo.WithLogger(logger.Component(yahoo.Name)),
	}
	if cfg.YahooBaseURL != "" {
		yopts = append(yopts, yahoo.WithBaseURL(cfg.YahooBaseURL))
	}
	if cfg.YahooCookieURL != "" {
		yopts = append(yopts, yahoo.WithCookieURL(cfg.YahooCookieURL))
	}
	y, err := yahoo.New(yopts...)
	if err != nil {
		return service.Providers{}, nil, fmt.Errorf("yahoo client: %w", err)
	}

	nopts := []nse.Option{
		nse.WithTimeout(cfg.Timeout),
		nse.WithUserAgent(cfg.UserAgent),
		nse.WithLimiter(httpx.PerMinute(cfg.NSERatePerMin)),
		nse.WithLogger(logger.Component(nse.Name)),
	}
	if cfg.NSEBaseURL != "" {
		nopts = append(nopts, nse.WithBaseURL(cfg.NSEBaseURL))
	}
	n, err := nse.New(nopts...)
	if err != nil {
		return service.Providers{}, nil, fmt.Errorf("nse client: %w", err)
	}

	sopts := []screener.Option{
		screener.WithTimeout(cfg.Timeout),
		screener.WithUserAgent(cfg.UserAgent),
		screener.WithLimiter(httpx.PerMinute(cfg.ScraperPerMin)),
		screener.WithCookie(config.ScreenerCookie),
		screener.WithLogger(logger.Component(screener.Name)),
	}
	if cfg.ScreenerBaseURL != "" {
		sopts = append(sopts, screener.WithBaseURL(cfg.ScreenerBaseURL))
	}
	s, err := screener.New(sopts...)
	if err != nil {
		return service.Providers{}, nil, fmt.Errorf("screener client: %w", err)
	}

	opts := []news.Option{
		news.WithTimeout(cfg.Timeout),
		news.WithUserAgent(cfg.UserAgent),
		news.WithLimiter(httpx.PerMinute(cfg.ScraperPerMin)),
		news.WithLogger(logger.Component(news.Name)),
	}
	if cfg.NewsFeedURL != "" {
		opts = append(opts, news.WithFeedURL(cfg.NewsFeedURL))
	}
	nw, err := news.New(opts...)
	if err != nil {
		return service.Providers{}, nil, fmt.Errorf("news client: %w", err)
	}

	checks := map[string]api.Check{
		yahoo.Name:    y.Ping,
		nse.Name:      n.Ping,
		screener.Name: s.Ping,
	}
	return service.Providers{Prices: y, Exchange: n, Fundamentals: s, News: nw}, checks, nil
}
