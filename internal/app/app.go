package app

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/nsepulse/config"
	"github.com/guttosm/nsepulse/internal/api"
	"github.com/guttosm/nsepulse/internal/logger"
	"github.com/guttosm/nsepulse/internal/scheduler"
	"github.com/guttosm/nsepulse/internal/service"
	"github.com/guttosm/nsepulse/internal/snapshot"
	"github.com/guttosm/nsepulse/internal/storage"
)

// App holds the wired components of the service.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	Service  service.MarketService
	Recorder *snapshot.Recorder

	db *sql.DB
}

// snapshotRunTimeout bounds one scheduled recording.
const snapshotRunTimeout = 30 * time.Minute

// providersFactory is an indirection for unit testing; defaults to NewProviders.
var providersFactory = NewProviders

// InitializeApp sets up all application dependencies from config.AppConfig.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Builds the upstream adapters (Yahoo, NSE, Screener, news).
//   - Wraps them in the cached market service.
//   - Initializes the repositories and the snapshot recorder.
//   - Configures the Gin router with all API routes and health probes.
//
// Close releases the resources of a returned App.
func InitializeApp() (*App, error) {
	cfg := config.AppConfig

	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	providers, checks, err := providersFactory(cfg.Providers)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	svc := service.NewMarketService(providers, cacheTTLs(cfg.Cache), cfg.Providers.Timeout, logger.Component("service"))

	recorder := snapshot.NewRecorder(svc,
		storage.NewCompanyRepository(db),
		storage.NewPriceRepository(db),
		storage.NewSnapshotRepository(db),
		snapshot.WithParallel(cfg.Snapshot.Parallel),
		snapshot.WithLocation(snapshot.LoadLocation(cfg.Snapshot.Timezone)),
		snapshot.WithLogger(logger.Component("snapshot")),
	)

	handler := api.NewHandler(svc, recorder)
	router := api.NewRouter(handler, api.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
	})
	api.NewHealthHandler(db.PingContext, checks).Register(router)

	return &App{Config: cfg, Router: router, Service: svc, Recorder: recorder, db: db}, nil
}

// NewScheduler registers the recorder on the configured cron spec.
func (a *App) NewScheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(
		a.Config.Snapshot.Cron,
		snapshot.LoadLocation(a.Config.Snapshot.Timezone),
		a.Recorder,
		a.Config.Snapshot.Symbols,
		snapshotRunTimeout,
		logger.Component("scheduler"),
	)
}

// Close releases the database pool.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func cacheTTLs(c config.CacheConfig) service.CacheTTLs {
	ttl := service.DefaultCacheTTLs
	if c.PricesTTL > 0 {
		ttl.Prices = c.PricesTTL
	}
	if c.NewsTTL > 0 {
		ttl.News = c.NewsTTL
	}
	if c.AnalysisTTL > 0 {
		ttl.Analysis = c.AnalysisTTL
	}
	if c.FundamentalsTTL > 0 {
		ttl.Fundamentals = c.FundamentalsTTL
	}
	if c.MaxItems > 0 {
		ttl.MaxItems = c.MaxItems
	}
	return ttl
}
