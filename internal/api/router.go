package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/nsepulse/internal/middleware"
)

// RouterConfig holds the HTTP-level limits.
type RouterConfig struct {
	RequestTimeout time.Duration // upper bound for one request, 0 disables
	RateLimit      int           // requests per minute per client IP
}

// NewRouter creates a Gin engine with routes configured.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Applies the per-request timeout.
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1).
//
// Health and readiness endpoints are registered by HealthHandler.Register.
func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(cfg.RateLimit),
	)

	if cfg.RequestTimeout > 0 {
		router.Use(func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/search", handler.Search)

		company := v1.Group("/company/:symbol")
		company.GET("/quote", handler.Quote)
		company.GET("/info", handler.CompanyInfo)
		company.GET("/shareholding", handler.Shareholding)
		company.GET("/exchange", handler.Exchange)
		company.GET("/overview", handler.Overview)

		v1.GET("/prices/:symbol", handler.Prices)
		v1.GET("/prices/:symbol/technicals", handler.Technicals)
		v1.GET("/fundamentals/:symbol", handler.Fundamentals)

		v1.GET("/news", handler.News)
		v1.GET("/news/trending", handler.TrendingNews)
		v1.GET("/news/keywords", handler.NewsKeywords)
		v1.GET("/news/market/:market", handler.MarketNews)
		v1.GET("/news/sector/:sector", handler.SectorNews)
		v1.GET("/news/:symbol", handler.SymbolNews)

		v1.GET("/snapshots/:symbol/latest", handler.LatestSnapshot)
	}

	return router
}
