package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/provider/news"
	"github.com/guttosm/nsepulse/internal/service"
)

const maxNewsDays = 30

// News godoc
// @Summary      Search news
// @Tags         news
// @Produce      json
// @Param        q          query     string  true   "Query (min 2 chars)" example(reliance results)
// @Param        limit      query     int     false  "Max articles (1-50)" default(10)
// @Param        sentiment  query     string  false  "all, positive or negative" default(all)
// @Param        days       query     int     false  "Only articles from the last N days (1-30)"
// @Success      200        {object}  models.NewsFeed
// @Failure      400        {object}  dto.ErrorResponse
// @Failure      503        {object}  dto.ErrorResponse
// @Router       /api/v1/news [get]
func (h *Handler) News(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		fail(c, err)
		return
	}
	days, err := intQuery(c, "days", 0, 0, maxNewsDays)
	if err != nil {
		fail(c, err)
		return
	}
	sentiment, ok := news.ParseSentiment(c.Query("sentiment"))
	if !ok {
		fail(c, invalidParam("sentiment must be all, positive or negative"))
		return
	}
	f, err := h.svc.News(c.Request.Context(), service.NewsQuery{
		Query:     c.Query("q"),
		Limit:     limit,
		Sentiment: sentiment,
		Days:      days,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, feed(f))
}

// SymbolNews godoc
// @Summary      Company news
// @Tags         news
// @Produce      json
// @Param        symbol  path      string  true   "Symbol" example(TCS)
// @Param        limit   query     int     false  "Max articles (1-50)" default(10)
// @Success      200     {object}  models.NewsFeed
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/v1/news/{symbol} [get]
func (h *Handler) SymbolNews(c *gin.Context) {
	h.feedHandler(c, func(limit int) (models.NewsFeed, error) {
		return h.svc.SymbolNews(c.Request.Context(), c.Param("symbol"), limit)
	})
}

// MarketNews godoc
// @Summary      Market news
// @Tags         news
// @Produce      json
// @Param        market  path      string  true   "Market" example(India)
// @Param        limit   query     int     false  "Max articles (1-50)" default(10)
// @Success      200     {object}  models.NewsFeed
// @Router       /api/v1/news/market/{market} [get]
func (h *Handler) MarketNews(c *gin.Context) {
	h.feedHandler(c, func(limit int) (models.NewsFeed, error) {
		return h.svc.MarketNews(c.Request.Context(), c.Param("market"), limit)
	})
}

// SectorNews godoc
// @Summary      Sector news
// @Tags         news
// @Produce      json
// @Param        sector  path      string  true   "Sector" example(banking)
// @Param        limit   query     int     false  "Max articles (1-50)" default(10)
// @Success      200     {object}  models.NewsFeed
// @Router       /api/v1/news/sector/{sector} [get]
func (h *Handler) SectorNews(c *gin.Context) {
	h.feedHandler(c, func(limit int) (models.NewsFeed, error) {
		return h.svc.SectorNews(c.Request.Context(), c.Param("sector"), limit)
	})
}

// TrendingNews godoc
// @Summary      Trending market news
// @Tags         news
// @Produce      json
// @Param        limit  query     int  false  "Max articles (1-50)" default(10)
// @Success      200    {object}  models.NewsFeed
// @Router       /api/v1/news/trending [get]
func (h *Handler) TrendingNews(c *gin.Context) {
	h.feedHandler(c, func(limit int) (models.NewsFeed, error) {
		return h.svc.TrendingNews(c.Request.Context(), limit)
	})
}

// NewsKeywords godoc
// @Summary      Frequent keywords in news
// @Tags         news
// @Produce      json
// @Param        q      query     string  true   "Query (min 2 chars)" example(infosys)
// @Param        limit  query     int     false  "Articles to scan (1-50)" default(10)
// @Param        top    query     int     false  "Keywords to return (1-20)" default(5)
// @Success      200    {object}  map[string]any
// @Failure      400    {object}  dto.ErrorResponse
// @Router       /api/v1/news/keywords [get]
func (h *Handler) NewsKeywords(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		fail(c, err)
		return
	}
	top, err := intQuery(c, "top", 5, 1, 20)
	if err != nil {
		fail(c, err)
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	kw, err := h.svc.NewsKeywords(c.Request.Context(), q, limit, top)
	if err != nil {
		fail(c, err)
		return
	}
	if kw == nil {
		kw = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "keywords": kw})
}

func (h *Handler) feedHandler(c *gin.Context, load func(limit int) (models.NewsFeed, error)) {
	limit, err := intQuery(c, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		fail(c, err)
		return
	}
	f, err := load(limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, feed(f))
}

func feed(f models.NewsFeed) models.NewsFeed {
	if f.Items == nil {
		f.Items = []models.NewsItem{}
	}
	return f
}
