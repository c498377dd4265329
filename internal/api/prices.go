package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Prices godoc
// @Summary      Price history
// @Description  OHLCV bars ascending by time. Intraday intervals only accept short periods.
// @Tags         prices
// @Produce      json
// @Param        symbol    path      string  true   "Symbol" example(RELIANCE)
// @Param        period    query     string  false  "1d,5d,1mo,3mo,6mo,1y,2y,5y,10y,ytd,max" default(1y)
// @Param        interval  query     string  false  "1m,2m,5m,15m,30m,60m,90m,1h,1d,5d,1wk,1mo,3mo" default(1d)
// @Success      200       {object}  models.PriceSeries
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      404       {object}  dto.ErrorResponse
// @Failure      503       {object}  dto.ErrorResponse
// @Router       /api/v1/prices/{symbol} [get]
func (h *Handler) Prices(c *gin.Context) {
	s, err := h.svc.Prices(c.Request.Context(), c.Param("symbol"), c.Query("period"), c.Query("interval"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Technicals godoc
// @Summary      Technical indicators
// @Description  SMA 20/50/200, RSI 14, momentum and trend over daily closes
// @Tags         prices
// @Produce      json
// @Param        symbol  path      string  true   "Symbol" example(TCS)
// @Param        period  query     string  false  "History window" default(1y)
// @Success      200     {object}  models.TechnicalSnapshot
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      422     {object}  dto.ErrorResponse  "Fewer than 200 data points"
// @Router       /api/v1/prices/{symbol}/technicals [get]
func (h *Handler) Technicals(c *gin.Context) {
	s, err := h.svc.Technicals(c.Request.Context(), c.Param("symbol"), c.Query("period"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Fundamentals godoc
// @Summary      Ten-year fundamentals
// @Description  Yearly metrics from the Screener.in export, aligned by year
// @Tags         fundamentals
// @Produce      json
// @Param        symbol  path      string  true  "Symbol" example(TCS)
// @Success      200     {object}  models.FundamentalsSeries
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      401     {object}  dto.ErrorResponse  "Screener session expired"
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/v1/fundamentals/{symbol} [get]
func (h *Handler) Fundamentals(c *gin.Context) {
	f, err := h.svc.Fundamentals(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}
