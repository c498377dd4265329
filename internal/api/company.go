package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/nsepulse/internal/domain/dto"
	"github.com/guttosm/nsepulse/internal/service"
)

// Quote godoc
// @Summary      Latest quote
// @Description  Price view from Yahoo Finance with derived change figures
// @Tags         company
// @Produce      json
// @Param        symbol  path      string  true  "Symbol, optionally suffixed (.NS/.BO)" example(RELIANCE)
// @Success      200     {object}  dto.QuoteResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      503     {object}  dto.ErrorResponse
// @Router       /api/v1/company/{symbol}/quote [get]
func (h *Handler) Quote(c *gin.Context) {
	q, err := h.svc.Quote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuoteResponse(q))
}

// CompanyInfo godoc
// @Summary      Company profile
// @Tags         company
// @Produce      json
// @Param        symbol  path      string  true  "Symbol" example(TCS)
// @Success      200     {object}  models.CompanyInfo
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/v1/company/{symbol}/info [get]
func (h *Handler) CompanyInfo(c *gin.Context) {
	info, err := h.svc.CompanyInfo(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Shareholding godoc
// @Summary      Shareholding pattern
// @Description  Latest promoter/FII/DII/public split reported to NSE
// @Tags         company
// @Produce      json
// @Param        symbol  path      string  true  "Symbol" example(INFY)
// @Success      200     {object}  models.ShareholdingSnapshot
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      401     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      503     {object}  dto.ErrorResponse
// @Router       /api/v1/company/{symbol}/shareholding [get]
func (h *Handler) Shareholding(c *gin.Context) {
	s, err := h.svc.Shareholding(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Exchange godoc
// @Summary      Exchange overview
// @Description  NSE shareholding and NSE quote fetched concurrently; each source reports its own status
// @Tags         company
// @Produce      json
// @Param        symbol  path      string  true  "Symbol" example(INFY)
// @Success      200     {object}  dto.AggregatedResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/v1/company/{symbol}/exchange [get]
func (h *Handler) Exchange(c *gin.Context) {
	agg, err := h.svc.ExchangeOverview(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, aggregated(agg))
}

// Overview godoc
// @Summary      Company overview
// @Description  Quote, shareholding, technicals, fundamentals and news in one concurrent fan-out.
// @Description  Always 200 for a valid symbol; failed sources are listed in "sources".
// @Tags         company
// @Produce      json
// @Param        symbol  path      string  true  "Symbol" example(TCS)
// @Success      200     {object}  dto.AggregatedResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/v1/company/{symbol}/overview [get]
func (h *Handler) Overview(c *gin.Context) {
	agg, err := h.svc.Overview(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, aggregated(agg))
}

func aggregated(agg service.Aggregated) dto.AggregatedResponse {
	return dto.NewAggregatedResponse(agg.Symbol.Canonical, string(agg.Symbol.Exchange), agg.Results, dto.PresentQuote)
}
