package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/service"
	"github.com/guttosm/nsepulse/internal/source"
)

// SnapshotReader serves stored analysis snapshots.
type SnapshotReader interface {
	Latest(ctx context.Context, symbol string) (*models.Snapshot, error)
}

// Handler provides the HTTP handlers of the market data API.
//
// Responsibilities:
//   - Validate path and query parameters
//   - Call the market service
//   - Translate results into response DTOs
//
// Failures are attached with c.Error and rendered by middleware.ErrorHandler.
type Handler struct {
	svc   service.MarketService
	snaps SnapshotReader
}

// NewHandler constructs a new Handler instance. snaps may be nil when no
// database is configured.
func NewHandler(svc service.MarketService, snaps SnapshotReader) *Handler {
	return &Handler{svc: svc, snaps: snaps}
}

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Search godoc
// @Summary      Search symbols
// @Description  Finds NSE/BSE listings matching a ticker or name fragment
// @Tags         search
// @Produce      json
// @Param        q      query     string  true   "Query" example(tata)
// @Param        limit  query     int     false  "Max results (1-50)" default(10)
// @Success      200    {array}   models.SymbolMatch
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      503    {object}  dto.ErrorResponse
// @Router       /api/v1/search [get]
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, invalidParam("q is required"))
		return
	}
	limit, err := intQuery(c, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		fail(c, err)
		return
	}
	matches, err := h.svc.Search(c.Request.Context(), q, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if matches == nil {
		matches = []models.SymbolMatch{}
	}
	c.JSON(http.StatusOK, matches)
}

// LatestSnapshot godoc
// @Summary      Latest stored snapshot
// @Description  Returns the most recent recorded overview snapshot for a symbol
// @Tags         snapshots
// @Produce      json
// @Param        symbol  path      string  true  "Symbol" example(TCS)
// @Success      200     {object}  models.Snapshot
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/v1/snapshots/{symbol}/latest [get]
func (h *Handler) LatestSnapshot(c *gin.Context) {
	if h.snaps == nil {
		fail(c, source.Errorf(source.UpstreamUnavailable, "snapshot", "latest", "snapshot store not configured"))
		return
	}
	s, err := h.snaps.Latest(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func invalidParam(msg string) error {
	return source.Errorf(source.InvalidParameters, "api", "params", "%s", msg)
}

// intQuery reads an optional integer query parameter bounded to [lo, hi].
func intQuery(c *gin.Context, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, invalidParam(name + " must be an integer between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi))
	}
	return n, nil
}
