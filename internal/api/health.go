package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe. The database gates readiness; upstream
//     providers are only probed with ?deep=true and reported without
//     affecting the status code.
type HealthHandler struct {
	dbPing   Check
	upstream map[string]Check
	timeout  time.Duration
}

// NewHealthHandler constructs a HealthHandler. dbPing may be nil when the
// service runs without a database.
func NewHealthHandler(dbPing Check, upstream map[string]Check) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, upstream: upstream, timeout: 5 * time.Second}
}

// Register mounts the health and readiness endpoints into the provided Gin router.
func (h *HealthHandler) Register(r *gin.Engine) {
	// @Summary      Liveness probe
	// @Description  Always returns OK if the service is running
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Router       /healthz [get]
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// @Summary      Readiness probe
	// @Description  Returns ready if the database is reachable; deep=true also probes upstream providers
	// @Tags         health
	// @Produce      json
	// @Param        deep  query     bool  false  "Probe upstream providers"
	// @Success      200   {object}  map[string]any
	// @Failure      503   {object}  map[string]any
	// @Router       /readyz [get]
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	body := gin.H{"status": "ready"}
	code := http.StatusOK
	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			body["database"] = "ok"
		}
	}

	if deep, _ := strconv.ParseBool(c.Query("deep")); deep && len(h.upstream) > 0 {
		body["upstream"] = h.probeUpstream(ctx)
	}
	c.JSON(code, body)
}

func (h *HealthHandler) probeUpstream(ctx context.Context) map[string]string {
	names := make([]string, 0, len(h.upstream))
	for name := range h.upstream {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := "ok"
			if err := h.upstream[name](ctx); err != nil {
				status = "unreachable"
			}
			mu.Lock()
			out[name] = status
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}
