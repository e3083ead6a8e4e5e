package handler

import (
	"context"
	"net/http"

	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health/live", h.Live)
	router.GET("/health/ready", h.Ready)
}

// Live handles GET /health/live
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"status": "OK"}))
}

// Ready handles GET /health/ready
// @Summary      Readiness probe
// @Description  Pings the database and the other configured dependencies
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "OK"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.ErrorWithData(http.StatusServiceUnavailable, "Service not ready", status))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}
