package handler

import (
	"net/http"

	"factory/internal/middleware"
	"factory/internal/service"
	"factory/pkg/pagination"
	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
	auth             *middleware.Authenticator
}

func NewDashboardHandler(dashboardService service.DashboardService, auth *middleware.Authenticator) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, auth: auth}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	dashboard := router.Group("/dashboard")
	dashboard.Use(h.auth.RequirePermission("dashboard.read"))
	{
		dashboard.GET("/summary", h.Summary)
		dashboard.GET("/stats", h.Stats)
		dashboard.GET("/activities", h.Activities)
	}
}

// Summary handles GET /dashboard/summary
// @Summary      Dashboard summary
// @Description  Order counts by status, today's activity and low stock counts
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.DashboardSummary}
// @Router       /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// Stats handles GET /dashboard/stats
// @Summary      Dashboard statistics
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.DashboardStats}
// @Router       /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboardService.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// Activities handles GET /dashboard/activities
// @Summary      Recent stock activity
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Number of rows (default 10)"
// @Success      200    {object}  response.Response{data=[]repository.StockLogView}
// @Router       /dashboard/activities [get]
func (h *DashboardHandler) Activities(c *gin.Context) {
	rows, err := h.dashboardService.Activities(c.Request.Context(), pagination.Limit(c, pagination.FeedLimit))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}
