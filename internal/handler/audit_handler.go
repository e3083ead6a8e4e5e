package handler

import (
	"net/http"

	"factory/internal/middleware"
	"factory/internal/repository"
	"factory/internal/service"
	"factory/pkg/pagination"
	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Authenticator
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Authenticator) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(h.auth.RequirePermission("audit.read"))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs handles GET /audit-logs
// @Summary      Get audit logs
// @Description  Lists audit rows newest first. Rows written without a user show as System.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        action       query     string  false  "Action, e.g. RECEIVE_PO"
// @Param        entity_type  query     string  false  "Entity type, e.g. purchase_order"
// @Param        user_id      query     int     false  "Acting user"
// @Success      200          {object}  response.Response{data=object}
// @Router       /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		UserID:     queryUint(c, "user_id"),
	}

	logs, err := h.auditService.List(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}
