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

type MaterialHandler struct {
	materialService service.MaterialService
	exportService   service.ExportService
	auth            *middleware.Authenticator
}

func NewMaterialHandler(materialService service.MaterialService, exportService service.ExportService, auth *middleware.Authenticator) *MaterialHandler {
	return &MaterialHandler{materialService: materialService, exportService: exportService, auth: auth}
}

func (h *MaterialHandler) RegisterRoutes(router *gin.RouterGroup) {
	materials := router.Group("/materials")
	{
		materials.GET("", h.auth.RequirePermission("materials.read"), h.List)
		materials.GET("/low-stock", h.auth.RequirePermission("materials.read"), h.LowStock)
		materials.GET("/export", h.auth.RequirePermission("reports.export"), h.Export)
		materials.GET("/:id", h.auth.RequirePermission("materials.read"), h.Get)
		materials.POST("", h.auth.RequirePermission("materials.write"), h.Create)
		materials.PUT("/:id", h.auth.RequirePermission("materials.write"), h.Update)
		materials.DELETE("/:id", h.auth.RequirePermission("materials.delete"), h.Delete)
	}
}

// List handles GET /materials
// @Summary      List raw materials
// @Tags         materials
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Param        search    query     string  false  "Name or SKU"
// @Param        category  query     string  false  "Category"
// @Param        status    query     string  false  "active or inactive"
// @Success      200       {object}  response.Response{data=object}
// @Router       /materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.ItemFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	res, err := h.materialService.List(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// LowStock handles GET /materials/low-stock
// @Summary      Low stock materials
// @Description  Active materials whose stock is at or below min_stock
// @Tags         materials
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Material}
// @Router       /materials/low-stock [get]
func (h *MaterialHandler) LowStock(c *gin.Context) {
	items, err := h.materialService.LowStock(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Export handles GET /materials/export
// @Summary      Export materials
// @Tags         materials
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200  {file}  file
// @Router       /materials/export [get]
func (h *MaterialHandler) Export(c *gin.Context) {
	f, err := h.exportService.Materials(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	sendWorkbook(c, f, "materials")
}

// Get handles GET /materials/:id
// @Summary      Get material
// @Tags         materials
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Material ID"
// @Success      200  {object}  response.Response{data=model.Material}
// @Failure      404  {object}  response.Response
// @Router       /materials/{id} [get]
func (h *MaterialHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	m, err := h.materialService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, m))
}

// Create handles POST /materials
// @Summary      Create material
// @Description  Creates a material. A positive initial_stock is written to the stock ledger as an adjustment.
// @Tags         materials
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.MaterialRequest  true  "Material"
// @Success      201      {object}  response.Response{data=model.Material}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.materialService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, m))
}

// Update handles PUT /materials/:id
// @Summary      Update material
// @Description  Updates catalog fields. Stock is changed only through /stock/adjust and orders.
// @Tags         materials
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                      true  "Material ID"
// @Param        payload  body      service.MaterialRequest  true  "Material"
// @Success      200      {object}  response.Response{data=model.Material}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /materials/{id} [put]
func (h *MaterialHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.materialService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, m))
}

// Delete handles DELETE /materials/:id
// @Summary      Delete material
// @Tags         materials
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Material ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.materialService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Material deleted successfully"))
}
