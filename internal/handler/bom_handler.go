package handler

import (
	"net/http"
	"strconv"

	"factory/internal/middleware"
	"factory/internal/service"
	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

type BOMHandler struct {
	bomService service.BOMService
	auth       *middleware.Authenticator
}

func NewBOMHandler(bomService service.BOMService, auth *middleware.Authenticator) *BOMHandler {
	return &BOMHandler{bomService: bomService, auth: auth}
}

func (h *BOMHandler) RegisterRoutes(router *gin.RouterGroup) {
	bom := router.Group("/bom")
	{
		bom.GET("/product/:productId", h.auth.RequirePermission("bom.read"), h.ListByProduct)
		bom.GET("/product/:productId/requirements", h.auth.RequirePermission("bom.read"), h.Requirements)
		bom.POST("", h.auth.RequirePermission("bom.write"), h.Create)
		bom.PUT("/:id", h.auth.RequirePermission("bom.write"), h.Update)
		bom.DELETE("/:id", h.auth.RequirePermission("bom.delete"), h.Delete)
	}
}

// ListByProduct handles GET /bom/product/:productId
// @Summary      Product BOM
// @Description  Lists the materials needed to build one unit of the product
// @Tags         bom
// @Produce      json
// @Security     BearerAuth
// @Param        productId  path      int  true  "Product ID"
// @Success      200        {object}  response.Response{data=[]model.BOM}
// @Router       /bom/product/{productId} [get]
func (h *BOMHandler) ListByProduct(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}
	lines, err := h.bomService.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, lines))
}

// Requirements handles GET /bom/product/:productId/requirements
// @Summary      Material requirements
// @Description  Expands the BOM for a quantity of the product and reports shortages against current stock
// @Tags         bom
// @Produce      json
// @Security     BearerAuth
// @Param        productId  path      int  true  "Product ID"
// @Param        quantity   query     int  true  "Units to build"
// @Success      200        {object}  response.Response{data=[]service.Requirement}
// @Failure      400        {object}  response.Response
// @Router       /bom/product/{productId}/requirements [get]
func (h *BOMHandler) Requirements(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}
	quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid quantity"))
		return
	}
	reqs, err := h.bomService.Requirements(c.Request.Context(), productID, quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reqs))
}

// Create handles POST /bom
// @Summary      Add BOM line
// @Tags         bom
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateBOMRequest  true  "BOM line"
// @Success      201      {object}  response.Response{data=model.BOM}
// @Failure      409      {object}  response.Response
// @Router       /bom [post]
func (h *BOMHandler) Create(c *gin.Context) {
	var req service.CreateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	line, err := h.bomService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, line))
}

// Update handles PUT /bom/:id
// @Summary      Update BOM line
// @Tags         bom
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                       true  "BOM line ID"
// @Param        payload  body      service.UpdateBOMRequest  true  "Quantity and notes"
// @Success      200      {object}  response.Response{data=model.BOM}
// @Router       /bom/{id} [put]
func (h *BOMHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	line, err := h.bomService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, line))
}

// Delete handles DELETE /bom/:id
// @Summary      Delete BOM line
// @Tags         bom
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "BOM line ID"
// @Success      200  {object}  response.Response
// @Router       /bom/{id} [delete]
func (h *BOMHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.bomService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "BOM line deleted successfully"))
}
