package handler

import (
	"net/http"

	"factory/internal/middleware"
	"factory/internal/model"
	"factory/internal/repository"
	"factory/internal/service"
	"factory/pkg/pagination"
	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stockService service.StockService
	auth         *middleware.Authenticator
}

func NewStockHandler(stockService service.StockService, auth *middleware.Authenticator) *StockHandler {
	return &StockHandler{stockService: stockService, auth: auth}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	stock := router.Group("/stock")
	{
		stock.GET("/logs", h.auth.RequirePermission("stock.read"), h.Logs)
		stock.GET("/summary", h.auth.RequirePermission("stock.read"), h.Summary)
		stock.GET("/movements/:itemType/:itemId", h.auth.RequirePermission("stock.read"), h.Movements)
		stock.POST("/adjust", h.auth.RequirePermission("stock.adjust"), h.Adjust)
	}
}

// Logs handles GET /stock/logs
// @Summary      Stock ledger
// @Description  Lists stock movements newest first
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Items per page (default 20)"
// @Param        item_type       query     string  false  "material or product"
// @Param        item_id         query     int     false  "Item ID"
// @Param        movement_type   query     string  false  "in, out or adjust"
// @Param        reference_type  query     string  false  "PO, WO, SO or ADJUSTMENT"
// @Success      200             {object}  response.Response{data=object}
// @Router       /stock/logs [get]
func (h *StockHandler) Logs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.StockLogFilter{
		ItemType:      model.ItemKind(c.Query("item_type")),
		ItemID:        queryUint(c, "item_id"),
		MovementType:  model.MovementType(c.Query("movement_type")),
		ReferenceType: model.ReferenceType(c.Query("reference_type")),
	}
	res, err := h.stockService.Logs(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Summary handles GET /stock/summary
// @Summary      Stock summary
// @Description  Current stock against min_stock for every active item with low-stock counts
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.StockSummary}
// @Router       /stock/summary [get]
func (h *StockHandler) Summary(c *gin.Context) {
	summary, err := h.stockService.Summary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// Movements handles GET /stock/movements/:itemType/:itemId
// @Summary      Item movements
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        itemType  path      string  true   "material or product"
// @Param        itemId    path      int     true   "Item ID"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Failure      400       {object}  response.Response
// @Router       /stock/movements/{itemType}/{itemId} [get]
func (h *StockHandler) Movements(c *gin.Context) {
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return
	}
	item, err := service.ParseItemRef(c.Param("itemType"), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	p := pagination.Parse(c)
	res, err := h.stockService.Movements(c.Request.Context(), item, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Adjust handles POST /stock/adjust
// @Summary      Adjust stock
// @Description  Sets an item's stock to new_stock and records the difference in the ledger
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.AdjustStockRequest  true  "Adjustment"
// @Success      200      {object}  response.Response{data=service.AdjustStockResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /stock/adjust [post]
func (h *StockHandler) Adjust(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.stockService.Adjust(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
