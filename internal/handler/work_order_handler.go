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

type WorkOrderHandler struct {
	woService service.WorkOrderService
	auth      *middleware.Authenticator
}

func NewWorkOrderHandler(woService service.WorkOrderService, auth *middleware.Authenticator) *WorkOrderHandler {
	return &WorkOrderHandler{woService: woService, auth: auth}
}

func (h *WorkOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/work-orders")
	{
		orders.GET("", h.auth.RequirePermission("work_orders.read"), h.List)
		orders.GET("/:id", h.auth.RequirePermission("work_orders.read"), h.Get)
		orders.GET("/:id/bom-requirements", h.auth.RequirePermission("work_orders.read"), h.Requirements)
		orders.POST("", h.auth.RequirePermission("work_orders.write"), h.Create)
		orders.PUT("/:id", h.auth.RequirePermission("work_orders.write"), h.Update)
		orders.DELETE("/:id", h.auth.RequirePermission("work_orders.delete"), h.Delete)
		orders.POST("/:id/start", h.auth.RequirePermission("work_orders.write"), h.Start)
		orders.POST("/:id/complete", h.auth.RequirePermission("work_orders.write"), h.Complete)
		orders.POST("/:id/cancel", h.auth.RequirePermission("work_orders.write"), h.Cancel)
	}
}

// List handles GET /work-orders
// @Summary      List work orders
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Param        status      query     string  false  "pending, in_progress, completed or cancelled"
// @Param        product_id  query     int     false  "Product ID"
// @Param        search      query     string  false  "WO number"
// @Success      200         {object}  response.Response{data=object}
// @Router       /work-orders [get]
func (h *WorkOrderHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.OrderFilter{
		Status:    c.Query("status"),
		PartnerID: queryUint(c, "product_id"),
		Search:    c.Query("search"),
	}
	res, err := h.woService.List(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Get handles GET /work-orders/:id
// @Summary      Get work order
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Work order ID"
// @Success      200  {object}  response.Response{data=model.WorkOrder}
// @Failure      404  {object}  response.Response
// @Router       /work-orders/{id} [get]
func (h *WorkOrderHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	wo, err := h.woService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// Requirements handles GET /work-orders/:id/bom-requirements
// @Summary      Work order material requirements
// @Description  Expands the product BOM for the planned quantity with shortages against current stock
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Work order ID"
// @Success      200  {object}  response.Response{data=[]service.Requirement}
// @Router       /work-orders/{id}/bom-requirements [get]
func (h *WorkOrderHandler) Requirements(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reqs, err := h.woService.Requirements(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reqs))
}

// Create handles POST /work-orders
// @Summary      Create work order
// @Tags         work-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.WorkOrderRequest  true  "Work order"
// @Success      201      {object}  response.Response{data=model.WorkOrder}
// @Failure      400      {object}  response.Response
// @Router       /work-orders [post]
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.WorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wo, err := h.woService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, wo))
}

// Update handles PUT /work-orders/:id
// @Summary      Update work order
// @Description  Pending orders accept every field. In-progress orders only accept notes.
// @Tags         work-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                       true  "Work order ID"
// @Param        payload  body      service.WorkOrderRequest  true  "Work order"
// @Success      200      {object}  response.Response{data=model.WorkOrder}
// @Failure      409      {object}  response.Response
// @Router       /work-orders/{id} [put]
func (h *WorkOrderHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.WorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wo, err := h.woService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// Delete handles DELETE /work-orders/:id
// @Summary      Delete work order
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Work order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /work-orders/{id} [delete]
func (h *WorkOrderHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.woService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Work order deleted successfully"))
}

// Start handles POST /work-orders/:id/start
// @Summary      Start work order
// @Description  Consumes BOM materials for the planned quantity. Fails with the full shortage list when stock is short.
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Work order ID"
// @Success      200  {object}  response.Response{data=model.WorkOrder}
// @Failure      400  {object}  response.Response{data=[]apperror.MaterialShortage}
// @Failure      409  {object}  response.Response
// @Router       /work-orders/{id}/start [post]
func (h *WorkOrderHandler) Start(c *gin.Context) {
	runTransition(c, h.woService.Start)
}

// Complete handles POST /work-orders/:id/complete
// @Summary      Complete work order
// @Description  Adds the produced quantity to product stock. The quantity must be between 1 and the planned quantity.
// @Tags         work-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                               true   "Work order ID"
// @Param        payload  body      service.CompleteWorkOrderRequest  true   "Produced quantity"
// @Success      200      {object}  response.Response{data=model.WorkOrder}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /work-orders/{id}/complete [post]
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CompleteWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wo, err := h.woService.Complete(c.Request.Context(), middleware.CurrentUserID(c), id, req.QuantityProduced)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// Cancel handles POST /work-orders/:id/cancel
// @Summary      Cancel work order
// @Description  Materials already consumed by an in-progress order are not returned
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Work order ID"
// @Success      200  {object}  response.Response{data=model.WorkOrder}
// @Failure      409  {object}  response.Response
// @Router       /work-orders/{id}/cancel [post]
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	runTransition(c, h.woService.Cancel)
}
