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

type SalesOrderHandler struct {
	soService service.SalesOrderService
	auth      *middleware.Authenticator
}

func NewSalesOrderHandler(soService service.SalesOrderService, auth *middleware.Authenticator) *SalesOrderHandler {
	return &SalesOrderHandler{soService: soService, auth: auth}
}

func (h *SalesOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/sales-orders")
	{
		orders.GET("", h.auth.RequirePermission("sales_orders.read"), h.List)
		orders.GET("/:id", h.auth.RequirePermission("sales_orders.read"), h.Get)
		orders.POST("", h.auth.RequirePermission("sales_orders.write"), h.Create)
		orders.PUT("/:id", h.auth.RequirePermission("sales_orders.write"), h.Update)
		orders.DELETE("/:id", h.auth.RequirePermission("sales_orders.delete"), h.Delete)
		orders.POST("/:id/confirm", h.auth.RequirePermission("sales_orders.write"), h.Confirm)
		orders.POST("/:id/ship", h.auth.RequirePermission("sales_orders.write"), h.Ship)
		orders.POST("/:id/complete", h.auth.RequirePermission("sales_orders.write"), h.Complete)
		orders.POST("/:id/cancel", h.auth.RequirePermission("sales_orders.write"), h.Cancel)
	}
}

// List handles GET /sales-orders
// @Summary      List sales orders
// @Tags         sales-orders
// @Produce      json
// @Security     BearerAuth
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        status       query     string  false  "pending, confirmed, shipped, completed or cancelled"
// @Param        customer_id  query     int     false  "Customer ID"
// @Param        search       query     string  false  "SO number"
// @Success      200          {object}  response.Response{data=object}
// @Router       /sales-orders [get]
func (h *SalesOrderHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.OrderFilter{
		Status:    c.Query("status"),
		PartnerID: queryUint(c, "customer_id"),
		Search:    c.Query("search"),
	}
	res, err := h.soService.List(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Get handles GET /sales-orders/:id
// @Summary      Get sales order
// @Tags         sales-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sales order ID"
// @Success      200  {object}  response.Response{data=model.SalesOrder}
// @Failure      404  {object}  response.Response
// @Router       /sales-orders/{id} [get]
func (h *SalesOrderHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	so, err := h.soService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, so))
}

// Create handles POST /sales-orders
// @Summary      Create sales order
// @Tags         sales-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SalesOrderRequest  true  "Sales order"
// @Success      201      {object}  response.Response{data=model.SalesOrder}
// @Failure      400      {object}  response.Response
// @Router       /sales-orders [post]
func (h *SalesOrderHandler) Create(c *gin.Context) {
	var req service.SalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	so, err := h.soService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, so))
}

// Update handles PUT /sales-orders/:id
// @Summary      Update sales order
// @Description  Replaces header and lines of a pending sales order
// @Tags         sales-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                        true  "Sales order ID"
// @Param        payload  body      service.SalesOrderRequest  true  "Sales order"
// @Success      200      {object}  response.Response{data=model.SalesOrder}
// @Failure      409      {object}  response.Response
// @Router       /sales-orders/{id} [put]
func (h *SalesOrderHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.SalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	so, err := h.soService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, so))
}

// Delete handles DELETE /sales-orders/:id
// @Summary      Delete sales order
// @Tags         sales-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sales order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /sales-orders/{id} [delete]
func (h *SalesOrderHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.soService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Sales order deleted successfully"))
}

// Confirm handles POST /sales-orders/:id/confirm
// @Summary      Confirm sales order
// @Tags         sales-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sales order ID"
// @Success      200  {object}  response.Response{data=model.SalesOrder}
// @Failure      409  {object}  response.Response
// @Router       /sales-orders/{id}/confirm [post]
func (h *SalesOrderHandler) Confirm(c *gin.Context) {
	runTransition(c, h.soService.Confirm)
}

// Ship handles POST /sales-orders/:id/ship
// @Summary      Ship sales order
// @Description  Takes every line quantity out of product stock. When any product is short the response lists all shortages and nothing changes.
// @Tags         sales-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sales order ID"
// @Success      200  {object}  response.Response{data=model.SalesOrder}
// @Failure      400  {object}  response.Response{data=[]apperror.Shortage}
// @Failure      409  {object}  response.Response
// @Router       /sales-orders/{id}/ship [post]
func (h *SalesOrderHandler) Ship(c *gin.Context) {
	runTransition(c, h.soService.Ship)
}

// Complete handles POST /sales-orders/:id/complete
// @Summary      Complete sales order
// @Tags         sales-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sales order ID"
// @Success      200  {object}  response.Response{data=model.SalesOrder}
// @Failure      409  {object}  response.Response
// @Router       /sales-orders/{id}/complete [post]
func (h *SalesOrderHandler) Complete(c *gin.Context) {
	runTransition(c, h.soService.Complete)
}

// Cancel handles POST /sales-orders/:id/cancel
// @Summary      Cancel sales order
// @Tags         sales-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sales order ID"
// @Success      200  {object}  response.Response{data=model.SalesOrder}
// @Failure      409  {object}  response.Response
// @Router       /sales-orders/{id}/cancel [post]
func (h *SalesOrderHandler) Cancel(c *gin.Context) {
	runTransition(c, h.soService.Cancel)
}
