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

type PurchaseOrderHandler struct {
	poService service.PurchaseOrderService
	auth      *middleware.Authenticator
}

func NewPurchaseOrderHandler(poService service.PurchaseOrderService, auth *middleware.Authenticator) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{poService: poService, auth: auth}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/purchase-orders")
	{
		orders.GET("", h.auth.RequirePermission("purchase_orders.read"), h.List)
		orders.GET("/:id", h.auth.RequirePermission("purchase_orders.read"), h.Get)
		orders.POST("", h.auth.RequirePermission("purchase_orders.write"), h.Create)
		orders.PUT("/:id", h.auth.RequirePermission("purchase_orders.write"), h.Update)
		orders.DELETE("/:id", h.auth.RequirePermission("purchase_orders.delete"), h.Delete)
		orders.POST("/:id/approve", h.auth.RequirePermission("purchase_orders.approve"), h.Approve)
		orders.POST("/:id/receive", h.auth.RequirePermission("purchase_orders.receive"), h.Receive)
		orders.POST("/:id/cancel", h.auth.RequirePermission("purchase_orders.approve"), h.Cancel)
	}
}

// List handles GET /purchase-orders
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        status       query     string  false  "pending, approved, received or cancelled"
// @Param        supplier_id  query     int     false  "Supplier ID"
// @Param        search       query     string  false  "PO number"
// @Success      200          {object}  response.Response{data=object}
// @Router       /purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.OrderFilter{
		Status:    c.Query("status"),
		PartnerID: queryUint(c, "supplier_id"),
		Search:    c.Query("search"),
	}
	res, err := h.poService.List(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Get handles GET /purchase-orders/:id
// @Summary      Get purchase order
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404  {object}  response.Response
// @Router       /purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	po, err := h.poService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Create handles POST /purchase-orders
// @Summary      Create purchase order
// @Description  Creates a pending purchase order. The PO number is generated when omitted.
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.PurchaseOrderRequest  true  "Purchase order"
// @Success      201      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req service.PurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	po, err := h.poService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// Update handles PUT /purchase-orders/:id
// @Summary      Update purchase order
// @Description  Replaces header and lines of a pending purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                           true  "Purchase order ID"
// @Param        payload  body      service.PurchaseOrderRequest  true  "Purchase order"
// @Success      200      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      409      {object}  response.Response
// @Router       /purchase-orders/{id} [put]
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.PurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	po, err := h.poService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Delete handles DELETE /purchase-orders/:id
// @Summary      Delete purchase order
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /purchase-orders/{id} [delete]
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.poService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Purchase order deleted successfully"))
}

// Approve handles POST /purchase-orders/:id/approve
// @Summary      Approve purchase order
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      409  {object}  response.Response
// @Router       /purchase-orders/{id}/approve [post]
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	runTransition(c, h.poService.Approve)
}

// Receive handles POST /purchase-orders/:id/receive
// @Summary      Receive purchase order
// @Description  Adds every line quantity to material stock and writes one ledger entry per material
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      409  {object}  response.Response
// @Router       /purchase-orders/{id}/receive [post]
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	runTransition(c, h.poService.Receive)
}

// Cancel handles POST /purchase-orders/:id/cancel
// @Summary      Cancel purchase order
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      409  {object}  response.Response
// @Router       /purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	runTransition(c, h.poService.Cancel)
}
