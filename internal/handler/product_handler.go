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

type ProductHandler struct {
	productService service.ProductService
	exportService   service.ExportService
	auth            *middleware.Authenticator
}

func NewProductHandler(productService service.ProductService, exportService service.ExportService, auth *middleware.Authenticator) *ProductHandler {
	return &ProductHandler{productService: productService, exportService: exportService, auth: auth}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.GET("", h.auth.RequirePermission("products.read"), h.List)
		products.GET("/low-stock", h.auth.RequirePermission("products.read"), h.LowStock)
		products.GET("/export", h.auth.RequirePermission("reports.export"), h.Export)
		products.GET("/:id", h.auth.RequirePermission("products.read"), h.Get)
		products.POST("", h.auth.RequirePermission("products.write"), h.Create)
		products.PUT("/:id", h.auth.RequirePermission("products.write"), h.Update)
		products.DELETE("/:id", h.auth.RequirePermission("products.delete"), h.Delete)
	}
}

// List handles GET /products
// @Summary      List raw products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Param        search    query     string  false  "Name or SKU"
// @Param        category  query     string  false  "Category"
// @Param        status    query     string  false  "active or inactive"
// @Param        type      query     string  false  "sendal or boot"
// @Success      200       {object}  response.Response{data=object}
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.ProductFilter{
		ItemFilter: repository.ItemFilter{
			Search:   c.Query("search"),
			Category: c.Query("category"),
			Status:   c.Query("status"),
		},
		Type: c.Query("type"),
	}
	res, err := h.productService.List(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// LowStock handles GET /products/low-stock
// @Summary      Low stock products
// @Description  Active products whose stock is at or below min_stock
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /products/low-stock [get]
func (h *ProductHandler) LowStock(c *gin.Context) {
	items, err := h.productService.LowStock(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Export handles GET /products/export
// @Summary      Export products
// @Tags         products
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200  {file}  file
// @Router       /products/export [get]
func (h *ProductHandler) Export(c *gin.Context) {
	f, err := h.exportService.Products(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	sendWorkbook(c, f, "products")
}

// Get handles GET /products/:id
// @Summary      Get product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Failure      404  {object}  response.Response
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	m, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, m))
}

// Create handles POST /products
// @Summary      Create product
// @Description  Creates a product. A positive initial_stock is written to the stock ledger as an adjustment.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.productService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, m))
}

// Update handles PUT /products/:id
// @Summary      Update product
// @Description  Updates catalog fields. Stock is changed only through /stock/adjust and orders.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                      true  "Product ID"
// @Param        payload  body      service.ProductRequest  true  "Product"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.productService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, m))
}

// Delete handles DELETE /products/:id
// @Summary      Delete product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted successfully"))
}
